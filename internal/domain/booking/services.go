package booking

// AdditionalServices are the optional extras chosen for the move.
type AdditionalServices struct {
	BasicCompensation      bool     `json:"basicCompensation"`
	ComprehensiveInsurance bool     `json:"comprehensiveInsurance"`
	Dismantling            []string `json:"dismantling"`
	Reassembly             []string `json:"reassembly"`
	SpecialRequirements    string   `json:"specialRequirements"`
}

// AdditionalServicesPatch carries the fields to merge into AdditionalServices.
type AdditionalServicesPatch struct {
	BasicCompensation      *bool     `json:"basicCompensation,omitempty"`
	ComprehensiveInsurance *bool     `json:"comprehensiveInsurance,omitempty"`
	Dismantling            *[]string `json:"dismantling,omitempty"`
	Reassembly             *[]string `json:"reassembly,omitempty"`
	SpecialRequirements    *string   `json:"specialRequirements,omitempty"`
}

// Apply returns a copy of s with the patch merged in.
func (p AdditionalServicesPatch) Apply(s AdditionalServices) AdditionalServices {
	if p.BasicCompensation != nil {
		s.BasicCompensation = *p.BasicCompensation
	}
	if p.ComprehensiveInsurance != nil {
		s.ComprehensiveInsurance = *p.ComprehensiveInsurance
	}
	if p.Dismantling != nil {
		s.Dismantling = append([]string{}, (*p.Dismantling)...)
	}
	if p.Reassembly != nil {
		s.Reassembly = append([]string{}, (*p.Reassembly)...)
	}
	setString(&s.SpecialRequirements, p.SpecialRequirements)
	return s
}

// CustomerDetails identify the person requesting the quote.
type CustomerDetails struct {
	Name               string `json:"name"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	IsBusinessCustomer bool   `json:"isBusinessCustomer"`
}

// CustomerDetailsPatch carries the fields to merge into CustomerDetails.
type CustomerDetailsPatch struct {
	Name               *string `json:"name,omitempty"`
	Email              *string `json:"email,omitempty"`
	Phone              *string `json:"phone,omitempty"`
	IsBusinessCustomer *bool   `json:"isBusinessCustomer,omitempty"`
}

// Apply returns a copy of c with the patch merged in.
func (p CustomerDetailsPatch) Apply(c CustomerDetails) CustomerDetails {
	setString(&c.Name, p.Name)
	setString(&c.Email, p.Email)
	setString(&c.Phone, p.Phone)
	if p.IsBusinessCustomer != nil {
		c.IsBusinessCustomer = *p.IsBusinessCustomer
	}
	return c
}

// ServiceKind names the removal service the wizard was entered through.
type ServiceKind string

const (
	ServiceHome      ServiceKind = "Home Removal"
	ServiceFurniture ServiceKind = "Furniture Removal"
	ServicePiano     ServiceKind = "Piano Removal"
	ServiceMotorbike ServiceKind = "Motorbike Removal"
)

// ServiceDetails are the service-specific fields carried into the quote details block.
type ServiceDetails struct {
	Service       ServiceKind `json:"service"`
	QuoteEmail    string      `json:"quoteEmail"`
	PianoType     string      `json:"pianoType"`
	MotorbikeType string      `json:"motorbikeType"`
}

// ServiceDetailsPatch carries the fields to merge into ServiceDetails.
type ServiceDetailsPatch struct {
	Service       *ServiceKind `json:"service,omitempty"`
	QuoteEmail    *string      `json:"quoteEmail,omitempty"`
	PianoType     *string      `json:"pianoType,omitempty"`
	MotorbikeType *string      `json:"motorbikeType,omitempty"`
}

// Apply returns a copy of d with the patch merged in.
func (p ServiceDetailsPatch) Apply(d ServiceDetails) ServiceDetails {
	if p.Service != nil {
		d.Service = *p.Service
	}
	setString(&d.QuoteEmail, p.QuoteEmail)
	setString(&d.PianoType, p.PianoType)
	setString(&d.MotorbikeType, p.MotorbikeType)
	return d
}

// Journey is the aggregated route summary shown to the user.
type Journey struct {
	Distance string `json:"distance"`
	Duration string `json:"duration"`
	Route    any    `json:"route,omitempty"`
}
