package booking

import (
	"regexp"
	"strings"

	"github.com/reliancemove/service-quote/internal/common/domain"
)

var ukMobileRegex = regexp.MustCompile(`^(\+44\s?7\d{3}|\(?07\d{3}\)?)\s?\d{3}\s?\d{3}$`)

const ukMobileMessage = "Enter a valid UK mobile number: 07 (11 digits) or +447 format"

// IsUKMobile reports whether phone is a UK mobile number in 07 or +447 form.
func IsUKMobile(phone string) bool {
	return ukMobileRegex.MatchString(phone)
}

// ValidateForSubmission checks the contact fields required before a quote is created.
// The first failing field is reported.
func (s Snapshot) ValidateForSubmission() error {
	if strings.TrimSpace(s.Pickup.Location) == "" {
		return domain.NewFieldValidationError("pickup.location", "pickup location is required")
	}
	if strings.TrimSpace(s.Delivery.Location) == "" {
		return domain.NewFieldValidationError("delivery.location", "delivery location is required")
	}
	if !IsUKMobile(s.CustomerDetails.Phone) {
		return domain.NewFieldValidationError("customerDetails.phone", ukMobileMessage)
	}
	if !IsUKMobile(s.Pickup.ContactPhone) {
		return domain.NewFieldValidationError("pickup.contactPhone", ukMobileMessage)
	}
	if !IsUKMobile(s.Delivery.ContactPhone) {
		return domain.NewFieldValidationError("delivery.contactPhone", ukMobileMessage)
	}
	if strings.TrimSpace(s.Pickup.ContactName) == "" {
		return domain.NewFieldValidationError("pickup.contactName", "Contact name is required")
	}
	if strings.TrimSpace(s.Delivery.ContactName) == "" {
		return domain.NewFieldValidationError("delivery.contactName", "Contact name is required")
	}
	if strings.TrimSpace(s.CustomerDetails.Name) == "" {
		return domain.NewFieldValidationError("customerDetails.name", "Contact name is required")
	}
	return nil
}
