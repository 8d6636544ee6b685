package booking

// Group names a top-level field group of the draft. Mutations report the groups they changed.
type Group string

const (
	GroupPickup             Group = "pickup"
	GroupDelivery           Group = "delivery"
	GroupExtraStops         Group = "extraStops"
	GroupItems              Group = "items"
	GroupVan                Group = "van"
	GroupSchedule           Group = "selectedDate"
	GroupItemsToDismantle   Group = "itemsToDismantle"
	GroupItemsToAssemble    Group = "itemsToAssemble"
	GroupAdditionalServices Group = "additionalServices"
	GroupCustomerDetails    Group = "customerDetails"
	GroupServiceDetails     Group = "serviceDetails"
	GroupJourney            Group = "journey"
	GroupTotalPrice         Group = "totalPrice"
	GroupQuoteRef           Group = "quoteRef"
	GroupBookingRef         Group = "bookingRef"
)

// PriceGroups are the groups whose changes require a fresh price.
var PriceGroups = Groups{
	GroupPickup,
	GroupDelivery,
	GroupVan,
	GroupSchedule,
	GroupItemsToDismantle,
	GroupItemsToAssemble,
	GroupExtraStops,
}

// WaypointGroups are the groups that can change the ordered waypoint list.
var WaypointGroups = Groups{GroupPickup, GroupDelivery, GroupExtraStops}

// AllGroups lists every group, used when the whole draft is replaced.
var AllGroups = Groups{
	GroupPickup, GroupDelivery, GroupExtraStops, GroupItems, GroupVan, GroupSchedule,
	GroupItemsToDismantle, GroupItemsToAssemble, GroupAdditionalServices, GroupCustomerDetails,
	GroupServiceDetails, GroupJourney, GroupTotalPrice, GroupQuoteRef, GroupBookingRef,
}

// Groups is a small ordered set of groups.
type Groups []Group

// Contains returns true if g is in the set.
func (gs Groups) Contains(g Group) bool {
	for _, x := range gs {
		if x == g {
			return true
		}
	}
	return false
}

// Intersects returns true if any group is in both sets.
func (gs Groups) Intersects(other Groups) bool {
	for _, g := range gs {
		if other.Contains(g) {
			return true
		}
	}
	return false
}

// Add appends g unless it is already present.
func (gs Groups) Add(g Group) Groups {
	if gs.Contains(g) {
		return gs
	}
	return append(gs, g)
}
