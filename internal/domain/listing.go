package domain

import "time"

// ParsedListing is one opening lifted out of an upstream table, structured
// feed or search hit. AgeDays and PostedAt are always both set once parsing
// is finished; PostedAt is the one that survives reconciliation.
type ParsedListing struct {
	CompanyName string
	RoleTitle   string
	Location    string // "" when the source had none
	ApplyURL    string // "" when the source had none (inactive rows only)
	AgeDays     int
	PostedAt    time.Time
	Inactive    bool
}
