package domain

import "time"

type OpeningSignal struct {
	ID          string     `json:"id"`
	ListingHash string     `json:"listing_hash"`
	CompanyName string     `json:"company_name"`
	RoleTitle   string     `json:"role_title"`
	Location    string     `json:"location,omitempty"`
	ApplyURL    string     `json:"apply_url,omitempty"`
	Term        string     `json:"term"`
	Source      string     `json:"source"`
	IsActive    bool       `json:"is_active"`
	FirstSeenAt time.Time  `json:"first_seen_at"`
	LastSeenAt  time.Time  `json:"last_seen_at"`
	PostedAt    *time.Time `json:"posted_at"`
	AgeDays     *int       `json:"age_days"`
}

// KnownSignal is the part of a persisted row the reconciler reads back
// before it writes a batch.
type KnownSignal struct {
	ListingHash string
	PostedAt    *time.Time
	AgeDays     *int
	FirstSeenAt time.Time
}
