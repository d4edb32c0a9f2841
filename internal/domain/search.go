package domain

import "time"

// SearchHit is one result item from a search provider feed.
type SearchHit struct {
	Query     string
	Title     string
	Link      string
	Snippet   string
	Published time.Time
}
