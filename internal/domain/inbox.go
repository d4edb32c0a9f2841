package domain

import (
	"strings"
	"time"
)

type InboxStatus string

const (
	InboxActive   InboxStatus = "active"
	InboxArchived InboxStatus = "archived"
	InboxHidden   InboxStatus = "hidden"
)

func ParseInboxStatus(s string) (InboxStatus, bool) {
	switch InboxStatus(strings.ToLower(strings.TrimSpace(s))) {
	case InboxActive:
		return InboxActive, true
	case InboxArchived:
		return InboxArchived, true
	case InboxHidden:
		return InboxHidden, true
	}
	return "", false
}

// InboxItem ties one user to one opening with a workflow status.
type InboxItem struct {
	UserID          string         `json:"user_id"`
	OpeningSignalID string         `json:"opening_signal_id"`
	Status          InboxStatus    `json:"status"`
	UpdatedAt       time.Time      `json:"updated_at"`
	Signal          *OpeningSignal `json:"signal,omitempty"`
}
