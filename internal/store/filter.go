package store

import (
	"slices"
	"time"

	"lucky_spin/internal/domain"
)

// TicketFilter selects tickets. Zero-valued fields do not constrain.
type TicketFilter struct {
	ConfigurationIDs []uint
	Code             string
	ExcludeCode      string
	UserID           string
	ExcludeUserID    string
	Statuses         []domain.TicketStatus
	WinnersOnly      bool
}

// Matches reports whether t satisfies every set field
func (f TicketFilter) Matches(t domain.Ticket) bool {
	if len(f.ConfigurationIDs) > 0 && !slices.Contains(f.ConfigurationIDs, t.ConfigurationID) {
		return false
	}
	if f.Code != "" && t.Code != f.Code {
		return false
	}
	if f.ExcludeCode != "" && t.Code == f.ExcludeCode {
		return false
	}
	if f.UserID != "" && t.UserID != f.UserID {
		return false
	}
	if f.ExcludeUserID != "" && t.UserID == f.ExcludeUserID {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, t.Status) {
		return false
	}
	return !f.WinnersOnly || t.IsWinner
}

// TicketUpdate is the set of columns a ticket transition writes
type TicketUpdate struct {
	Status   domain.TicketStatus
	IsWinner *bool
}

// Apply writes the update onto t
func (u TicketUpdate) Apply(t *domain.Ticket) {
	t.Status = u.Status
	if u.IsWinner != nil {
		t.IsWinner = *u.IsWinner
	}
}

// UsageFilter selects usage history entries. Zero-valued fields do not constrain.
type UsageFilter struct {
	ConfigurationIDs []uint
	UserID           string
	Since            time.Time
	Until            time.Time
}

// Matches reports whether e satisfies every set field
func (f UsageFilter) Matches(e domain.UsageEntry) bool {
	if len(f.ConfigurationIDs) > 0 && !slices.Contains(f.ConfigurationIDs, e.ConfigurationID) {
		return false
	}
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if !f.Since.IsZero() && e.UsageDate.Before(f.Since) {
		return false
	}
	return f.Until.IsZero() || e.UsageDate.Before(f.Until)
}

// ConfigurationFilter selects configurations. Zero-valued fields do not constrain.
type ConfigurationFilter struct {
	GiveawayID uint
	ActiveOnly bool
}

// Matches reports whether c satisfies every set field
func (f ConfigurationFilter) Matches(c domain.SpinConfiguration) bool {
	if f.GiveawayID != 0 && c.GiveawayID != f.GiveawayID {
		return false
	}
	return !f.ActiveOnly || c.IsActive
}
