// SPDX-License-Identifier: MIT

// Package slots defines the appointment slot value and the availability
// collaborator the engine books against.
package slots

import (
	"context"
	"errors"
	"time"
)

// Slot is an immutable availability window. It is copied verbatim into the
// session at proposal time so the slot the caller confirms is guaranteed
// identical to the one booked; there is no re-fetch between proposal and
// booking.
type Slot struct {
	ID         string    `json:"id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Label      string    `json:"label"`       // written form ("mardi 14 mai à 10h30")
	VocalLabel string    `json:"vocal_label"` // TTS-friendly form
	Weekday    string    `json:"weekday"`
	Source     string    `json:"source"` // producing backend tag
}

// ContactInfo identifies the caller for booking.
type ContactInfo struct {
	Name        string `json:"name"`
	Reason      string `json:"reason"`
	Contact     string `json:"contact"`
	ContactKind string `json:"contact_kind"` // phone | email
}

// ErrConflict reports that the slot was taken between proposal and booking.
var ErrConflict = errors.New("slots: slot already booked")

// Availability is the external slot service consumed by the engine.
type Availability interface {
	// ListCandidates returns bookable slots matching a time preference
	// ("matin", "apres-midi", "soir" or empty for any), soonest first.
	ListCandidates(ctx context.Context, preference string) ([]Slot, error)
	// Book reserves the exact slot proposed earlier. Returns ErrConflict
	// when it was taken in the meantime.
	Book(ctx context.Context, slot Slot, contact ContactInfo) error
	// Cancel releases a previously booked appointment by caller name.
	Cancel(ctx context.Context, name string) error
}
