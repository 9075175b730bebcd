package model

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// MatchPayload is the data of buddy.match.created and buddy.match.ended
// events.
type MatchPayload struct {
	MatchID     string     `json:"match_id"`
	VolunteerID string     `json:"volunteer_id"`
	BuddyID     string     `json:"buddy_id"`
	MatchedAt   *time.Time `json:"matched_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	EndReason   string     `json:"end_reason,omitempty"`
}

// Validate checks required match fields.
func (p *MatchPayload) Validate() error {
	if strings.TrimSpace(p.MatchID) == "" {
		return errors.New("match_id is required")
	}
	if strings.TrimSpace(p.VolunteerID) == "" {
		return errors.New("volunteer_id is required")
	}
	if strings.TrimSpace(p.BuddyID) == "" {
		return errors.New("buddy_id is required")
	}
	return nil
}

// SignupPayload is the data of volunteer.signup.created and
// volunteer.signup.cancelled events.
type SignupPayload struct {
	SignupID    string     `json:"signup_id"`
	VolunteerID string     `json:"volunteer_id"`
	ShiftID     string     `json:"shift_id"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// Validate checks required signup fields.
func (p *SignupPayload) Validate() error {
	if strings.TrimSpace(p.SignupID) == "" {
		return errors.New("signup_id is required")
	}
	if strings.TrimSpace(p.VolunteerID) == "" {
		return errors.New("volunteer_id is required")
	}
	return nil
}

// HoursPayload is the data of volunteer.hours.logged events.
type HoursPayload struct {
	VolunteerID string  `json:"volunteer_id"`
	ActivityID  string  `json:"activity_id"`
	Hours       float64 `json:"hours"`
}

// Validate checks required hours fields.
func (p *HoursPayload) Validate() error {
	if strings.TrimSpace(p.VolunteerID) == "" {
		return errors.New("volunteer_id is required")
	}
	if p.Hours <= 0 {
		return errors.New("hours must be positive")
	}
	return nil
}

// DecodePayload unmarshals raw event data into dst. Unknown fields are
// tolerated so partners can add fields without breaking ingestion.
func DecodePayload(data json.RawMessage, dst any) error {
	if len(data) == 0 {
		return errors.New("event data is required")
	}
	return json.Unmarshal(data, dst)
}
