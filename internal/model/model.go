// Package model defines the core domain types for the campus event system.
package model

import "time"

// TeamSize is an event's registration policy.
type TeamSize string

const (
	TeamSizeSolo  TeamSize = "solo"
	TeamSizeTwo   TeamSize = "2_people"
	TeamSizeFour  TeamSize = "4_plus"
	MaxTeamMembers         = 8
)

// Valid reports whether t is a known policy.
func (t TeamSize) Valid() bool {
	switch t {
	case TeamSizeSolo, TeamSizeTwo, TeamSizeFour:
		return true
	}
	return false
}

// IsTeam reports whether registrations under t carry a team name and roster.
func (t TeamSize) IsTeam() bool {
	return t == TeamSizeTwo || t == TeamSizeFour
}

// MemberLimits returns the minimum and maximum roster length for t.
func (t TeamSize) MemberLimits() (min, max int) {
	switch t {
	case TeamSizeTwo:
		return 2, 2
	case TeamSizeFour:
		return 4, MaxTeamMembers
	default:
		return 1, 1
	}
}

// EventStatus is the publication state of an event.
type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventCancelled EventStatus = "cancelled"
	EventCompleted EventStatus = "completed"
)

func (s EventStatus) Valid() bool {
	switch s {
	case EventDraft, EventPublished, EventCancelled, EventCompleted:
		return true
	}
	return false
}

// RegistrationStatus is the only attribute of a registration that changes
// after creation.
type RegistrationStatus string

const (
	StatusRegistered RegistrationStatus = "registered"
	StatusWaitlisted RegistrationStatus = "waitlisted"
	StatusCancelled  RegistrationStatus = "cancelled"
	StatusAttended   RegistrationStatus = "attended"
)

func (s RegistrationStatus) Valid() bool {
	switch s {
	case StatusRegistered, StatusWaitlisted, StatusCancelled, StatusAttended:
		return true
	}
	return false
}

// Event represents a campus event created by an organizer.
type Event struct {
	ID                   string      `json:"id"`
	Name                 string      `json:"name"`
	Description          string      `json:"description"`
	Venue                string      `json:"venue"`
	StartsAt             time.Time   `json:"starts_at"`
	RegistrationDeadline time.Time   `json:"registration_deadline"`
	MaxParticipants      *int        `json:"max_participants"`
	CurrentParticipants  int         `json:"current_participants"`
	TeamSize             TeamSize    `json:"team_size"`
	Status               EventStatus `json:"status"`
	CreatedAt            time.Time   `json:"created_at"`
}

// Remaining returns the number of open participant slots, or nil when the
// event has no capacity limit.
func (e *Event) Remaining() *int {
	if e.MaxParticipants == nil {
		return nil
	}
	n := *e.MaxParticipants - e.CurrentParticipants
	if n < 0 {
		n = 0
	}
	return &n
}

// IsFull returns true when a capacity is set and no slots remain.
func (e *Event) IsFull() bool {
	return e.MaxParticipants != nil && e.CurrentParticipants >= *e.MaxParticipants
}

// MemberDetails is one participant's form data.
type MemberDetails struct {
	Name    string            `json:"name"`
	Email   string            `json:"email"`
	Phone   string            `json:"phone"`
	College string            `json:"college"`
	Branch  string            `json:"branch"`
	Year    string            `json:"year"`
	Skills  string            `json:"skills"`
	Extras  map[string]string `json:"extras,omitempty"`
}

// Registration is a solo participant's or a team's entry for an event.
type Registration struct {
	ID                 string             `json:"id"`
	UserID             *string            `json:"user_id"`
	EventID            string             `json:"event_id"`
	RegistrationType   TeamSize           `json:"registration_type"`
	TeamName           *string            `json:"team_name,omitempty"`
	ParticipantDetails *MemberDetails     `json:"participant_details,omitempty"`
	TeamMembers        []MemberDetails    `json:"team_members,omitempty"`
	Status             RegistrationStatus `json:"status"`
	RegisteredAt       time.Time          `json:"registered_at"`
}

// MemberCount is the number of participants this registration adds to the
// event's counter.
func (r *Registration) MemberCount() int {
	if r.RegistrationType.IsTeam() {
		return len(r.TeamMembers)
	}
	return 1
}

// Members returns the participants in roster order.
func (r *Registration) Members() []MemberDetails {
	if r.RegistrationType.IsTeam() {
		return r.TeamMembers
	}
	if r.ParticipantDetails == nil {
		return nil
	}
	return []MemberDetails{*r.ParticipantDetails}
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Name                 string      `json:"name"`
	Description          string      `json:"description"`
	Venue                string      `json:"venue"`
	StartsAt             time.Time   `json:"starts_at"`
	RegistrationDeadline time.Time   `json:"registration_deadline"`
	MaxParticipants      *int        `json:"max_participants"`
	TeamSize             TeamSize    `json:"team_size"`
	Status               EventStatus `json:"status"`
}

// UpdateEventStatusRequest is the payload for publishing or closing an event.
type UpdateEventStatusRequest struct {
	Status EventStatus `json:"status"`
}

// RegisterRequest is the payload for registering for an event.
type RegisterRequest struct {
	UserID   string          `json:"user_id"`
	TeamName string          `json:"team_name"`
	Members  []MemberDetails `json:"members"`
}

// UpdateStatusRequest is the payload for an organizer roster action.
type UpdateStatusRequest struct {
	Status RegistrationStatus `json:"status"`
}

// VerifyHostRequest carries the organizer passcode.
type VerifyHostRequest struct {
	Passcode string `json:"passcode"`
}

// TokenResponse carries an organizer capability token.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
