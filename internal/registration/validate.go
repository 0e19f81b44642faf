package registration

import (
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/google/uuid"
)

// ValidationError reports the first invalid field of a submission. Member is
// the zero-based roster index, or -1 for fields that belong to the whole
// registration.
type ValidationError struct {
	Field  string
	Member int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Member < 0 {
		return fmt.Sprintf("%s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("member %d: %s %s", e.Member+1, e.Field, e.Reason)
}

func invalid(member int, field, reason string) *ValidationError {
	return &ValidationError{Field: field, Member: member, Reason: reason}
}

// Normalize trims whitespace from every text field and lowercases emails.
func Normalize(req model.RegisterRequest) model.RegisterRequest {
	req.UserID = strings.TrimSpace(req.UserID)
	req.TeamName = strings.TrimSpace(req.TeamName)
	members := make([]model.MemberDetails, len(req.Members))
	for i, m := range req.Members {
		m.Name = strings.TrimSpace(m.Name)
		m.Email = strings.ToLower(strings.TrimSpace(m.Email))
		m.Phone = strings.TrimSpace(m.Phone)
		m.College = strings.TrimSpace(m.College)
		m.Branch = strings.TrimSpace(m.Branch)
		m.Year = strings.TrimSpace(m.Year)
		m.Skills = strings.TrimSpace(m.Skills)
		members[i] = m
	}
	req.Members = members
	return req
}

// Validate checks a normalized submission against the event's team policy
// and returns the first violation as a *ValidationError.
//
// Solo entries need exactly one member with name, email and phone. Team
// entries need a team name, a roster length within the policy limits, and a
// name and email on every member.
func Validate(teamSize model.TeamSize, req model.RegisterRequest) error {
	if !teamSize.Valid() {
		return invalid(-1, "team_size", fmt.Sprintf("%q is not supported", teamSize))
	}

	min, max := teamSize.MemberLimits()
	if !teamSize.IsTeam() {
		if len(req.Members) != 1 {
			return invalid(-1, "members", "must contain exactly one participant")
		}
		m := req.Members[0]
		switch {
		case m.Name == "":
			return invalid(0, "name", "is required")
		case m.Email == "":
			return invalid(0, "email", "is required")
		case !isValidEmail(m.Email):
			return invalid(0, "email", "is not a valid email address")
		case m.Phone == "":
			return invalid(0, "phone", "is required")
		}
		return nil
	}

	if req.TeamName == "" {
		return invalid(-1, "team_name", "is required")
	}
	if len(req.Members) < min {
		return invalid(-1, "members", fmt.Sprintf("must contain at least %d participants", min))
	}
	if len(req.Members) > max {
		return invalid(-1, "members", fmt.Sprintf("must contain at most %d participants", max))
	}
	for i, m := range req.Members {
		switch {
		case m.Name == "":
			return invalid(i, "name", "is required")
		case m.Email == "":
			return invalid(i, "email", "is required")
		case !isValidEmail(m.Email):
			return invalid(i, "email", "is not a valid email address")
		}
	}
	return nil
}

// Build shapes a validated submission into the registration row to insert.
func Build(event *model.Event, req model.RegisterRequest, now time.Time) *model.Registration {
	reg := &model.Registration{
		ID:               uuid.New().String(),
		EventID:          event.ID,
		RegistrationType: event.TeamSize,
		Status:           model.StatusRegistered,
		RegisteredAt:     now.UTC(),
	}
	if req.UserID != "" {
		userID := req.UserID
		reg.UserID = &userID
	}
	if event.TeamSize.IsTeam() {
		teamName := req.TeamName
		reg.TeamName = &teamName
		reg.TeamMembers = append([]model.MemberDetails(nil), req.Members...)
	} else {
		details := req.Members[0]
		reg.ParticipantDetails = &details
	}
	return reg
}

// isValidEmail does a basic structural check.
func isValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	return len(parts[0]) > 0 && strings.Contains(parts[1], ".")
}
