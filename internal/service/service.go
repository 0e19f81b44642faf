// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the store layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/registration"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
	"github.com/Shivanand-hulikatti/campus-events/internal/roster"
	"github.com/google/uuid"
)

const maxCapacity = 100_000

// EventStore reads and writes events.
type EventStore interface {
	Create(ctx context.Context, e *model.Event) error
	List(ctx context.Context) ([]model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	UpdateStatus(ctx context.Context, id string, status model.EventStatus) error
}

// RegistrationStore reads and writes registrations. Book must insert the
// registration and add its member count to the event counter atomically,
// returning repository.ErrCapacityExceeded when the members do not fit.
type RegistrationStore interface {
	Exists(ctx context.Context, eventID, userID string) (bool, error)
	Book(ctx context.Context, reg *model.Registration, now time.Time) error
	ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error)
	UpdateStatus(ctx context.Context, id string, status model.RegistrationStatus) error
}

// StoreWriteError wraps a store failure during a registration attempt. Its
// message is shown to the user as is.
type StoreWriteError struct {
	Op  string
	Err error
}

func (e *StoreWriteError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StoreWriteError) Unwrap() error { return e.Err }

// StoreReadError wraps a store failure while loading the state a request
// depends on.
type StoreReadError struct {
	Op  string
	Err error
}

func (e *StoreReadError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StoreReadError) Unwrap() error { return e.Err }

// EventService orchestrates event-related business operations.
type EventService struct {
	events        EventStore
	registrations RegistrationStore
	now           func() time.Time
}

// Option configures an EventService.
type Option func(*EventService)

// WithClock replaces the wall clock used for deadline checks.
func WithClock(now func() time.Time) Option {
	return func(s *EventService) { s.now = now }
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events EventStore, registrations RegistrationStore, opts ...Option) *EventService {
	s := &EventService{events: events, registrations: registrations, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock's current time.
func (s *EventService) Now() time.Time { return s.now() }

// CreateEvent validates the request and stores a new event.
func (s *EventService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, fmt.Errorf("event name is required")
	}
	if req.TeamSize == "" {
		req.TeamSize = model.TeamSizeSolo
	}
	if !req.TeamSize.Valid() {
		return nil, fmt.Errorf("team_size %q is not supported", req.TeamSize)
	}
	if req.Status == "" {
		req.Status = model.EventDraft
	}
	if !req.Status.Valid() {
		return nil, fmt.Errorf("status %q is not supported", req.Status)
	}
	if req.MaxParticipants != nil {
		if *req.MaxParticipants <= 0 {
			return nil, fmt.Errorf("max_participants must be a positive integer")
		}
		if *req.MaxParticipants > maxCapacity {
			return nil, fmt.Errorf("max_participants cannot exceed 100,000")
		}
	}
	if req.RegistrationDeadline.IsZero() {
		return nil, fmt.Errorf("registration_deadline is required")
	}
	if req.StartsAt.IsZero() {
		req.StartsAt = req.RegistrationDeadline
	}

	event := &model.Event{
		ID:                   uuid.New().String(),
		Name:                 req.Name,
		Description:          strings.TrimSpace(req.Description),
		Venue:                strings.TrimSpace(req.Venue),
		StartsAt:             req.StartsAt.UTC(),
		RegistrationDeadline: req.RegistrationDeadline.UTC(),
		MaxParticipants:      req.MaxParticipants,
		TeamSize:             req.TeamSize,
		Status:               req.Status,
		CreatedAt:            s.now().UTC(),
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, &StoreWriteError{Op: "create event", Err: err}
	}
	return event, nil
}

// ListEvents returns all events.
func (s *EventService) ListEvents(ctx context.Context) ([]model.Event, error) {
	events, err := s.events.List(ctx)
	if err != nil {
		return nil, &StoreReadError{Op: "list events", Err: err}
	}
	return events, nil
}

// GetEvent returns a single event by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if id == "" {
		return nil, fmt.Errorf("event id is required")
	}
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, &StoreReadError{Op: "get event", Err: err}
	}
	return event, nil
}

// UpdateEventStatus publishes, cancels or completes an event.
func (s *EventService) UpdateEventStatus(ctx context.Context, id string, status model.EventStatus) (*model.Event, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("status %q is not supported", status)
	}
	if err := s.events.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, &StoreWriteError{Op: "update event status", Err: err}
	}
	return s.GetEvent(ctx, id)
}

// Form returns the initial registration roster for an event.
func (s *EventService) Form(ctx context.Context, eventID string) (*registration.Form, error) {
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return registration.NewForm(event.TeamSize), nil
}

// Register runs one registration attempt: validate the submission, reject
// repeat registrants, re-read the live event for the deadline and capacity
// check, then book.
//
// Validation failures come back as *registration.ValidationError, failed
// reads as *StoreReadError and a failed booking as *StoreWriteError. The
// repository sentinels are returned unwrapped.
func (s *EventService) Register(ctx context.Context, eventID string, req model.RegisterRequest) (*model.Registration, error) {
	if eventID == "" {
		return nil, fmt.Errorf("event id is required")
	}
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	req = registration.Normalize(req)
	if err := registration.Validate(event.TeamSize, req); err != nil {
		return nil, err
	}

	if req.UserID != "" {
		exists, err := s.registrations.Exists(ctx, eventID, req.UserID)
		if err != nil {
			return nil, &StoreReadError{Op: "check existing registration", Err: err}
		}
		if exists {
			return nil, repository.ErrAlreadyRegistered
		}
	}

	// The event may have changed since it was read above.
	live, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := repository.CheckWindow(live.Status, live.RegistrationDeadline, now); err != nil {
		return nil, err
	}
	if err := repository.CheckCapacity(live.CurrentParticipants, live.MaxParticipants, len(req.Members)); err != nil {
		return nil, err
	}

	reg := registration.Build(live, req, now)
	if err := s.registrations.Book(ctx, reg, now); err != nil {
		if isDomainError(err) {
			return nil, err
		}
		log.Printf("register event=%s: book failed: %v", eventID, err)
		return nil, &StoreWriteError{Op: "book registration", Err: err}
	}
	return reg, nil
}

// ListRegistrations returns all registrations for an event.
func (s *EventService) ListRegistrations(ctx context.Context, eventID string) ([]model.Registration, error) {
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	regs, err := s.registrations.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, &StoreReadError{Op: "list registrations", Err: err}
	}
	return regs, nil
}

// Roster loads an event's registrations into an organizer view.
func (s *EventService) Roster(ctx context.Context, eventID string) (*roster.Roster, error) {
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	regs, err := s.registrations.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, &StoreReadError{Op: "list registrations", Err: err}
	}
	return roster.New(event.TeamSize, regs), nil
}

// UpdateRegistrationStatus applies an organizer roster action to one of the
// event's registrations and returns the refreshed roster.
func (s *EventService) UpdateRegistrationStatus(ctx context.Context, eventID, registrationID string, status model.RegistrationStatus) (*roster.Roster, error) {
	if registrationID == "" {
		return nil, fmt.Errorf("registration id is required")
	}
	if !status.Valid() {
		return nil, fmt.Errorf("status %q is not supported", status)
	}
	r, err := s.Roster(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := r.UpdateStatus(ctx, s.registrations, registrationID, status); err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, &StoreWriteError{Op: "update registration status", Err: err}
	}
	return r, nil
}

func isDomainError(err error) bool {
	return errors.Is(err, repository.ErrNotFound) ||
		errors.Is(err, repository.ErrCapacityExceeded) ||
		errors.Is(err, repository.ErrDeadlinePassed) ||
		errors.Is(err, repository.ErrEventNotOpen) ||
		errors.Is(err, repository.ErrAlreadyRegistered)
}
