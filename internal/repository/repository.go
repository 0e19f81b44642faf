// Package repository implements the Event Catalog Store on PostgreSQL.
// It uses pgx directly (no ORM) and also owns the error values every store
// implementation returns.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrCapacityExceeded is returned when the entry's members do not fit in the
// event's remaining capacity.
var ErrCapacityExceeded = errors.New("event capacity exceeded")

// ErrDeadlinePassed is returned once the registration deadline is reached.
var ErrDeadlinePassed = errors.New("registration deadline has passed")

// ErrEventNotOpen is returned for events that are not published.
var ErrEventNotOpen = errors.New("event is not open for registration")

// ErrAlreadyRegistered is returned when the same user registers twice.
var ErrAlreadyRegistered = errors.New("user already registered for this event")

// CheckWindow rejects registrations for unpublished events and at or after
// the deadline.
func CheckWindow(status model.EventStatus, deadline, now time.Time) error {
	if status != model.EventPublished {
		return ErrEventNotOpen
	}
	if !now.Before(deadline) {
		return ErrDeadlinePassed
	}
	return nil
}

// CheckCapacity rejects an entry of seats members unless all of them fit.
// A nil max means the event is unbounded.
func CheckCapacity(current int, max *int, seats int) error {
	if max != nil && current+seats > *max {
		return ErrCapacityExceeded
	}
	return nil
}

const eventColumns = `id, name, description, venue, starts_at, registration_deadline,
	max_participants, current_participants, team_size, status, created_at`

// validID reports whether id can name a row. Event and registration ids are
// UUID columns, and pgx refuses to encode anything else.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.Venue, &e.StartsAt, &e.RegistrationDeadline,
		&e.MaxParticipants, &e.CurrentParticipants, &e.TeamSize, &e.Status, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, e *model.Event) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.Name, e.Description, e.Venue, e.StartsAt, e.RegistrationDeadline,
		e.MaxParticipants, e.CurrentParticipants, e.TeamSize, e.Status, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// List returns all events ordered by creation time descending.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// GetByID returns a single event or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	e, err := scanEvent(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// UpdateStatus sets an event's publication state.
func (r *EventRepository) UpdateStatus(ctx context.Context, id string, status model.EventStatus) error {
	if !validID(id) {
		return ErrNotFound
	}
	tag, err := r.db.Exec(ctx, `UPDATE events SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update event status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RegistrationRepository handles persistence for registrations.
type RegistrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Exists reports whether userID already holds a registration for eventID.
func (r *RegistrationRepository) Exists(ctx context.Context, eventID, userID string) (bool, error) {
	if !validID(eventID) {
		return false, nil
	}
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE event_id = $1 AND user_id = $2)`,
		eventID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check registration: %w", err)
	}
	return exists, nil
}

// Book records reg and adds its member count to the event's participant
// counter inside one transaction, so the two writes land together or not at
// all.
//
// The event row is locked with SELECT ... FOR UPDATE, which serialises
// concurrent bookings for the same event. The counter update is additionally
// conditional on the new total fitting max_participants; zero affected rows
// means the entry does not fit.
func (r *RegistrationRepository) Book(ctx context.Context, reg *model.Registration, now time.Time) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var (
		status   model.EventStatus
		deadline time.Time
	)
	err = tx.QueryRow(ctx,
		`SELECT status, registration_deadline
		 FROM events
		 WHERE id = $1
		 FOR UPDATE`,
		reg.EventID,
	).Scan(&status, &deadline)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock event row: %w", err)
	}
	if err = CheckWindow(status, deadline, now); err != nil {
		return err
	}

	if reg.UserID != nil {
		var dup bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM registrations WHERE event_id = $1 AND user_id = $2)`,
			reg.EventID, *reg.UserID,
		).Scan(&dup)
		if err != nil {
			return fmt.Errorf("check duplicate: %w", err)
		}
		if dup {
			err = ErrAlreadyRegistered
			return err
		}
	}

	tag, err := tx.Exec(ctx,
		`UPDATE events
		 SET current_participants = current_participants + $2
		 WHERE id = $1
		   AND (max_participants IS NULL OR current_participants + $2 <= max_participants)`,
		reg.EventID, reg.MemberCount(),
	)
	if err != nil {
		return fmt.Errorf("increment current_participants: %w", err)
	}
	if tag.RowsAffected() == 0 {
		err = ErrCapacityExceeded
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO registrations
		   (id, user_id, event_id, registration_type, team_name,
		    participant_details, team_members, status, registered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		reg.ID, reg.UserID, reg.EventID, reg.RegistrationType, reg.TeamName,
		reg.ParticipantDetails, reg.TeamMembers, reg.Status, reg.RegisteredAt,
	)
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListByEvent returns all registrations for a given event in registration
// order.
func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	if !validID(eventID) {
		return nil, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, event_id, registration_type, team_name,
		        participant_details, team_members, status, registered_at
		 FROM registrations
		 WHERE event_id = $1
		 ORDER BY registered_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		var reg model.Registration
		if err := rows.Scan(&reg.ID, &reg.UserID, &reg.EventID, &reg.RegistrationType, &reg.TeamName,
			&reg.ParticipantDetails, &reg.TeamMembers, &reg.Status, &reg.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

// UpdateStatus sets the status of one registration.
func (r *RegistrationRepository) UpdateStatus(ctx context.Context, id string, status model.RegistrationStatus) error {
	if !validID(id) {
		return ErrNotFound
	}
	tag, err := r.db.Exec(ctx, `UPDATE registrations SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update registration status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
