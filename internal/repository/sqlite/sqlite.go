// Package sqlite implements the Event Catalog Store on database/sql with the
// go-sqlite3 driver, for single-node deployments and tests.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
)

const eventColumns = `id, name, description, venue, starts_at, registration_deadline,
	max_participants, current_participants, team_size, status, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var (
		e   model.Event
		max sql.NullInt64
	)
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.Venue, &e.StartsAt, &e.RegistrationDeadline,
		&max, &e.CurrentParticipants, &e.TeamSize, &e.Status, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if max.Valid {
		n := int(max.Int64)
		e.MaxParticipants = &n
	}
	return &e, nil
}

// EventRepository handles persistence for events.
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, e *model.Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.Description, e.Venue, e.StartsAt.UTC(), e.RegistrationDeadline.UTC(),
		e.MaxParticipants, e.CurrentParticipants, string(e.TeamSize), string(e.Status), e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// List returns all events ordered by creation time descending.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY created_at DESC`)
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

// GetByID returns a single event or repository.ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// UpdateStatus sets an event's publication state.
func (r *EventRepository) UpdateStatus(ctx context.Context, id string, status model.EventStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE events SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update event status: %w", err)
	}
	return requireRow(res)
}

// RegistrationRepository handles persistence for registrations.
type RegistrationRepository struct {
	db *sql.DB
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *sql.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Exists reports whether userID already holds a registration for eventID.
func (r *RegistrationRepository) Exists(ctx context.Context, eventID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE event_id = ? AND user_id = ?)`,
		eventID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check registration: %w", err)
	}
	return exists, nil
}

// Book records reg and adds its member count to the event's participant
// counter in one transaction. SQLite has no row locks; the transaction is
// opened IMMEDIATE (see database.OpenSQLite) and the counter update is
// conditional on the new total fitting max_participants.
func (r *RegistrationRepository) Book(ctx context.Context, reg *model.Registration, now time.Time) (err error) {
	details, err := nullableJSON(reg.ParticipantDetails != nil, reg.ParticipantDetails)
	if err != nil {
		return fmt.Errorf("encode participant details: %w", err)
	}
	members, err := nullableJSON(reg.TeamMembers != nil, reg.TeamMembers)
	if err != nil {
		return fmt.Errorf("encode team members: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var (
		status   string
		deadline time.Time
	)
	err = tx.QueryRowContext(ctx,
		`SELECT status, registration_deadline FROM events WHERE id = ?`,
		reg.EventID,
	).Scan(&status, &deadline)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = repository.ErrNotFound
			return err
		}
		return fmt.Errorf("read event row: %w", err)
	}
	if err = repository.CheckWindow(model.EventStatus(status), deadline, now); err != nil {
		return err
	}

	if reg.UserID != nil {
		var dup bool
		err = tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM registrations WHERE event_id = ? AND user_id = ?)`,
			reg.EventID, *reg.UserID,
		).Scan(&dup)
		if err != nil {
			return fmt.Errorf("check duplicate: %w", err)
		}
		if dup {
			err = repository.ErrAlreadyRegistered
			return err
		}
	}

	seats := reg.MemberCount()
	res, err := tx.ExecContext(ctx,
		`UPDATE events
		 SET current_participants = current_participants + ?
		 WHERE id = ?
		   AND (max_participants IS NULL OR current_participants + ? <= max_participants)`,
		seats, reg.EventID, seats,
	)
	if err != nil {
		return fmt.Errorf("increment current_participants: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment current_participants: %w", err)
	}
	if n == 0 {
		err = repository.ErrCapacityExceeded
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO registrations
		   (id, user_id, event_id, registration_type, team_name,
		    participant_details, team_members, status, registered_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reg.ID, reg.UserID, reg.EventID, string(reg.RegistrationType), reg.TeamName,
		details, members, string(reg.Status), reg.RegisteredAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListByEvent returns all registrations for a given event in registration
// order.
func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, event_id, registration_type, team_name,
		        participant_details, team_members, status, registered_at
		 FROM registrations
		 WHERE event_id = ?
		 ORDER BY registered_at ASC, rowid ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		var (
			reg              model.Registration
			userID, teamName sql.NullString
			details, members sql.NullString
		)
		if err := rows.Scan(&reg.ID, &userID, &reg.EventID, &reg.RegistrationType, &teamName,
			&details, &members, &reg.Status, &reg.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		if userID.Valid {
			reg.UserID = &userID.String
		}
		if teamName.Valid {
			reg.TeamName = &teamName.String
		}
		if details.Valid {
			if err := json.Unmarshal([]byte(details.String), &reg.ParticipantDetails); err != nil {
				return nil, fmt.Errorf("decode participant details: %w", err)
			}
		}
		if members.Valid {
			if err := json.Unmarshal([]byte(members.String), &reg.TeamMembers); err != nil {
				return nil, fmt.Errorf("decode team members: %w", err)
			}
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

// UpdateStatus sets the status of one registration.
func (r *RegistrationRepository) UpdateStatus(ctx context.Context, id string, status model.RegistrationStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE registrations SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update registration status: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// nullableJSON encodes v as a JSON string, or NULL when it is absent.
func nullableJSON(present bool, v any) (any, error) {
	if !present {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
