package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/registration"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
)

// memStore is an in-memory EventStore and RegistrationStore with the same
// booking rules as the SQL repositories.
type memStore struct {
	mu        sync.Mutex
	events    map[string]*model.Event
	regs      []model.Registration
	bookCalls int
	bookErr   error
	getErr    error
	existsErr error
}

func newMemStore() *memStore {
	return &memStore{events: make(map[string]*model.Event)}
}

func (m *memStore) Create(ctx context.Context, e *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.events[e.ID] = &cp
	return nil
}

func (m *memStore) List(ctx context.Context) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Event
	for _, e := range m.events {
		out = append(out, *e)
	}
	return out, nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	e, ok := m.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memStore) UpdateStatus(ctx context.Context, id string, status model.EventStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.Status = status
	return nil
}

// regStore exposes memStore's registration half under the method names
// RegistrationStore expects.
type regStore struct{ *memStore }

func (r regStore) Exists(ctx context.Context, eventID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.existsErr != nil {
		return false, r.existsErr
	}
	for _, reg := range r.regs {
		if reg.EventID == eventID && reg.UserID != nil && *reg.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r regStore) Book(ctx context.Context, reg *model.Registration, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookCalls++
	if r.bookErr != nil {
		return r.bookErr
	}
	e, ok := r.events[reg.EventID]
	if !ok {
		return repository.ErrNotFound
	}
	if err := repository.CheckWindow(e.Status, e.RegistrationDeadline, now); err != nil {
		return err
	}
	if err := repository.CheckCapacity(e.CurrentParticipants, e.MaxParticipants, reg.MemberCount()); err != nil {
		return err
	}
	e.CurrentParticipants += reg.MemberCount()
	r.regs = append(r.regs, *reg)
	return nil
}

func (r regStore) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Registration
	for _, reg := range r.regs {
		if reg.EventID == eventID {
			out = append(out, reg)
		}
	}
	return out, nil
}

func (r regStore) UpdateStatus(ctx context.Context, id string, status model.RegistrationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.regs {
		if r.regs[i].ID == id {
			r.regs[i].Status = status
			return nil
		}
	}
	return repository.ErrNotFound
}

var testNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*EventService, *memStore, *time.Time) {
	t.Helper()
	store := newMemStore()
	now := testNow
	svc := NewEventService(store, regStore{store}, WithClock(func() time.Time { return now }))
	return svc, store, &now
}

func intPtr(n int) *int { return &n }

func createEvent(t *testing.T, svc *EventService, teamSize model.TeamSize, max *int) *model.Event {
	t.Helper()
	e, err := svc.CreateEvent(context.Background(), model.CreateEventRequest{
		Name:                 "Campus Hack",
		RegistrationDeadline: testNow.Add(48 * time.Hour),
		MaxParticipants:      max,
		TeamSize:             teamSize,
		Status:               model.EventPublished,
	})
	if err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
	return e
}

func soloRequest(userID, name string) model.RegisterRequest {
	return model.RegisterRequest{
		UserID:  userID,
		Members: []model.MemberDetails{{Name: name, Email: name + "@x.com", Phone: "555"}},
	}
}

func teamRequest(team string, n int) model.RegisterRequest {
	req := model.RegisterRequest{TeamName: team}
	for i := 0; i < n; i++ {
		req.Members = append(req.Members, model.MemberDetails{
			Name:  fmt.Sprintf("%s-%d", team, i),
			Email: fmt.Sprintf("%s%d@x.com", team, i),
		})
	}
	return req
}

func TestCreateEventValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	deadline := testNow.Add(time.Hour)

	tests := []struct {
		name string
		req  model.CreateEventRequest
	}{
		{"missing name", model.CreateEventRequest{Name: "  ", RegistrationDeadline: deadline}},
		{"bad team size", model.CreateEventRequest{Name: "x", RegistrationDeadline: deadline, TeamSize: "trio"}},
		{"bad status", model.CreateEventRequest{Name: "x", RegistrationDeadline: deadline, Status: "live"}},
		{"zero capacity", model.CreateEventRequest{Name: "x", RegistrationDeadline: deadline, MaxParticipants: intPtr(0)}},
		{"huge capacity", model.CreateEventRequest{Name: "x", RegistrationDeadline: deadline, MaxParticipants: intPtr(100_001)}},
		{"missing deadline", model.CreateEventRequest{Name: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateEvent(ctx, tt.req); err == nil {
				t.Error("CreateEvent() error = nil, want validation error")
			}
		})
	}

	e, err := svc.CreateEvent(ctx, model.CreateEventRequest{Name: " Talk ", RegistrationDeadline: deadline})
	if err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
	if e.Name != "Talk" || e.TeamSize != model.TeamSizeSolo || e.Status != model.EventDraft || e.CurrentParticipants != 0 {
		t.Errorf("defaults not applied: %+v", e)
	}
}

func TestRegisterCapacityNPlusOne(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	const n = 5
	e := createEvent(t, svc, model.TeamSizeSolo, intPtr(n))

	for i := 0; i < n; i++ {
		if _, err := svc.Register(ctx, e.ID, soloRequest(fmt.Sprintf("u%d", i), fmt.Sprintf("p%d", i))); err != nil {
			t.Fatalf("Register() #%d error = %v", i+1, err)
		}
	}
	_, err := svc.Register(ctx, e.ID, soloRequest("late", "late"))
	if !errors.Is(err, repository.ErrCapacityExceeded) {
		t.Fatalf("Register() #%d error = %v, want ErrCapacityExceeded", n+1, err)
	}

	got, _ := svc.GetEvent(ctx, e.ID)
	if got.CurrentParticipants != n {
		t.Errorf("CurrentParticipants = %d, want %d", got.CurrentParticipants, n)
	}
}

func TestRegisterPairDoesNotFitLastSlot(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	e := createEvent(t, svc, model.TeamSizeTwo, intPtr(10))
	store.events[e.ID].CurrentParticipants = 9

	_, err := svc.Register(ctx, e.ID, teamRequest("Duo", 2))
	if !errors.Is(err, repository.ErrCapacityExceeded) {
		t.Fatalf("Register() error = %v, want ErrCapacityExceeded", err)
	}
	if store.bookCalls != 0 {
		t.Errorf("Book called %d times, want 0", store.bookCalls)
	}
}

func TestRegisterUnderfilledPairWritesNothing(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	e := createEvent(t, svc, model.TeamSizeTwo, intPtr(10))

	requests := []model.RegisterRequest{
		teamRequest("Solo", 1),
		{TeamName: "Half", Members: []model.MemberDetails{
			{Name: "A", Email: "a@x.com"}, {Name: "B"},
		}},
		{TeamName: "Nameless", Members: []model.MemberDetails{
			{Name: "A", Email: "a@x.com"}, {Email: "b@x.com"},
		}},
	}
	for _, req := range requests {
		_, err := svc.Register(ctx, e.ID, req)
		var verr *registration.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("Register(%s) error = %v, want *ValidationError", req.TeamName, err)
		}
	}
	if store.bookCalls != 0 || len(store.regs) != 0 {
		t.Errorf("writes happened: bookCalls=%d rows=%d", store.bookCalls, len(store.regs))
	}
}

func TestRegisterIdempotence(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	e := createEvent(t, svc, model.TeamSizeSolo, nil)

	if _, err := svc.Register(ctx, e.ID, soloRequest("u1", "alice")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.Register(ctx, e.ID, soloRequest("u1", "alice")); !errors.Is(err, repository.ErrAlreadyRegistered) {
			t.Fatalf("repeat Register() error = %v, want ErrAlreadyRegistered", err)
		}
	}
	if len(store.regs) != 1 {
		t.Errorf("rows = %d, want 1", len(store.regs))
	}

	// Anonymous registrations skip the check.
	for i := 0; i < 2; i++ {
		if _, err := svc.Register(ctx, e.ID, soloRequest("", "guest")); err != nil {
			t.Fatalf("anonymous Register() error = %v", err)
		}
	}
}

func TestRegisterDeadlineBoundary(t *testing.T) {
	svc, _, now := newTestService(t)
	ctx := context.Background()
	e := createEvent(t, svc, model.TeamSizeSolo, nil)

	*now = e.RegistrationDeadline
	if _, err := svc.Register(ctx, e.ID, soloRequest("u1", "a")); !errors.Is(err, repository.ErrDeadlinePassed) {
		t.Fatalf("Register() at deadline error = %v, want ErrDeadlinePassed", err)
	}

	*now = e.RegistrationDeadline.Add(-time.Millisecond)
	reg, err := svc.Register(ctx, e.ID, soloRequest("u1", "a"))
	if err != nil {
		t.Fatalf("Register() before deadline error = %v", err)
	}
	if !reg.RegisteredAt.Equal(*now) || reg.Status != model.StatusRegistered {
		t.Errorf("registration = %+v", reg)
	}
}

func TestRegisterRereadsLiveEvent(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	e := createEvent(t, svc, model.TeamSizeSolo, intPtr(3))

	// Another writer fills the event after the caller loaded it.
	store.events[e.ID].CurrentParticipants = 3
	if _, err := svc.Register(ctx, e.ID, soloRequest("", "a")); !errors.Is(err, repository.ErrCapacityExceeded) {
		t.Fatalf("Register() error = %v, want ErrCapacityExceeded", err)
	}

	store.events[e.ID].CurrentParticipants = 0
	store.events[e.ID].Status = model.EventCancelled
	if _, err := svc.Register(ctx, e.ID, soloRequest("", "a")); !errors.Is(err, repository.ErrEventNotOpen) {
		t.Fatalf("Register() error = %v, want ErrEventNotOpen", err)
	}
}

func TestRegisterStoreWriteError(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	e := createEvent(t, svc, model.TeamSizeSolo, nil)
	store.bookErr = errors.New("connection reset")

	_, err := svc.Register(ctx, e.ID, soloRequest("", "a"))
	var serr *StoreWriteError
	if !errors.As(err, &serr) {
		t.Fatalf("Register() error = %v, want *StoreWriteError", err)
	}
	if serr.Error() != "book registration: connection reset" {
		t.Errorf("Error() = %q", serr.Error())
	}
	if store.bookCalls != 1 {
		t.Errorf("Book called %d times, want exactly 1 (no retry)", store.bookCalls)
	}
}

func TestRegisterStoreReadError(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	e := createEvent(t, svc, model.TeamSizeSolo, nil)

	store.existsErr = errors.New("connection refused")
	_, err := svc.Register(ctx, e.ID, soloRequest("u1", "a"))
	var rerr *StoreReadError
	if !errors.As(err, &rerr) || rerr.Op != "check existing registration" {
		t.Fatalf("Register() error = %v, want *StoreReadError from the existence check", err)
	}
	var werr *StoreWriteError
	if errors.As(err, &werr) {
		t.Error("failed read reported as a write failure")
	}

	store.existsErr = nil
	store.getErr = errors.New("connection refused")
	_, err = svc.Register(ctx, e.ID, soloRequest("u1", "a"))
	if !errors.As(err, &rerr) || rerr.Error() != "get event: connection refused" {
		t.Fatalf("Register() error = %v, want *StoreReadError from the event read", err)
	}
	if store.bookCalls != 0 {
		t.Errorf("Book called %d times after a failed read", store.bookCalls)
	}
}

func TestRegisterTeamCountsMembers(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	e := createEvent(t, svc, model.TeamSizeFour, intPtr(10))

	reg, err := svc.Register(ctx, e.ID, teamRequest("Squad", 6))
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if reg.TeamName == nil || *reg.TeamName != "Squad" || len(reg.TeamMembers) != 6 {
		t.Errorf("registration = %+v", reg)
	}
	if got := store.events[e.ID].CurrentParticipants; got != 6 {
		t.Errorf("CurrentParticipants = %d, want 6", got)
	}
	// 4 slots remain; a team of 5 is rejected rather than partially admitted.
	if _, err := svc.Register(ctx, e.ID, teamRequest("Late", 5)); !errors.Is(err, repository.ErrCapacityExceeded) {
		t.Errorf("Register() error = %v, want ErrCapacityExceeded", err)
	}
}

func TestRegisterUnknownEvent(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Register(context.Background(), "nope", soloRequest("", "a")); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Register() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateRegistrationStatus(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	e := createEvent(t, svc, model.TeamSizeTwo, nil)
	other := createEvent(t, svc, model.TeamSizeTwo, nil)

	reg, err := svc.Register(ctx, e.ID, teamRequest("Duo", 2))
	if err != nil {
		t.Fatal(err)
	}

	ros, err := svc.UpdateRegistrationStatus(ctx, e.ID, reg.ID, model.StatusWaitlisted)
	if err != nil {
		t.Fatalf("UpdateRegistrationStatus() error = %v", err)
	}
	for _, entry := range ros.Entries() {
		if entry.Status != model.StatusWaitlisted {
			t.Errorf("entry %d status = %s, want waitlisted", entry.MemberIndex, entry.Status)
		}
	}
	if store.regs[0].Status != model.StatusWaitlisted {
		t.Errorf("stored status = %s", store.regs[0].Status)
	}

	if _, err := svc.UpdateRegistrationStatus(ctx, other.ID, reg.ID, model.StatusAttended); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("cross-event update error = %v, want ErrNotFound", err)
	}
	if _, err := svc.UpdateRegistrationStatus(ctx, e.ID, reg.ID, "gone"); err == nil {
		t.Error("invalid status accepted")
	}
}

func TestRosterStats(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	e := createEvent(t, svc, model.TeamSizeSolo, nil)
	for i := 0; i < 4; i++ {
		if _, err := svc.Register(ctx, e.ID, soloRequest("", fmt.Sprintf("p%d", i))); err != nil {
			t.Fatal(err)
		}
	}
	regs, _ := svc.ListRegistrations(ctx, e.ID)
	if _, err := svc.UpdateRegistrationStatus(ctx, e.ID, regs[0].ID, model.StatusAttended); err != nil {
		t.Fatal(err)
	}

	ros, err := svc.Roster(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	s := ros.ComputeStats()
	if s.Total != 4 || s.Attended != 1 || s.Registered != 3 {
		t.Errorf("ComputeStats() = %+v", s)
	}
	if s.Total != s.Registered+s.Waitlisted+s.Cancelled+s.Attended {
		t.Error("total does not equal the sum of status counts")
	}
}
