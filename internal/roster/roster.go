// Package roster turns an event's registration rows into the views an
// organizer works with: status filters, team buckets, counts and CSV.
package roster

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
)

// NoTeam buckets entries that carry no team name.
const NoTeam = "No Team"

// csvMemberGroups is how many non-leader members a team CSV row carries.
const csvMemberGroups = 3

// StatusWriter persists a registration status change.
type StatusWriter interface {
	UpdateStatus(ctx context.Context, id string, status model.RegistrationStatus) error
}

// Entry is one participant line of the roster. Members of a team share the
// backing registration and therefore its ID and status.
type Entry struct {
	RegistrationID string                   `json:"registration_id"`
	TeamName       string                   `json:"team_name,omitempty"`
	MemberIndex    int                      `json:"member_index"`
	IsLeader       bool                     `json:"is_leader"`
	Member         model.MemberDetails      `json:"member"`
	Status         model.RegistrationStatus `json:"status"`
}

// TeamGroup is the set of entries sharing a team name.
type TeamGroup struct {
	Name    string  `json:"name"`
	Entries []Entry `json:"entries"`
}

// Stats counts registrations per status.
type Stats struct {
	Total      int `json:"total"`
	Registered int `json:"registered"`
	Waitlisted int `json:"waitlisted"`
	Cancelled  int `json:"cancelled"`
	Attended   int `json:"attended"`
}

// Roster is an in-memory snapshot of an event's registrations.
type Roster struct {
	teamSize model.TeamSize
	regs     []model.Registration
	entries  []Entry
	filter   model.RegistrationStatus
}

// New builds a roster for an event with the given team policy.
func New(teamSize model.TeamSize, regs []model.Registration) *Roster {
	r := &Roster{
		teamSize: teamSize,
		regs:     append([]model.Registration(nil), regs...),
	}
	for _, reg := range r.regs {
		teamName := ""
		if reg.TeamName != nil {
			teamName = *reg.TeamName
		}
		for i, m := range reg.Members() {
			r.entries = append(r.entries, Entry{
				RegistrationID: reg.ID,
				TeamName:       teamName,
				MemberIndex:    i,
				IsLeader:       i == 0,
				Member:         m,
				Status:         reg.Status,
			})
		}
	}
	return r
}

// TeamMode reports whether the event registers teams.
func (r *Roster) TeamMode() bool { return r.teamSize.IsTeam() }

// Registrations returns the backing rows.
func (r *Roster) Registrations() []model.Registration {
	return append([]model.Registration(nil), r.regs...)
}

// Entries returns every entry, ignoring the current filter.
func (r *Roster) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// FilterByStatus returns the entries whose status is exactly status.
func (r *Roster) FilterByStatus(status model.RegistrationStatus) []Entry {
	var out []Entry
	for _, e := range r.entries {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out
}

// SetFilter selects the status the current view is restricted to. The empty
// status selects everything.
func (r *Roster) SetFilter(status model.RegistrationStatus) { r.filter = status }

// View returns the entries of the current view.
func (r *Roster) View() []Entry {
	if r.filter == "" {
		return r.Entries()
	}
	return r.FilterByStatus(r.filter)
}

// GroupByTeam buckets the current view by team name in order of first
// appearance.
func (r *Roster) GroupByTeam() []TeamGroup {
	var groups []TeamGroup
	index := make(map[string]int)
	for _, e := range r.View() {
		name := e.TeamName
		if name == "" {
			name = NoTeam
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, TeamGroup{Name: name})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}
	return groups
}

// ComputeStats counts registrations per status. Total is the sum of the four
// status counts.
func (r *Roster) ComputeStats() Stats {
	var s Stats
	for _, reg := range r.regs {
		switch reg.Status {
		case model.StatusRegistered:
			s.Registered++
		case model.StatusWaitlisted:
			s.Waitlisted++
		case model.StatusCancelled:
			s.Cancelled++
		case model.StatusAttended:
			s.Attended++
		default:
			continue
		}
		s.Total++
	}
	return s
}

// UpdateStatus writes status for registration id through w and, once the
// write succeeds, applies it to the backing row and every entry derived from
// it.
func (r *Roster) UpdateStatus(ctx context.Context, w StatusWriter, id string, status model.RegistrationStatus) error {
	found := false
	for _, reg := range r.regs {
		if reg.ID == id {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("registration %s: %w", id, repository.ErrNotFound)
	}

	if err := w.UpdateStatus(ctx, id, status); err != nil {
		return err
	}

	for i := range r.regs {
		if r.regs[i].ID == id {
			r.regs[i].Status = status
		}
	}
	for i := range r.entries {
		if r.entries[i].RegistrationID == id {
			r.entries[i].Status = status
		}
	}
	return nil
}

// ExportCSV writes the current view as CSV. Solo events get one row per
// participant; team events one row per team with the leader's columns and up
// to three further members. Data fields are always double-quoted.
func (r *Roster) ExportCSV(w io.Writer) error {
	var lines []string
	if r.TeamMode() {
		lines = r.teamCSV()
	} else {
		lines = r.soloCSV()
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n"))
	return err
}

var memberColumns = []string{"Name", "Email", "College", "Branch", "Mobile No"}

func memberFields(m model.MemberDetails) []string {
	return []string{m.Name, m.Email, m.College, m.Branch, m.Phone}
}

func (r *Roster) soloCSV() []string {
	header := append(append([]string(nil), memberColumns...), "Status")
	lines := []string{strings.Join(header, ",")}
	for _, e := range r.View() {
		lines = append(lines, quoteRow(append(memberFields(e.Member), string(e.Status))))
	}
	return lines
}

func (r *Roster) teamCSV() []string {
	header := []string{"Team Name"}
	for _, c := range memberColumns {
		header = append(header, "Leader "+c)
	}
	for g := 1; g <= csvMemberGroups; g++ {
		for _, c := range memberColumns {
			header = append(header, fmt.Sprintf("Member %d %s", g, c))
		}
	}
	header = append(header, "Status")
	lines := []string{strings.Join(header, ",")}

	// Entries of one registration are contiguous and in roster order.
	view := r.View()
	for start := 0; start < len(view); {
		end := start + 1
		for end < len(view) && view[end].RegistrationID == view[start].RegistrationID {
			end++
		}
		team := view[start:end]

		row := []string{team[0].TeamName}
		for g := 0; g <= csvMemberGroups; g++ {
			if g < len(team) {
				row = append(row, memberFields(team[g].Member)...)
			} else {
				row = append(row, make([]string, len(memberColumns))...)
			}
		}
		row = append(row, string(team[0].Status))
		lines = append(lines, quoteRow(row))
		start = end
	}
	return lines
}

func quoteRow(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}
