// Package registration holds the pure, store-independent parts of event
// registration: roster form construction, payload validation and deadline
// urgency.
package registration

import "github.com/Shivanand-hulikatti/campus-events/internal/model"

// Form is an editable roster of member-detail records sized by an event's
// team policy.
type Form struct {
	teamSize model.TeamSize
	members  []model.MemberDetails
}

// NewForm returns a roster with the policy's minimum number of empty members.
// Unknown policies are treated as solo.
func NewForm(teamSize model.TeamSize) *Form {
	if !teamSize.Valid() {
		teamSize = model.TeamSizeSolo
	}
	min, _ := teamSize.MemberLimits()
	return &Form{
		teamSize: teamSize,
		members:  make([]model.MemberDetails, min),
	}
}

// TeamSize returns the policy the form was built for.
func (f *Form) TeamSize() model.TeamSize { return f.teamSize }

// Limits returns the minimum and maximum roster length.
func (f *Form) Limits() (min, max int) { return f.teamSize.MemberLimits() }

// Len returns the current roster length.
func (f *Form) Len() int { return len(f.members) }

// Members returns a copy of the roster.
func (f *Form) Members() []model.MemberDetails {
	out := make([]model.MemberDetails, len(f.members))
	copy(out, f.members)
	return out
}

// SetMember replaces the record at index i.
func (f *Form) SetMember(i int, m model.MemberDetails) bool {
	if i < 0 || i >= len(f.members) {
		return false
	}
	f.members[i] = m
	return true
}

// AddMember appends an empty record. It is a no-op once the roster is at the
// policy maximum.
func (f *Form) AddMember() bool {
	_, max := f.Limits()
	if len(f.members) >= max {
		return false
	}
	f.members = append(f.members, model.MemberDetails{})
	return true
}

// RemoveMember drops the record at index i. It is a no-op at the policy
// minimum or when i is out of range.
func (f *Form) RemoveMember(i int) bool {
	min, _ := f.Limits()
	if len(f.members) <= min || i < 0 || i >= len(f.members) {
		return false
	}
	f.members = append(f.members[:i], f.members[i+1:]...)
	return true
}
