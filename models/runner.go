package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// RunnerDirectory resolves runners by id.
type RunnerDirectory interface {
	LookupRunner(id string) (*Runner, error)
}

// RegistrationRef is a runner's pointer to one of its registrations.
type RegistrationRef struct {
	ID      int64 `json:"id"`
	EventID int64 `json:"eventID"`
}

// Runner is a person who can register for events. ID is a stable identity such as a national id.
type Runner struct {
	bun.BaseModel `bun:"table:runners,alias:ru"`

	ID               string    `bun:"id,pk" json:"id"`
	Name             string    `bun:"name,notnull" json:"name"`
	Phone            string    `bun:"phone" json:"phone,omitempty"`
	Email            string    `bun:"email" json:"email,omitempty"`
	BirthDate        time.Time `bun:"birth_date,nullzero" json:"birthDate,omitzero"`
	Sex              string    `bun:"sex" json:"sex,omitempty"`
	BloodType        string    `bun:"blood_type" json:"bloodType,omitempty"`
	EmergencyContact string    `bun:"emergency_contact" json:"emergencyContact,omitempty"`

	registrations []*Registration
}

// NewRunner validates identity fields.
func NewRunner(id, name string) (*Runner, error) {
	id, name = strings.TrimSpace(id), strings.TrimSpace(name)
	if id == "" {
		return nil, invalid("id", "required")
	}
	if name == "" {
		return nil, invalid("name", "required")
	}
	return &Runner{ID: id, Name: name}, nil
}

// AgeAt returns the runner's age in whole years on day. ok is false without a birth date.
func (r *Runner) AgeAt(day time.Time) (age int, ok bool) {
	if r.BirthDate.IsZero() || day.IsZero() {
		return 0, false
	}
	age = day.Year() - r.BirthDate.Year()
	bm, bd := r.BirthDate.Month(), r.BirthDate.Day()
	if day.Month() < bm || (day.Month() == bm && day.Day() < bd) {
		age--
	}
	return age, true
}

// checkRegister validates reg without mutating the runner.
func (r *Runner) checkRegister(reg *Registration) error {
	if reg == nil {
		return invalid("registration", "required")
	}
	if reg.RunnerID != r.ID {
		return invalid("registration", "belongs to runner "+reg.RunnerID)
	}
	for _, existing := range r.registrations {
		if existing.EventID == reg.EventID {
			return &ConflictError{What: "runner registration for event", Value: strconv.FormatInt(reg.EventID, 10)}
		}
	}
	return nil
}

// Register appends reg, rejecting a second registration for the same event.
func (r *Runner) Register(reg *Registration) error {
	if err := r.checkRegister(reg); err != nil {
		return err
	}
	r.registrations = append(r.registrations, reg)
	return nil
}

// Unregister drops the registration with id and reports whether it was present.
func (r *Runner) Unregister(id int64) bool {
	for i, reg := range r.registrations {
		if reg.ID == id {
			r.registrations = append(r.registrations[:i], r.registrations[i+1:]...)
			return true
		}
	}
	return false
}

// Refs lists the runner's registrations as id pairs.
func (r *Runner) Refs() []RegistrationRef {
	out := make([]RegistrationRef, len(r.registrations))
	for i, reg := range r.registrations {
		out[i] = RegistrationRef{ID: reg.ID, EventID: reg.EventID}
	}
	return out
}

// Registrations returns copies of every registration.
func (r *Runner) Registrations() []Registration {
	out := make([]Registration, len(r.registrations))
	for i, reg := range r.registrations {
		out[i] = reg.Clone()
	}
	return out
}

// RegistrationsByState returns copies of the registrations currently in state.
func (r *Runner) RegistrationsByState(state RegistrationState) []Registration {
	out := []Registration{}
	for _, reg := range r.registrations {
		if reg.State == state {
			out = append(out, reg.Clone())
		}
	}
	return out
}

// Clone copies the profile without the registration list.
func (r *Runner) Clone() *Runner {
	c := *r
	c.registrations = nil
	return &c
}
