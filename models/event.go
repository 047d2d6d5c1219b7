package models

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// EventState is the lifecycle state of an event. Transitions only move one step forward.
type EventState string

const (
	EventPlanned  EventState = "PLANNED"
	EventOpen     EventState = "OPEN"
	EventClosed   EventState = "CLOSED"
	EventFinished EventState = "FINISHED"
)

var eventOrder = []EventState{EventPlanned, EventOpen, EventClosed, EventFinished}

func (s EventState) String() string { return string(s) }

// ParseEventState validates a state name.
func ParseEventState(s string) (EventState, error) {
	st := EventState(strings.ToUpper(strings.TrimSpace(s)))
	if slices.Contains(eventOrder, st) {
		return st, nil
	}
	return "", invalid("state", "unknown event state "+strconv.Quote(s))
}

func (s EventState) next() EventState {
	i := slices.Index(eventOrder, s)
	if i < 0 || i == len(eventOrder)-1 {
		return ""
	}
	return eventOrder[i+1]
}

// RegistrationCounts summarizes an event's registrations by state.
type RegistrationCounts struct {
	Total         int `json:"total"`
	Pending       int `json:"pending"`
	Paid          int `json:"paid"`
	Confirmed     int `json:"confirmed"`
	Cancelled     int `json:"cancelled"`
	PaidOrBetter  int `json:"paidOrConfirmed"`
	WithTimeCount int `json:"withTime"`
}

// Event is the aggregate root owning its categories and registrations.
type Event struct {
	bun.BaseModel `bun:"table:events,alias:ev"`

	ID          int64      `bun:"id,pk" json:"id"`
	Name        string     `bun:"name,notnull" json:"name"`
	Date        time.Time  `bun:"date,notnull" json:"date"`
	Description string     `bun:"description" json:"description,omitempty"`
	State       EventState `bun:"state,notnull" json:"state"`
	Distances   []Distance `bun:"distances,type:jsonb" json:"distances"`

	Categories    []*Category     `bun:"-" json:"categories"`
	Registrations []*Registration `bun:"-" json:"-"`
}

// NewEvent returns a PLANNED event. An empty distances list allows every standard distance.
func NewEvent(id int64, name string, date time.Time, description string, distances []Distance) (*Event, error) {
	name = strings.TrimSpace(name)
	if id <= 0 {
		return nil, invalid("id", "must be > 0")
	}
	if name == "" {
		return nil, invalid("name", "required")
	}
	if date.IsZero() {
		return nil, invalid("date", "required")
	}
	ds := make([]Distance, 0, len(distances))
	for _, d := range distances {
		if !d.valid() {
			return nil, invalid("distances", "unknown distance "+strconv.Quote(string(d)))
		}
		if !slices.Contains(ds, d) {
			ds = append(ds, d)
		}
	}
	return &Event{
		ID:          id,
		Name:        name,
		Date:        date,
		Description: strings.TrimSpace(description),
		State:       EventPlanned,
		Distances:   ds,
	}, nil
}

func (e *Event) ensureWritable(op string) error {
	if e.State == EventFinished {
		return notAllowed(op, e.State)
	}
	return nil
}

// AllowsDistance reports whether d can be run at this event.
func (e *Event) AllowsDistance(d Distance) bool {
	if len(e.Distances) == 0 {
		return d.valid()
	}
	return slices.Contains(e.Distances, d)
}

// Category finds one of the event's categories by id.
func (e *Event) Category(id int64) (*Category, bool) {
	for _, c := range e.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// AddCategory attaches c unless a category with the same id is already attached.
func (e *Event) AddCategory(c *Category) (bool, error) {
	if c == nil {
		return false, invalid("category", "required")
	}
	if err := e.ensureWritable("add category"); err != nil {
		return false, err
	}
	if _, ok := e.Category(c.ID); ok {
		return false, nil
	}
	e.Categories = append(e.Categories, c)
	return true, nil
}

// SetState advances the lifecycle by exactly one step.
func (e *Event) SetState(next EventState) error {
	if next == "" || e.State.next() != next {
		return &StateError{Op: "set state " + string(next), State: e.State.String()}
	}
	e.State = next
	return nil
}

// HasBibNumber reports whether any registration, cancelled ones included, holds bib.
func (e *Event) HasBibNumber(bib int) bool {
	for _, r := range e.Registrations {
		if r.Bib == bib {
			return true
		}
	}
	return false
}

// AddRegistration appends reg and records it on runner. Nothing changes unless every check passes.
func (e *Event) AddRegistration(reg *Registration, runner *Runner) error {
	if reg == nil {
		return invalid("registration", "required")
	}
	if runner == nil {
		return invalid("runner", "required")
	}
	if reg.EventID != e.ID {
		return invalid("registration", "references event "+strconv.FormatInt(reg.EventID, 10))
	}
	if e.State != EventOpen {
		return notAllowed("register", e.State)
	}
	if e.HasBibNumber(reg.Bib) {
		return &ConflictError{What: "bib", Value: strconv.Itoa(reg.Bib)}
	}
	if err := runner.checkRegister(reg); err != nil {
		return err
	}

	e.Registrations = append(e.Registrations, reg)
	runner.registrations = append(runner.registrations, reg)
	return nil
}

// RemoveRegistration drops the registration with id from the event and from its runner.
func (e *Event) RemoveRegistration(id int64, dir RunnerDirectory) (bool, error) {
	if err := e.ensureWritable("remove registration"); err != nil {
		return false, err
	}
	for i, r := range e.Registrations {
		if r.ID != id {
			continue
		}
		e.Registrations = append(e.Registrations[:i], e.Registrations[i+1:]...)
		if dir != nil {
			if runner, err := dir.LookupRunner(r.RunnerID); err == nil {
				runner.Unregister(id)
			}
		}
		return true, nil
	}
	return false, nil
}

// Registration finds a registration by id.
func (e *Event) Registration(id int64) (*Registration, error) {
	for _, r := range e.Registrations {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, &NotFoundError{Kind: "registration", ID: strconv.FormatInt(id, 10)}
}

func (e *Event) transition(id int64, op string, fn func(*Registration) error) (*Registration, error) {
	if err := e.ensureWritable(op); err != nil {
		return nil, err
	}
	r, err := e.Registration(id)
	if err != nil {
		return nil, err
	}
	if err := fn(r); err != nil {
		return nil, err
	}
	return r, nil
}

// ConfirmPayment runs the payment transition on registration id.
func (e *Event) ConfirmPayment(id int64) (*Registration, error) {
	return e.transition(id, "confirm payment", (*Registration).ConfirmPayment)
}

// ConfirmRegistration runs the confirmation transition on registration id.
func (e *Event) ConfirmRegistration(id int64) (*Registration, error) {
	return e.transition(id, "confirm registration", (*Registration).ConfirmRegistration)
}

// Cancel runs the cancel transition on registration id.
func (e *Event) Cancel(id int64) (*Registration, error) {
	return e.transition(id, "cancel", (*Registration).Cancel)
}

// RecordTime attaches an unranked timing result to a confirmed registration.
// Closed and finished events do not accept timing input.
func (e *Event) RecordTime(id int64, elapsed float64) (*Registration, error) {
	r, err := e.Registration(id)
	if err != nil {
		return nil, err
	}
	if e.State == EventClosed || e.State == EventFinished {
		return nil, notAllowed("record time", e.State)
	}
	res, err := NewTimingResult(elapsed)
	if err != nil {
		return nil, err
	}
	if err := r.AttachTimingResult(res); err != nil {
		return nil, err
	}
	return r, nil
}

// RegistrationsByState returns copies of the registrations currently in state.
func (e *Event) RegistrationsByState(state RegistrationState) []Registration {
	out := []Registration{}
	for _, r := range e.Registrations {
		if r.State == state {
			out = append(out, r.Clone())
		}
	}
	return out
}

// Counts tallies registrations per state.
func (e *Event) Counts() RegistrationCounts {
	var c RegistrationCounts
	for _, r := range e.Registrations {
		c.Total++
		switch r.State {
		case StatePending:
			c.Pending++
		case StatePaid:
			c.Paid++
			c.PaidOrBetter++
		case StateConfirmed:
			c.Confirmed++
			c.PaidOrBetter++
		case StateCancelled:
			c.Cancelled++
		}
		if r.Result != nil {
			c.WithTimeCount++
		}
	}
	return c
}

// Clone deep-copies the event so readers never observe later writes.
func (e *Event) Clone() *Event {
	c := *e
	c.Distances = slices.Clone(e.Distances)
	c.Categories = make([]*Category, len(e.Categories))
	for i, cat := range e.Categories {
		cc := *cat
		c.Categories[i] = &cc
	}
	c.Registrations = make([]*Registration, len(e.Registrations))
	for i, r := range e.Registrations {
		rc := r.Clone()
		c.Registrations[i] = &rc
	}
	return &c
}

// Load attaches previously persisted registrations without lifecycle gating.
// Identity, bib uniqueness and the one-registration-per-runner rule still apply.
func (e *Event) Load(regs []*Registration, dir RunnerDirectory) error {
	seen := map[int]bool{}
	for _, r := range e.Registrations {
		seen[r.Bib] = true
	}
	batch := map[string]bool{}
	runners := make([]*Runner, len(regs))
	for i, r := range regs {
		if r.EventID != e.ID {
			return invalid("registration", "references event "+strconv.FormatInt(r.EventID, 10))
		}
		if seen[r.Bib] {
			return &ConflictError{What: "bib", Value: strconv.Itoa(r.Bib)}
		}
		seen[r.Bib] = true
		runner, err := dir.LookupRunner(r.RunnerID)
		if err != nil {
			return err
		}
		if err := runner.checkRegister(r); err != nil {
			return err
		}
		if batch[runner.ID] {
			return &ConflictError{What: "runner registration for event", Value: strconv.FormatInt(e.ID, 10)}
		}
		batch[runner.ID] = true
		runners[i] = runner
	}
	for i, r := range regs {
		e.Registrations = append(e.Registrations, r)
		runners[i].registrations = append(runners[i].registrations, r)
	}
	return nil
}
