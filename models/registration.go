package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// Distance is the race length a registration is entered for.
type Distance string

const (
	Distance5K  Distance = "5K"
	Distance10K Distance = "10K"
	Distance21K Distance = "21K"
	Distance32K Distance = "32K"
	Distance42K Distance = "42K"
)

// StandardDistances is the default distance set of an event.
var StandardDistances = []Distance{Distance5K, Distance10K, Distance21K, Distance32K, Distance42K}

// ParseDistance accepts the canonical codes plus the HALF/FULL aliases.
func ParseDistance(s string) (Distance, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "5K":
		return Distance5K, nil
	case "10K":
		return Distance10K, nil
	case "21K", "HALF", "HALF_MARATHON":
		return Distance21K, nil
	case "32K":
		return Distance32K, nil
	case "42K", "FULL", "MARATHON":
		return Distance42K, nil
	}
	return "", invalid("distance", "unknown distance "+strconv.Quote(s))
}

func (d Distance) valid() bool {
	for _, s := range StandardDistances {
		if d == s {
			return true
		}
	}
	return false
}

// ShirtSize is the event shirt size chosen at registration.
type ShirtSize string

const (
	SizeXS  ShirtSize = "XS"
	SizeS   ShirtSize = "S"
	SizeM   ShirtSize = "M"
	SizeL   ShirtSize = "L"
	SizeXL  ShirtSize = "XL"
	SizeXXL ShirtSize = "XXL"
)

// ParseShirtSize normalizes and validates a size code.
func ParseShirtSize(s string) (ShirtSize, error) {
	size := ShirtSize(strings.ToUpper(strings.TrimSpace(s)))
	switch size {
	case SizeXS, SizeS, SizeM, SizeL, SizeXL, SizeXXL:
		return size, nil
	}
	return "", invalid("shirtSize", "unknown size "+strconv.Quote(s))
}

// RegistrationState is the payment/confirmation state of a registration.
type RegistrationState string

const (
	StatePending   RegistrationState = "PENDING"
	StatePaid      RegistrationState = "PAID"
	StateConfirmed RegistrationState = "CONFIRMED"
	StateCancelled RegistrationState = "CANCELLED"
)

func (s RegistrationState) String() string { return string(s) }

// ParseRegistrationState validates a state name.
func ParseRegistrationState(s string) (RegistrationState, error) {
	st := RegistrationState(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatePending, StatePaid, StateConfirmed, StateCancelled:
		return st, nil
	}
	return "", invalid("state", "unknown registration state "+strconv.Quote(s))
}

// Registration binds one runner to one event under a bib, category, distance and shirt size.
// It refers to its runner and event by id only.
type Registration struct {
	bun.BaseModel `bun:"table:registrations,alias:rg"`

	ID         int64             `bun:"id,pk" json:"id"`
	EventID    int64             `bun:"event_id,notnull" json:"eventID"`
	RunnerID   string            `bun:"runner_id,notnull" json:"runnerID"`
	CategoryID int64             `bun:"category_id,notnull" json:"categoryID"`
	Distance   Distance          `bun:"distance,notnull" json:"distance"`
	ShirtSize  ShirtSize         `bun:"shirt_size,notnull" json:"shirtSize"`
	Bib        int               `bun:"bib,notnull" json:"bib"`
	State      RegistrationState `bun:"state,notnull" json:"state"`
	CreatedAt  time.Time         `bun:"created_at,notnull" json:"createdAt"`

	Result *TimingResult `bun:"-" json:"result,omitempty"`
}

// NewRegistration builds a PENDING registration after checking it against the runner, event and category.
func NewRegistration(id int64, runner *Runner, event *Event, category *Category, distance Distance, size ShirtSize, bib int) (*Registration, error) {
	if id <= 0 {
		return nil, invalid("id", "must be > 0")
	}
	if runner == nil {
		return nil, invalid("runner", "required")
	}
	if event == nil {
		return nil, invalid("event", "required")
	}
	if category == nil {
		return nil, invalid("category", "required")
	}
	if distance == "" || !distance.valid() {
		return nil, invalid("distance", "required")
	}
	if _, err := ParseShirtSize(string(size)); err != nil {
		return nil, err
	}
	if bib <= 0 {
		return nil, invalid("bib", "must be > 0")
	}
	if _, ok := event.Category(category.ID); !ok {
		return nil, invalid("category", "not offered by event "+event.Name)
	}
	if !event.AllowsDistance(distance) {
		return nil, invalid("distance", string(distance)+" not offered by event "+event.Name)
	}
	if age, ok := runner.AgeAt(event.Date); ok && !category.Accepts(age) {
		return nil, invalid("category", "runner age "+strconv.Itoa(age)+" outside "+category.Name)
	}

	return &Registration{
		ID:         id,
		EventID:    event.ID,
		RunnerID:   runner.ID,
		CategoryID: category.ID,
		Distance:   distance,
		ShirtSize:  size,
		Bib:        bib,
		State:      StatePending,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// ConfirmPayment moves PENDING to PAID. Calling it again on a PAID registration is a no-op.
func (r *Registration) ConfirmPayment() error {
	switch r.State {
	case StatePending:
		r.State = StatePaid
		return nil
	case StatePaid:
		return nil
	}
	return notAllowed("confirm payment", r.State)
}

// ConfirmRegistration moves PAID to CONFIRMED.
func (r *Registration) ConfirmRegistration() error {
	if r.State != StatePaid {
		return notAllowed("confirm registration", r.State)
	}
	r.State = StateConfirmed
	return nil
}

// Cancel moves PENDING or PAID to CANCELLED.
func (r *Registration) Cancel() error {
	if r.State != StatePending && r.State != StatePaid {
		return notAllowed("cancel", r.State)
	}
	r.State = StateCancelled
	return nil
}

// AttachTimingResult links t to this registration, replacing any earlier result.
func (r *Registration) AttachTimingResult(t *TimingResult) error {
	if t == nil {
		return invalid("result", "required")
	}
	if r.State != StateConfirmed {
		return notAllowed("attach timing result", r.State)
	}
	t.RegistrationID = r.ID
	r.Result = t
	return nil
}

// Clone returns a deep copy safe to hand outside the owning event.
func (r *Registration) Clone() Registration {
	c := *r
	if r.Result != nil {
		res := *r.Result
		c.Result = &res
	}
	return c
}
