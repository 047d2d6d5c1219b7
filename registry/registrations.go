package registry

import (
	"slices"

	"go.uber.org/zap"

	"github.com/padraicbc/racereg/models"
)

// RegistrationInput is what a caller supplies to register a runner for an event.
type RegistrationInput struct {
	RunnerID   string           `json:"runnerID"`
	CategoryID int64            `json:"categoryID"`
	Distance   models.Distance  `json:"distance"`
	ShirtSize  models.ShirtSize `json:"shirtSize"`
	Bib        int              `json:"bib"`
}

// Register creates a PENDING registration. The bib check and the append happen under
// the event's write lock, so two racing callers can never both claim a bib.
func (s *Store) Register(eventID int64, in RegistrationInput) (models.Registration, error) {
	sl, err := s.slot(eventID)
	if err != nil {
		return models.Registration{}, err
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	s.runnerMu.Lock()
	defer s.runnerMu.Unlock()

	s.mu.RLock()
	runner, ok := s.runners[in.RunnerID]
	_, catExists := s.categories[in.CategoryID]
	s.mu.RUnlock()
	if !ok {
		return models.Registration{}, &models.NotFoundError{Kind: "runner", ID: in.RunnerID}
	}
	if !catExists {
		return models.Registration{}, notFound("category", in.CategoryID)
	}
	cat, ok := sl.ev.Category(in.CategoryID)
	if !ok {
		return models.Registration{}, &models.ValidationError{Field: "categoryID", Msg: "category not offered by event"}
	}

	reg, err := models.NewRegistration(s.regSeq.Add(1), runner, sl.ev, cat, in.Distance, in.ShirtSize, in.Bib)
	if err != nil {
		return models.Registration{}, err
	}
	if err := sl.ev.AddRegistration(reg, runner); err != nil {
		return models.Registration{}, err
	}
	s.mu.Lock()
	s.regIndex[reg.ID] = eventID
	s.mu.Unlock()

	s.log.Info("registration created",
		zap.Int64("event_id", eventID),
		zap.Int64("registration_id", reg.ID),
		zap.String("runner_id", runner.ID),
		zap.Int("bib", reg.Bib),
	)
	return reg.Clone(), nil
}

// RemoveRegistration drops a registration from its event and runner.
// It reports false when no such registration exists.
func (s *Store) RemoveRegistration(regID int64) (bool, error) {
	sl, err := s.slotFor(regID)
	if models.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	s.runnerMu.Lock()
	defer s.runnerMu.Unlock()

	removed, err := sl.ev.RemoveRegistration(regID, liveRunners{s})
	if err != nil || !removed {
		return removed, err
	}
	s.mu.Lock()
	delete(s.regIndex, regID)
	s.mu.Unlock()

	s.log.Info("registration removed", zap.Int64("event_id", sl.ev.ID), zap.Int64("registration_id", regID))
	return true, nil
}

func (s *Store) transition(regID int64, name string, fn func(*models.Event, int64) (*models.Registration, error)) (models.Registration, error) {
	sl, err := s.slotFor(regID)
	if err != nil {
		return models.Registration{}, err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	reg, err := fn(sl.ev, regID)
	if err != nil {
		return models.Registration{}, err
	}
	s.log.Info(name,
		zap.Int64("event_id", sl.ev.ID),
		zap.Int64("registration_id", regID),
		zap.String("state", reg.State.String()),
	)
	return reg.Clone(), nil
}

// ConfirmPayment marks a registration PAID. Repeating it on a PAID registration is a no-op.
func (s *Store) ConfirmPayment(regID int64) (models.Registration, error) {
	return s.transition(regID, "payment confirmed", (*models.Event).ConfirmPayment)
}

// ConfirmRegistration marks a PAID registration CONFIRMED.
func (s *Store) ConfirmRegistration(regID int64) (models.Registration, error) {
	return s.transition(regID, "registration confirmed", (*models.Event).ConfirmRegistration)
}

// Cancel marks a PENDING or PAID registration CANCELLED. Its bib stays reserved.
func (s *Store) Cancel(regID int64) (models.Registration, error) {
	return s.transition(regID, "registration cancelled", (*models.Event).Cancel)
}

// RecordTime attaches or replaces the elapsed time of a CONFIRMED registration.
func (s *Store) RecordTime(regID int64, elapsed float64) (models.Registration, error) {
	reg, err := s.transition(regID, "time recorded", func(ev *models.Event, id int64) (*models.Registration, error) {
		return ev.RecordTime(id, elapsed)
	})
	if err == nil {
		s.log.Debug("elapsed", zap.Int64("registration_id", regID), zap.Float64("seconds", elapsed))
	}
	return reg, err
}

// Registration returns a copy of one registration.
func (s *Store) Registration(regID int64) (models.Registration, error) {
	sl, err := s.slotFor(regID)
	if err != nil {
		return models.Registration{}, err
	}
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	reg, err := sl.ev.Registration(regID)
	if err != nil {
		return models.Registration{}, err
	}
	return reg.Clone(), nil
}

// HasBibNumber reports whether bib is taken in the event, cancelled registrations included.
func (s *Store) HasBibNumber(eventID int64, bib int) (bool, error) {
	sl, err := s.slot(eventID)
	if err != nil {
		return false, err
	}
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return sl.ev.HasBibNumber(bib), nil
}

// Registrations returns copies of every registration of an event in insertion order.
func (s *Store) Registrations(eventID int64) ([]models.Registration, error) {
	sl, err := s.slot(eventID)
	if err != nil {
		return nil, err
	}
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	out := make([]models.Registration, len(sl.ev.Registrations))
	for i, r := range sl.ev.Registrations {
		out[i] = r.Clone()
	}
	return out, nil
}

// RegistrationsByState returns copies of an event's registrations in state.
func (s *Store) RegistrationsByState(eventID int64, state models.RegistrationState) ([]models.Registration, error) {
	sl, err := s.slot(eventID)
	if err != nil {
		return nil, err
	}
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return sl.ev.RegistrationsByState(state), nil
}

// Counts tallies an event's registrations per state.
func (s *Store) Counts(eventID int64) (models.RegistrationCounts, error) {
	sl, err := s.slot(eventID)
	if err != nil {
		return models.RegistrationCounts{}, err
	}
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return sl.ev.Counts(), nil
}

// RunnerRegistrations returns copies of a runner's registrations across events,
// optionally limited to the given states.
func (s *Store) RunnerRegistrations(runnerID string, states ...models.RegistrationState) ([]models.Registration, error) {
	s.runnerMu.Lock()
	runner, err := liveRunners{s}.LookupRunner(runnerID)
	if err != nil {
		s.runnerMu.Unlock()
		return nil, err
	}
	refs := runner.Refs()
	s.runnerMu.Unlock()

	out := []models.Registration{}
	for _, ref := range refs {
		sl, err := s.slot(ref.EventID)
		if err != nil {
			continue
		}
		sl.mu.RLock()
		reg, err := sl.ev.Registration(ref.ID)
		var c models.Registration
		if err == nil {
			c = reg.Clone()
		}
		sl.mu.RUnlock()
		if err != nil {
			// removed after the refs were read
			continue
		}
		if len(states) == 0 || slices.Contains(states, c.State) {
			out = append(out, c)
		}
	}
	return out, nil
}
