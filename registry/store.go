// Package registry is the in-process store of categories, events, runners and
// registrations. Commands on one event are serialized by that event's lock;
// reads work on copies so callers never see a half-applied command.
package registry

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/padraicbc/racereg/models"
	"github.com/padraicbc/racereg/ranking"
)

// Lock order: slot.mu, then runnerMu, then mu. mu is never held while taking a slot lock.
type slot struct {
	mu sync.RWMutex
	ev *models.Event
}

// Store holds all live aggregates.
type Store struct {
	log  *zap.Logger
	opts ranking.Options

	mu         sync.RWMutex
	categories map[int64]*models.Category
	events     map[int64]*slot
	runners    map[string]*models.Runner
	regIndex   map[int64]int64

	// guards every runner's registration list
	runnerMu sync.Mutex

	catSeq   atomic.Int64
	eventSeq atomic.Int64
	regSeq   atomic.Int64
}

// New returns an empty store.
func New(log *zap.Logger, opts ranking.Options) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		log:        log,
		opts:       opts,
		categories: map[int64]*models.Category{},
		events:     map[int64]*slot{},
		runners:    map[string]*models.Runner{},
		regIndex:   map[int64]int64{},
	}
}

func notFound(kind string, id int64) error {
	return &models.NotFoundError{Kind: kind, ID: strconv.FormatInt(id, 10)}
}

func (s *Store) slot(eventID int64) (*slot, error) {
	s.mu.RLock()
	sl, ok := s.events[eventID]
	s.mu.RUnlock()
	if !ok {
		return nil, notFound("event", eventID)
	}
	return sl, nil
}

func (s *Store) slotFor(regID int64) (*slot, error) {
	s.mu.RLock()
	eventID, ok := s.regIndex[regID]
	sl := s.events[eventID]
	s.mu.RUnlock()
	if !ok || sl == nil {
		return nil, notFound("registration", regID)
	}
	return sl, nil
}

// liveRunners resolves runners for the models package while an event lock is held.
type liveRunners struct{ s *Store }

func (d liveRunners) LookupRunner(id string) (*models.Runner, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	r, ok := d.s.runners[id]
	if !ok {
		return nil, &models.NotFoundError{Kind: "runner", ID: id}
	}
	return r, nil
}

// CreateCategory adds a category with the next free id.
func (s *Store) CreateCategory(name string, minAge, maxAge int) (models.Category, error) {
	c, err := models.NewCategory(s.catSeq.Add(1), name, minAge, maxAge)
	if err != nil {
		return models.Category{}, err
	}
	s.mu.Lock()
	s.categories[c.ID] = c
	s.mu.Unlock()

	s.log.Info("category created", zap.Int64("category_id", c.ID), zap.String("name", c.Name))
	return *c, nil
}

// Category returns a copy of one category.
func (s *Store) Category(id int64) (models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return models.Category{}, notFound("category", id)
	}
	return *c, nil
}

// Categories lists every category by id.
func (s *Store) Categories() []models.Category {
	s.mu.RLock()
	out := make([]models.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, *c)
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b models.Category) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// CreateEvent adds a PLANNED event with the next free id.
func (s *Store) CreateEvent(name string, date time.Time, description string, distances []models.Distance) (*models.Event, error) {
	ev, err := models.NewEvent(s.eventSeq.Add(1), name, date, description, distances)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.events[ev.ID] = &slot{ev: ev}
	s.mu.Unlock()

	s.log.Info("event created", zap.Int64("event_id", ev.ID), zap.String("name", ev.Name))
	return ev.Clone(), nil
}

// Event returns a snapshot of one event including its registrations.
func (s *Store) Event(id int64) (*models.Event, error) {
	sl, err := s.slot(id)
	if err != nil {
		return nil, err
	}
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return sl.ev.Clone(), nil
}

// Persist hands a snapshot of the event to save while holding the event's write lock.
// No command on the event can run until save returns, so storage sees one event's
// snapshots in the order its commands were applied.
func (s *Store) Persist(ctx context.Context, id int64, save func(context.Context, *models.Event) error) error {
	sl, err := s.slot(id)
	if err != nil {
		return err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return save(ctx, sl.ev.Clone())
}

// Events returns snapshots of every event ordered by id.
func (s *Store) Events() []*models.Event {
	s.mu.RLock()
	slots := make([]*slot, 0, len(s.events))
	for _, sl := range s.events {
		slots = append(slots, sl)
	}
	s.mu.RUnlock()

	out := make([]*models.Event, 0, len(slots))
	for _, sl := range slots {
		sl.mu.RLock()
		out = append(out, sl.ev.Clone())
		sl.mu.RUnlock()
	}
	slices.SortFunc(out, func(a, b *models.Event) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// AddCategory attaches an existing category to an event.
func (s *Store) AddCategory(eventID, categoryID int64) (bool, error) {
	sl, err := s.slot(eventID)
	if err != nil {
		return false, err
	}
	s.mu.RLock()
	cat, ok := s.categories[categoryID]
	s.mu.RUnlock()
	if !ok {
		return false, notFound("category", categoryID)
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	added, err := sl.ev.AddCategory(cat)
	if err != nil {
		return false, err
	}
	if added {
		s.log.Info("category attached", zap.Int64("event_id", eventID), zap.Int64("category_id", categoryID))
	}
	return added, nil
}

// SetEventState moves an event one step along its lifecycle.
func (s *Store) SetEventState(eventID int64, next models.EventState) (*models.Event, error) {
	sl, err := s.slot(eventID)
	if err != nil {
		return nil, err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	from := sl.ev.State
	if err := sl.ev.SetState(next); err != nil {
		return nil, err
	}
	s.log.Info("event state changed",
		zap.Int64("event_id", eventID),
		zap.String("from", from.String()),
		zap.String("state", next.String()),
	)
	return sl.ev.Clone(), nil
}

// AddRunner stores a copy of r. Runner ids are unique.
func (s *Store) AddRunner(r *models.Runner) (*models.Runner, error) {
	if r == nil {
		return nil, &models.ValidationError{Field: "runner", Msg: "required"}
	}
	id, err := models.NewRunner(r.ID, r.Name)
	if err != nil {
		return nil, err
	}
	live := r.Clone()
	live.ID, live.Name = id.ID, id.Name
	out := live.Clone()
	s.mu.Lock()
	if _, ok := s.runners[live.ID]; ok {
		s.mu.Unlock()
		return nil, &models.ConflictError{What: "runner id", Value: live.ID}
	}
	s.runners[live.ID] = live
	s.mu.Unlock()

	s.log.Info("runner added", zap.String("runner_id", live.ID))
	return out, nil
}

// Runner returns a copy of one runner's profile.
func (s *Store) Runner(id string) (*models.Runner, error) {
	s.runnerMu.Lock()
	defer s.runnerMu.Unlock()
	r, err := liveRunners{s}.LookupRunner(id)
	if err != nil {
		return nil, err
	}
	return r.Clone(), nil
}

// Runners lists every runner profile by id.
func (s *Store) Runners() []*models.Runner {
	s.runnerMu.Lock()
	defer s.runnerMu.Unlock()
	s.mu.RLock()
	out := make([]*models.Runner, 0, len(s.runners))
	for _, r := range s.runners {
		out = append(out, r.Clone())
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b *models.Runner) int { return cmp.Compare(a.ID, b.ID) })
	return out
}
