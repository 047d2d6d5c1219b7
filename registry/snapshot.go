package registry

import (
	"cmp"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/padraicbc/racereg/models"
)

// Snapshot is the flat, persistable form of the store.
type Snapshot struct {
	Categories      []*models.Category
	Events          []*models.Event
	EventCategories []models.EventCategory
	Runners         []*models.Runner
	Registrations   []*models.Registration
	Results         []*models.TimingResult
}

type runnerMap map[string]*models.Runner

func (m runnerMap) LookupRunner(id string) (*models.Runner, error) {
	if r, ok := m[id]; ok {
		return r, nil
	}
	return nil, &models.NotFoundError{Kind: "runner", ID: id}
}

// Snapshot copies the whole store. Events are read one at a time, so the copy is
// consistent per event but not across events.
func (s *Store) Snapshot() Snapshot {
	var snap Snapshot
	for _, c := range s.Categories() {
		snap.Categories = append(snap.Categories, &c)
	}
	snap.Runners = s.Runners()
	for _, ev := range s.Events() {
		for _, c := range ev.Categories {
			snap.EventCategories = append(snap.EventCategories, models.EventCategory{EventID: ev.ID, CategoryID: c.ID})
		}
		for _, r := range ev.Registrations {
			if r.Result != nil {
				snap.Results = append(snap.Results, r.Result)
			}
			snap.Registrations = append(snap.Registrations, r)
		}
		snap.Events = append(snap.Events, ev)
	}
	return snap
}

// Restore replaces the store's contents with snap. Lifecycle gating is skipped but bib
// uniqueness and the one-registration-per-runner rule are enforced; on error the store is unchanged.
// It is meant to run before the store serves traffic.
func (s *Store) Restore(snap Snapshot) error {
	cats := make(map[int64]*models.Category, len(snap.Categories))
	var maxCat, maxEvent, maxReg int64
	for _, c := range snap.Categories {
		cc := *c
		cats[cc.ID] = &cc
		maxCat = max(maxCat, cc.ID)
	}

	runners := make(runnerMap, len(snap.Runners))
	for _, r := range snap.Runners {
		runners[r.ID] = r.Clone()
	}

	events := make(map[int64]*slot, len(snap.Events))
	for _, ev := range snap.Events {
		e := ev.Clone()
		e.Categories, e.Registrations = nil, nil
		events[e.ID] = &slot{ev: e}
		maxEvent = max(maxEvent, e.ID)
	}

	for _, ec := range snap.EventCategories {
		sl, ok := events[ec.EventID]
		if !ok {
			return fmt.Errorf("restoring event categories: %w", notFound("event", ec.EventID))
		}
		cat, ok := cats[ec.CategoryID]
		if !ok {
			return fmt.Errorf("restoring event %d: %w", ec.EventID, notFound("category", ec.CategoryID))
		}
		if _, dup := sl.ev.Category(cat.ID); !dup {
			sl.ev.Categories = append(sl.ev.Categories, cat)
		}
	}

	results := make(map[int64]*models.TimingResult, len(snap.Results))
	for _, t := range snap.Results {
		tc := *t
		results[tc.RegistrationID] = &tc
	}

	byEvent := map[int64][]*models.Registration{}
	index := make(map[int64]int64, len(snap.Registrations))
	for _, r := range snap.Registrations {
		rc := r.Clone()
		rc.Result = results[rc.ID]
		delete(results, rc.ID)
		if _, dup := index[rc.ID]; dup {
			return fmt.Errorf("restoring registrations: %w", &models.ConflictError{What: "registration id", Value: fmt.Sprint(rc.ID)})
		}
		index[rc.ID] = rc.EventID
		byEvent[rc.EventID] = append(byEvent[rc.EventID], &rc)
		maxReg = max(maxReg, rc.ID)
	}
	if len(results) > 0 {
		s.log.Warn("timing results without registration dropped", zap.Int("count", len(results)))
	}

	ids := make([]int64, 0, len(byEvent))
	for id := range byEvent {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		sl, ok := events[id]
		if !ok {
			return fmt.Errorf("restoring registrations: %w", notFound("event", id))
		}
		regs := byEvent[id]
		slices.SortFunc(regs, func(a, b *models.Registration) int { return cmp.Compare(a.ID, b.ID) })
		if err := sl.ev.Load(regs, runners); err != nil {
			return fmt.Errorf("restoring event %d: %w", id, err)
		}
	}

	s.runnerMu.Lock()
	s.mu.Lock()
	s.categories, s.events, s.runners, s.regIndex = cats, events, runners, index
	s.catSeq.Store(maxCat)
	s.eventSeq.Store(maxEvent)
	s.regSeq.Store(maxReg)
	s.mu.Unlock()
	s.runnerMu.Unlock()

	s.log.Info("registry restored",
		zap.Int("categories", len(cats)),
		zap.Int("events", len(events)),
		zap.Int("runners", len(runners)),
		zap.Int("registrations", len(index)),
	)
	return nil
}
