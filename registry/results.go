package registry

import (
	"go.uber.org/zap"

	"github.com/padraicbc/racereg/models"
	"github.com/padraicbc/racereg/ranking"
)

// entries flattens an event for the ranking engine. Cancelled registrations are left out.
// The caller holds the event lock.
func (s *Store) entries(ev *models.Event) []ranking.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ranking.Entry, 0, len(ev.Registrations))
	for _, r := range ev.Registrations {
		if r.State == models.StateCancelled {
			continue
		}
		e := ranking.Entry{
			RegistrationID: r.ID,
			Bib:            r.Bib,
			RunnerID:       r.RunnerID,
			CategoryID:     r.CategoryID,
			Distance:       r.Distance,
		}
		if ru, ok := s.runners[r.RunnerID]; ok {
			e.RunnerName = ru.Name
		}
		if c, ok := ev.Category(r.CategoryID); ok {
			e.CategoryName = c.Name
		}
		if r.Result != nil {
			e.Elapsed, e.Timed = r.Result.ElapsedSeconds, true
		}
		out = append(out, e)
	}
	return out
}

// Rank recomputes every leaderboard and writes the positions back onto the timing results.
// Running it twice on unchanged times assigns the same positions.
func (s *Store) Rank(eventID int64) (ranking.Table, error) {
	sl, err := s.slot(eventID)
	if err != nil {
		return ranking.Table{}, err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()

	table := ranking.Compute(s.entries(sl.ev), s.opts)
	pos := table.Positions()
	for _, r := range sl.ev.Registrations {
		if r.Result == nil {
			continue
		}
		p := pos[r.ID]
		r.Result.OverallPosition = p.Overall
		r.Result.CategoryPosition = p.Category
		r.Result.DistancePosition = p.Distance
	}

	s.log.Info("event ranked", zap.Int64("event_id", eventID), zap.Int("ranked", len(table.Overall)))
	return table, nil
}

func (s *Store) snapshotEntries(eventID int64) ([]ranking.Entry, error) {
	sl, err := s.slot(eventID)
	if err != nil {
		return nil, err
	}
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return s.entries(sl.ev), nil
}

// Results computes the leaderboards from a snapshot without touching stored positions.
func (s *Store) Results(eventID int64) (ranking.Table, error) {
	entries, err := s.snapshotEntries(eventID)
	if err != nil {
		return ranking.Table{}, err
	}
	return ranking.Compute(entries, s.opts), nil
}

// Podium returns the top three of the leaderboard selected by scope.
func (s *Store) Podium(eventID int64, scope ranking.Scope) ([]ranking.PodiumEntry, error) {
	table, err := s.Results(eventID)
	if err != nil {
		return nil, err
	}
	return ranking.Podium(table.Select(scope)), nil
}

// Summary aggregates counts and times for an event and each of its groups.
func (s *Store) Summary(eventID int64) (ranking.Report, error) {
	entries, err := s.snapshotEntries(eventID)
	if err != nil {
		return ranking.Report{}, err
	}
	return ranking.Summarize(entries, s.opts), nil
}

// RunnerResult is one timed race of a runner.
type RunnerResult struct {
	EventID          int64           `json:"eventID"`
	EventName        string          `json:"eventName"`
	RegistrationID   int64           `json:"registrationID"`
	Bib              int             `json:"bib"`
	Distance         models.Distance `json:"distance"`
	Time             string          `json:"time"`
	OverallPosition  int             `json:"overallPosition"`
	CategoryPosition int             `json:"categoryPosition"`
	DistancePosition int             `json:"distancePosition"`
}

// RunnerResults lists a runner's recorded times across events with their last ranked positions.
func (s *Store) RunnerResults(runnerID string) ([]RunnerResult, error) {
	regs, err := s.RunnerRegistrations(runnerID, models.StateConfirmed)
	if err != nil {
		return nil, err
	}
	out := []RunnerResult{}
	for _, r := range regs {
		if r.Result == nil {
			continue
		}
		rr := RunnerResult{
			EventID:          r.EventID,
			RegistrationID:   r.ID,
			Bib:              r.Bib,
			Distance:         r.Distance,
			Time:             s.opts.Format(r.Result.ElapsedSeconds),
			OverallPosition:  r.Result.OverallPosition,
			CategoryPosition: r.Result.CategoryPosition,
			DistancePosition: r.Result.DistancePosition,
		}
		if sl, err := s.slot(r.EventID); err == nil {
			sl.mu.RLock()
			rr.EventName = sl.ev.Name
			sl.mu.RUnlock()
		}
		out = append(out, rr)
	}
	return out, nil
}
