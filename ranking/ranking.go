// Package ranking turns a snapshot of registrations with times into leaderboards,
// podiums and summaries. It holds no state; callers decide whether to write the
// computed positions back.
package ranking

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/padraicbc/racereg/models"
)

// Entry is one registration as seen by the engine.
type Entry struct {
	RegistrationID int64           `json:"registrationID"`
	Bib            int             `json:"bib"`
	RunnerID       string          `json:"runnerID"`
	RunnerName     string          `json:"runnerName"`
	CategoryID     int64           `json:"categoryID"`
	CategoryName   string          `json:"categoryName"`
	Distance       models.Distance `json:"distance"`
	Elapsed        float64         `json:"elapsedSeconds"`
	Timed          bool            `json:"timed"`
}

// Standing is a ranked entry.
type Standing struct {
	Position int `json:"position"`
	Entry
	Time string `json:"time"`
}

// Group is the leaderboard of one category or distance.
type Group struct {
	Key       string     `json:"key"`
	Label     string     `json:"label"`
	Standings []Standing `json:"standings"`
}

// Table holds every leaderboard of an event.
type Table struct {
	Overall    []Standing `json:"overall"`
	Categories []Group    `json:"categories"`
	Distances  []Group    `json:"distances"`
}

// Positions are the places one registration earned in a Table.
type Positions struct {
	Overall  int
	Category int
	Distance int
}

// Options tweak rendering only; ordering never depends on them.
type Options struct {
	Millis bool
}

// Format renders seconds with or without milliseconds.
func (o Options) Format(seconds float64) string {
	if o.Millis {
		return FormatTimeMillis(seconds)
	}
	return FormatTime(seconds)
}

// faster orders by elapsed time, then bib, then registration id.
func faster(a, b Entry) int {
	return cmp.Or(
		cmp.Compare(a.Elapsed, b.Elapsed),
		cmp.Compare(a.Bib, b.Bib),
		cmp.Compare(a.RegistrationID, b.RegistrationID),
	)
}

func rank(entries []Entry, opts Options) []Standing {
	timed := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Timed {
			timed = append(timed, e)
		}
	}
	slices.SortStableFunc(timed, faster)

	out := make([]Standing, len(timed))
	for i, e := range timed {
		out[i] = Standing{Position: i + 1, Entry: e, Time: opts.Format(e.Elapsed)}
	}
	return out
}

// Overall ranks every timed entry, fastest first, positions 1..k.
func Overall(entries []Entry, opts Options) []Standing {
	return rank(entries, opts)
}

// ByCategory ranks timed entries within each category, ordered by category id.
func ByCategory(entries []Entry, opts Options) []Group {
	parts := map[int64][]Entry{}
	labels := map[int64]string{}
	for _, e := range entries {
		parts[e.CategoryID] = append(parts[e.CategoryID], e)
		labels[e.CategoryID] = e.CategoryName
	}
	ids := make([]int64, 0, len(parts))
	for id := range parts {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]Group, 0, len(ids))
	for _, id := range ids {
		out = append(out, Group{
			Key:       categoryKey(id),
			Label:     labels[id],
			Standings: rank(parts[id], opts),
		})
	}
	return out
}

// ByDistance ranks timed entries within each distance, shortest distance first.
func ByDistance(entries []Entry, opts Options) []Group {
	parts := map[models.Distance][]Entry{}
	for _, e := range entries {
		parts[e.Distance] = append(parts[e.Distance], e)
	}
	out := []Group{}
	for _, d := range models.StandardDistances {
		part, ok := parts[d]
		if !ok {
			continue
		}
		out = append(out, Group{Key: distanceKey(d), Label: string(d), Standings: rank(part, opts)})
	}
	return out
}

// Compute builds every leaderboard at once.
func Compute(entries []Entry, opts Options) Table {
	return Table{
		Overall:    Overall(entries, opts),
		Categories: ByCategory(entries, opts),
		Distances:  ByDistance(entries, opts),
	}
}

// Positions indexes the table by registration id.
func (t Table) Positions() map[int64]Positions {
	out := make(map[int64]Positions, len(t.Overall))
	for _, s := range t.Overall {
		p := out[s.RegistrationID]
		p.Overall = s.Position
		out[s.RegistrationID] = p
	}
	for _, g := range t.Categories {
		for _, s := range g.Standings {
			p := out[s.RegistrationID]
			p.Category = s.Position
			out[s.RegistrationID] = p
		}
	}
	for _, g := range t.Distances {
		for _, s := range g.Standings {
			p := out[s.RegistrationID]
			p.Distance = s.Position
			out[s.RegistrationID] = p
		}
	}
	return out
}

// ScopeKind selects which leaderboard a podium or summary reads.
type ScopeKind string

const (
	ScopeOverall  ScopeKind = "overall"
	ScopeCategory ScopeKind = "category"
	ScopeDistance ScopeKind = "distance"
)

// Scope is a parsed leaderboard selector: "overall", "category:<id>" or "distance:<code>".
type Scope struct {
	Kind       ScopeKind
	CategoryID int64
	Distance   models.Distance
}

func categoryKey(id int64) string          { return string(ScopeCategory) + ":" + strconv.FormatInt(id, 10) }
func distanceKey(d models.Distance) string { return string(ScopeDistance) + ":" + string(d) }

// ParseScope reads a scope selector. An empty string means overall.
func ParseScope(s string) (Scope, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, string(ScopeOverall)) {
		return Scope{Kind: ScopeOverall}, nil
	}
	kind, val, ok := strings.Cut(s, ":")
	if !ok {
		return Scope{}, &models.ValidationError{Field: "scope", Msg: fmt.Sprintf("malformed scope %q", s)}
	}
	switch ScopeKind(strings.ToLower(kind)) {
	case ScopeCategory:
		id, err := strconv.ParseInt(val, 10, 64)
		if err != nil || id <= 0 {
			return Scope{}, &models.ValidationError{Field: "scope", Msg: fmt.Sprintf("bad category id %q", val)}
		}
		return Scope{Kind: ScopeCategory, CategoryID: id}, nil
	case ScopeDistance:
		d, err := models.ParseDistance(val)
		if err != nil {
			return Scope{}, err
		}
		return Scope{Kind: ScopeDistance, Distance: d}, nil
	}
	return Scope{}, &models.ValidationError{Field: "scope", Msg: fmt.Sprintf("unknown scope %q", kind)}
}

// Select returns the leaderboard for scope; an unknown category or distance yields an empty board.
func (t Table) Select(scope Scope) []Standing {
	var groups []Group
	var key string
	switch scope.Kind {
	case ScopeCategory:
		groups, key = t.Categories, categoryKey(scope.CategoryID)
	case ScopeDistance:
		groups, key = t.Distances, distanceKey(scope.Distance)
	default:
		return t.Overall
	}
	for _, g := range groups {
		if g.Key == key {
			return g.Standings
		}
	}
	return []Standing{}
}
