package ranking

import (
	"slices"

	"github.com/padraicbc/racereg/models"
)

// PodiumEntry is one step of a podium.
type PodiumEntry struct {
	Position   int    `json:"position"`
	RunnerName string `json:"runnerName"`
	Bib        int    `json:"bib"`
	Time       string `json:"time"`
}

// Podium returns at most the first three standings.
func Podium(standings []Standing) []PodiumEntry {
	n := min(3, len(standings))
	out := make([]PodiumEntry, n)
	for i, s := range standings[:n] {
		out[i] = PodiumEntry{Position: s.Position, RunnerName: s.RunnerName, Bib: s.Bib, Time: s.Time}
	}
	return out
}

// Summary aggregates one scope. Best and Mean are zero when nothing is timed.
type Summary struct {
	Key           string  `json:"key"`
	Label         string  `json:"label"`
	Registrations int     `json:"registrations"`
	Timed         int     `json:"timed"`
	Best          float64 `json:"bestSeconds"`
	BestTime      string  `json:"bestTime"`
	Mean          float64 `json:"meanSeconds"`
	MeanTime      string  `json:"meanTime"`
}

// Report is the summary of an event and each of its categories and distances.
type Report struct {
	Overall    Summary   `json:"overall"`
	Categories []Summary `json:"categories"`
	Distances  []Summary `json:"distances"`
}

func summarize(key, label string, entries []Entry, opts Options) Summary {
	s := Summary{Key: key, Label: label, Registrations: len(entries)}
	var total float64
	for _, e := range entries {
		if !e.Timed {
			continue
		}
		if s.Timed == 0 || e.Elapsed < s.Best {
			s.Best = e.Elapsed
		}
		total += e.Elapsed
		s.Timed++
	}
	if s.Timed > 0 {
		s.Mean = total / float64(s.Timed)
		s.BestTime = opts.Format(s.Best)
		s.MeanTime = opts.Format(s.Mean)
	}
	return s
}

// Summarize counts registrations and times per event, category and distance.
func Summarize(entries []Entry, opts Options) Report {
	byCat := map[int64][]Entry{}
	labels := map[int64]string{}
	byDist := map[models.Distance][]Entry{}
	catOrder := []int64{}
	for _, e := range entries {
		if _, ok := byCat[e.CategoryID]; !ok {
			catOrder = append(catOrder, e.CategoryID)
		}
		byCat[e.CategoryID] = append(byCat[e.CategoryID], e)
		labels[e.CategoryID] = e.CategoryName
		byDist[e.Distance] = append(byDist[e.Distance], e)
	}

	r := Report{
		Overall:    summarize(string(ScopeOverall), "overall", entries, opts),
		Categories: []Summary{},
		Distances:  []Summary{},
	}
	slices.Sort(catOrder)
	for _, id := range catOrder {
		r.Categories = append(r.Categories, summarize(categoryKey(id), labels[id], byCat[id], opts))
	}
	for _, d := range models.StandardDistances {
		if part, ok := byDist[d]; ok {
			r.Distances = append(r.Distances, summarize(distanceKey(d), string(d), part, opts))
		}
	}
	return r
}
