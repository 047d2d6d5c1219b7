package ranking

import (
	"math"
	"testing"

	"github.com/padraicbc/racereg/models"
)

func entry(id int64, bib int, name string, cat int64, d models.Distance, elapsed float64, timed bool) Entry {
	return Entry{
		RegistrationID: id,
		Bib:            bib,
		RunnerName:     name,
		CategoryID:     cat,
		CategoryName:   "cat",
		Distance:       d,
		Elapsed:        elapsed,
		Timed:          timed,
	}
}

func TestFormatTime(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{5025, "01:23:45"},
		{65.4, "00:01:05"},
		{59.6, "00:01:00"},
		{0, "00:00:00"},
		{-3, "00:00:00"},
		{math.NaN(), "00:00:00"},
		{360000, "100:00:00"},
	}
	for _, c := range cases {
		if got := FormatTime(c.in); got != c.want {
			t.Fatalf("FormatTime(%v) = %q, want %q", c.in, got, c.want)
		}
	}
	if got := FormatTimeMillis(65.4); got != "00:01:05.400" {
		t.Fatalf("FormatTimeMillis(65.4) = %q", got)
	}
	if got := FormatTimeMillis(59.9996); got != "00:01:00.000" {
		t.Fatalf("FormatTimeMillis carry = %q", got)
	}
}

func TestOverallSkipsUntimedAndBreaksTiesByBib(t *testing.T) {
	entries := []Entry{
		entry(1, 30, "C", 1, models.Distance10K, 3000, true),
		entry(2, 10, "A", 1, models.Distance10K, 2900, true),
		entry(3, 20, "B", 1, models.Distance10K, 3000, true),
		entry(4, 40, "D", 1, models.Distance10K, 0, false),
	}
	got := Overall(entries, Options{})
	if len(got) != 3 {
		t.Fatalf("got %d standings, want 3", len(got))
	}
	wantBibs := []int{10, 20, 30}
	for i, s := range got {
		if s.Position != i+1 {
			t.Fatalf("standing %d has position %d", i, s.Position)
		}
		if s.Bib != wantBibs[i] {
			t.Fatalf("standing %d bib = %d, want %d", i, s.Bib, wantBibs[i])
		}
	}
	if got[0].Time != "00:48:20" {
		t.Fatalf("time = %q", got[0].Time)
	}
}

func TestGroupsAreIndependent(t *testing.T) {
	entries := []Entry{
		entry(1, 1, "A", 2, models.Distance10K, 2500, true),
		entry(2, 2, "B", 1, models.Distance10K, 2400, true),
		entry(3, 3, "C", 1, models.Distance5K, 1200, true),
		entry(4, 4, "D", 2, models.Distance5K, 1100, true),
	}
	table := Compute(entries, Options{})

	if len(table.Categories) != 2 || table.Categories[0].Key != "category:1" {
		t.Fatalf("categories = %+v", table.Categories)
	}
	if len(table.Distances) != 2 || table.Distances[0].Label != "5K" {
		t.Fatalf("distances = %+v", table.Distances)
	}

	pos := table.Positions()
	if p := pos[4]; p.Overall != 1 || p.Distance != 1 || p.Category != 1 {
		t.Fatalf("positions for 4 = %+v", p)
	}
	if p := pos[1]; p.Overall != 4 || p.Category != 2 || p.Distance != 2 {
		t.Fatalf("positions for 1 = %+v", p)
	}
	if p := pos[2]; p.Overall != 3 || p.Category != 2 || p.Distance != 1 {
		t.Fatalf("positions for 2 = %+v", p)
	}
}

func TestScopeSelectAndPodium(t *testing.T) {
	entries := []Entry{
		entry(1, 1, "A", 1, models.Distance10K, 2500, true),
		entry(2, 2, "B", 1, models.Distance10K, 2400, true),
		entry(3, 3, "C", 1, models.Distance10K, 2600, true),
		entry(4, 4, "D", 1, models.Distance10K, 2700, true),
	}
	table := Compute(entries, Options{})

	for _, raw := range []string{"", "overall", "category:1", "distance:10K", "distance:half"} {
		scope, err := ParseScope(raw)
		if err != nil {
			t.Fatalf("ParseScope(%q): %v", raw, err)
		}
		board := table.Select(scope)
		if raw == "distance:half" {
			if len(board) != 0 {
				t.Fatalf("21K board should be empty, got %d", len(board))
			}
			continue
		}
		podium := Podium(board)
		if len(podium) != 3 {
			t.Fatalf("%q: podium len %d", raw, len(podium))
		}
		if podium[0].RunnerName != "B" || podium[2].RunnerName != "C" {
			t.Fatalf("%q: podium = %+v", raw, podium)
		}
	}

	for _, bad := range []string{"category:x", "category:0", "distance:3K", "age:30", "nonsense"} {
		if _, err := ParseScope(bad); !models.IsValidation(err) {
			t.Fatalf("ParseScope(%q) err = %v, want validation error", bad, err)
		}
	}

	if got := Podium(nil); len(got) != 0 {
		t.Fatalf("empty podium = %+v", got)
	}
}

func TestSummarize(t *testing.T) {
	entries := []Entry{
		entry(1, 1, "A", 1, models.Distance10K, 3000, true),
		entry(2, 2, "B", 1, models.Distance10K, 2000, true),
		entry(3, 3, "C", 2, models.Distance5K, 0, false),
	}
	r := Summarize(entries, Options{})
	if r.Overall.Registrations != 3 || r.Overall.Timed != 2 {
		t.Fatalf("overall = %+v", r.Overall)
	}
	if r.Overall.Best != 2000 || r.Overall.Mean != 2500 || r.Overall.BestTime != "00:33:20" {
		t.Fatalf("overall = %+v", r.Overall)
	}
	if len(r.Categories) != 2 || r.Categories[1].Timed != 0 || r.Categories[1].MeanTime != "" {
		t.Fatalf("categories = %+v", r.Categories)
	}
	if len(r.Distances) != 2 || r.Distances[0].Key != "distance:5K" {
		t.Fatalf("distances = %+v", r.Distances)
	}
}
