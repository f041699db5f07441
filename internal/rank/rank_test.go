package rank

import (
	"testing"
	"time"

	"github.com/iWorld-y/verity/internal/contracts"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func result(url string, score float64) contracts.RawResult {
	return contracts.RawResult{URL: url, Title: url, Score: score}
}

func TestHost(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.Example.com/path", "example.com"},
		{"https://news.example.com/a", "news.example.com"},
		{"not a url", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := Host(c.url); got != c.want {
			t.Errorf("Host(%q) = %q, want %q", c.url, got, c.want)
		}
	}
}

func TestRank_ExcludeDomains(t *testing.T) {
	results := []contracts.RawResult{
		result("https://spam.com/a", 0.9),
		result("https://www.spam.com/b", 0.9),
		result("https://good.com/a", 0.1),
	}
	ranked := rankAt(results, nil, []string{"spam.com"}, 10, testNow)
	if len(ranked) != 1 {
		t.Fatalf("len = %d, want 1", len(ranked))
	}
	if Host(ranked[0].URL) != "good.com" {
		t.Errorf("survivor = %s, want good.com", ranked[0].URL)
	}
}

func TestRank_IncludeBoost(t *testing.T) {
	results := []contracts.RawResult{
		result("https://a.com/x", 0.5),
		result("https://b.com/x", 0.5),
	}
	ranked := rankAt(results, []string{"b.com"}, nil, 10, testNow)
	if Host(ranked[0].URL) != "b.com" {
		t.Fatalf("boosted domain should rank first, got %s", ranked[0].URL)
	}
	if ranked[0].Score != 0.75 {
		t.Errorf("boosted score = %v, want 0.75", ranked[0].Score)
	}
}

func TestRank_DedupeKeepsFirst(t *testing.T) {
	results := []contracts.RawResult{
		{URL: "https://a.com/x", Title: "first", Score: 0.5},
		{URL: "https://www.a.com/x", Title: "second", Score: 0.5},
		{URL: "https://a.com/x?utm=1", Title: "third", Score: 0.5},
	}
	ranked := rankAt(results, nil, nil, 10, testNow)
	if len(ranked) != 1 {
		t.Fatalf("len = %d, want 1", len(ranked))
	}
	if ranked[0].Title != "first" {
		t.Errorf("kept = %s, want first occurrence", ranked[0].Title)
	}
}

func TestRank_UnparseableURLKept(t *testing.T) {
	results := []contracts.RawResult{
		{URL: "::::", Score: 0.5},
		{URL: "::::", Score: 0.5},
		{URL: "https://a.com/x", Score: 0.5},
	}
	ranked := rankAt(results, nil, nil, 10, testNow)
	if len(ranked) != 3 {
		t.Fatalf("len = %d, want 3 (unparseable URLs are never dropped)", len(ranked))
	}
}

func TestRank_RecencyMonotonic(t *testing.T) {
	fresh := contracts.RawResult{URL: "https://a.com/new", Score: 0.5, Published: testNow.AddDate(0, 0, -1).Format(time.RFC3339)}
	stale := contracts.RawResult{URL: "https://a.com/old", Score: 0.5, Published: testNow.AddDate(0, 0, -300).Format(time.RFC3339)}
	ranked := rankAt([]contracts.RawResult{stale, fresh}, nil, nil, 10, testNow)
	if ranked[0].URL != fresh.URL {
		t.Fatalf("fresher result should never score lower, got %s first", ranked[0].URL)
	}
	if ranked[0].Score <= ranked[1].Score {
		t.Errorf("fresh score %v should exceed stale score %v", ranked[0].Score, ranked[1].Score)
	}
}

func TestRank_BadDateNoBoostNoPenalty(t *testing.T) {
	withBad := contracts.RawResult{URL: "https://a.com/x", Score: 0.5, Published: "not-a-date"}
	ranked := rankAt([]contracts.RawResult{withBad}, nil, nil, 10, testNow)
	if ranked[0].Score != 0.5 {
		t.Errorf("score = %v, want unchanged 0.5", ranked[0].Score)
	}
}

func TestRank_LimitAndOrdering(t *testing.T) {
	results := []contracts.RawResult{
		result("https://a.com/1", 0.1),
		result("https://a.com/2", 0.9),
		result("https://a.com/3", 0.5),
		result("https://a.com/4", 0.7),
	}
	ranked := rankAt(results, nil, nil, 3, testNow)
	if len(ranked) != 3 {
		t.Fatalf("len = %d, want 3", len(ranked))
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Errorf("scores must be non-increasing, got %v after %v", ranked[i].Score, ranked[i-1].Score)
		}
	}
}

func TestRank_StableTieBreak(t *testing.T) {
	results := []contracts.RawResult{
		{URL: "https://a.com/1", Title: "one", Score: 0.5},
		{URL: "https://b.com/1", Title: "two", Score: 0.5},
		{URL: "https://c.com/1", Title: "three", Score: 0.5},
	}
	ranked := rankAt(results, nil, nil, 10, testNow)
	for i, want := range []string{"one", "two", "three"} {
		if ranked[i].Title != want {
			t.Errorf("tie-break must preserve input order, pos %d = %s", i, ranked[i].Title)
		}
	}
}

func TestRank_Idempotent(t *testing.T) {
	results := []contracts.RawResult{
		result("https://a.com/1", 0.3),
		result("https://b.com/1", 0.8),
		result("https://c.com/1", 0.6),
	}
	once := rankAt(results, nil, nil, 3, testNow)
	twice := rankAt(once, nil, nil, 3, testNow)
	if len(once) != len(twice) {
		t.Fatalf("lengths differ: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("pos %d differs after second ranking: %+v vs %+v", i, once[i], twice[i])
		}
	}
}

func TestRank_InputNotMutated(t *testing.T) {
	results := []contracts.RawResult{
		result("https://a.com/1", 0.3),
		result("https://b.com/1", 0.8),
	}
	rankAt(results, []string{"a.com"}, nil, 10, testNow)
	if results[0].Score != 0.3 {
		t.Errorf("input slice mutated: score = %v", results[0].Score)
	}
}
