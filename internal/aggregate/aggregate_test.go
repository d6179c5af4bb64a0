package aggregate

import (
	"testing"

	"github.com/cruxstack/disposable-email-checker-go/internal/types"
	"pgregory.net/rapid"
)

func results(verdicts ...types.Verdict) []types.ProbeResult {
	out := make([]types.ProbeResult, len(verdicts))
	for i, v := range verdicts {
		out[i] = types.ProbeResult{Source: string(v), Verdict: v}
	}
	return out
}

const (
	d = types.VerdictDisposable
	n = types.VerdictNotDisposable
	u = types.VerdictUnknown
)

func TestDecide(t *testing.T) {
	testCases := []struct {
		name     string
		in       []types.ProbeResult
		expected types.Verdict
	}{
		{"empty", nil, u},
		{"all unknown", results(u, u, u), u},
		{"single disposable", results(d), d},
		{"single not disposable", results(n, u, u), n},
		{"tie", results(d, n), u},
		{"mixed two each", results(d, n, d, n, u), u},
		{"disposable majority", results(d, d, n, u, u), d},
		{"not disposable majority", results(n, n, n, d, d), n},
		{"plurality over unknowns", results(d, u, u, u, u), d},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Decide(tc.in); got != tc.expected {
				t.Errorf("expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestTally(t *testing.T) {
	got := Tally(results(d, n, d, n, u, types.Verdict("bogus")))
	want := types.Tally{Disposable: 2, NotDisposable: 2, Unknown: 2}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestVotes(t *testing.T) {
	remote := results(d, n)
	local := []types.CheckResult{
		{Name: "a", Passed: false},
		{Name: "b", Passed: false},
	}

	if got := Decide(Votes(remote, local, false)); got != u {
		t.Errorf("local checks must not vote by default, got %s", got)
	}
	if got := Decide(Votes(remote, local, true)); got != d {
		t.Errorf("expected failing local checks to tip the vote, got %s", got)
	}
	if len(Votes(remote, local, true)) != 4 {
		t.Error("expected remote and local votes")
	}
}

var verdictGen = rapid.SampledFrom([]types.Verdict{d, n, u})

func genResults(t *rapid.T) []types.ProbeResult {
	return results(rapid.SliceOf(verdictGen).Draw(t, "verdicts")...)
}

func TestDecide_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in := genResults(t)
		tally := Tally(in)

		if tally.Disposable+tally.NotDisposable+tally.Unknown != len(in) {
			t.Fatalf("tally %+v does not account for %d results", tally, len(in))
		}

		got := Decide(in)
		switch {
		case tally.Disposable > tally.NotDisposable && got != d:
			t.Fatalf("expected disposable for %+v, got %s", tally, got)
		case tally.NotDisposable > tally.Disposable && got != n:
			t.Fatalf("expected not disposable for %+v, got %s", tally, got)
		case tally.Disposable == tally.NotDisposable && got != u:
			t.Fatalf("expected unknown for %+v, got %s", tally, got)
		}

		if again := Decide(in); again != got {
			t.Fatalf("decide is not deterministic: %s then %s", got, again)
		}
	})
}

func TestDecide_OrderInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in := genResults(t)
		perm := rapid.Permutation(in).Draw(t, "perm")

		if Decide(in) != Decide(perm) {
			t.Fatalf("order changed the verdict: %v vs %v", in, perm)
		}
	})
}

func TestDecide_UnknownsNeverVote(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in := genResults(t)
		extra := rapid.IntRange(0, 10).Draw(t, "extra")

		padded := append(append([]types.ProbeResult{}, in...), results(repeat(u, extra)...)...)
		if Decide(in) != Decide(padded) {
			t.Fatalf("adding %d unknowns changed the verdict", extra)
		}
	})
}

func repeat(v types.Verdict, count int) []types.Verdict {
	out := make([]types.Verdict, count)
	for i := range out {
		out[i] = v
	}
	return out
}
