// Package aggregate reduces normalized probe verdicts to a single verdict.
package aggregate

import "github.com/cruxstack/disposable-email-checker-go/internal/types"

// Tally counts each verdict. Anything outside the three known verdicts counts
// as unknown.
func Tally(results []types.ProbeResult) types.Tally {
	var t types.Tally
	for _, r := range results {
		switch r.Verdict {
		case types.VerdictDisposable:
			t.Disposable++
		case types.VerdictNotDisposable:
			t.NotDisposable++
		default:
			t.Unknown++
		}
	}
	return t
}

// Decide is a strict majority between disposable and not disposable votes.
// Unknown results never vote.
func Decide(results []types.ProbeResult) types.Verdict {
	return Tally(results).Verdict()
}

// Votes returns the results that take part in the vote: the remote results,
// followed by the local checks when includeLocal is set.
func Votes(remote []types.ProbeResult, local []types.CheckResult, includeLocal bool) []types.ProbeResult {
	votes := make([]types.ProbeResult, 0, len(remote)+len(local))
	votes = append(votes, remote...)
	if includeLocal {
		for _, c := range local {
			votes = append(votes, c.Signal())
		}
	}
	return votes
}
