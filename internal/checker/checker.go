// Package checker runs every remote probe and local check for an address
// concurrently and reduces the results to a single verdict.
package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cruxstack/disposable-email-checker-go/internal/aggregate"
	"github.com/cruxstack/disposable-email-checker-go/internal/config"
	"github.com/cruxstack/disposable-email-checker-go/internal/heuristics"
	"github.com/cruxstack/disposable-email-checker-go/internal/opa"
	"github.com/cruxstack/disposable-email-checker-go/internal/telemetry"
	"github.com/cruxstack/disposable-email-checker-go/internal/types"
	"github.com/cruxstack/disposable-email-checker-go/internal/verifier"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	SourceMajority = "majority"
	SourcePolicy   = "policy"
)

var ErrTimeout = errors.New("timed out")

// Prober is an ordered set of remote probes.
type Prober interface {
	Len() int
	Source(i int) string
	Probe(ctx context.Context, i int, addr types.Address) types.ProbeResult
}

// Checks is an ordered set of local heuristic checks.
type Checks interface {
	Len() int
	Source(i int) string
	Run(ctx context.Context, i int, addr types.Address) types.CheckResult
}

// Policy may replace the majority verdict.
type Policy interface {
	Decide(ctx context.Context, in opa.VerdictInput) (*opa.VerdictOutput, error)
}

type Checker struct {
	remote Prober
	local  Checks
	policy Policy

	includeLocal bool
	probeTimeout time.Duration
	checkTimeout time.Duration
	workers      int
	newID        func() string
}

type Option func(*Checker)

func WithProbes(p Prober) Option {
	return func(c *Checker) { c.remote = p }
}

func WithChecks(checks Checks) Option {
	return func(c *Checker) { c.local = checks }
}

func WithPolicy(p Policy) Option {
	return func(c *Checker) { c.policy = p }
}

// WithIncludeLocal lets local check outcomes vote alongside remote probes.
func WithIncludeLocal(include bool) Option {
	return func(c *Checker) { c.includeLocal = include }
}

// WithTimeouts overrides the per task deadlines for remote probes and local
// checks.
func WithTimeouts(probe, check time.Duration) Option {
	return func(c *Checker) {
		c.probeTimeout = probe
		c.checkTimeout = check
	}
}

func WithIDFunc(fn func() string) Option {
	return func(c *Checker) { c.newID = fn }
}

// New builds a checker from cfg. Probe sets and the verdict policy not
// supplied through options are created from the configuration.
func New(cfg *config.Config, opts ...Option) (*Checker, error) {
	c := &Checker{
		includeLocal: cfg.AppVoteIncludeLocal,
		probeTimeout: cfg.AppProbeTimeout,
		checkTimeout: localTimeout(cfg),
		workers:      cfg.AppMaxWorkers,
		newID:        uuid.NewString,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.remote == nil {
		set, err := verifier.NewProbeSetFromConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to build remote probes: %w", err)
		}
		c.remote = set
	}

	if c.local == nil {
		c.local = heuristics.NewFromConfig(cfg)
	}

	if c.policy == nil && cfg.AppVerdictPolicyPath != "" {
		p, err := opa.LoadVerdictPolicy(context.Background(), cfg.AppVerdictPolicyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load verdict policy: %w", err)
		}
		c.policy = p
	}

	if c.workers < 1 {
		c.workers = 1
	}

	return c, nil
}

// localTimeout bounds a single local check. The certificate check may dial
// twice, so the bound covers two TLS dials.
func localTimeout(cfg *config.Config) time.Duration {
	return max(cfg.AppCheckTimeout, 2*cfg.AppTLSTimeout)
}

// Check validates raw and then runs all probes and checks on a bounded
// worker pool. An invalid address is the only error; it is returned before
// any probe runs. Results keep the declared probe order.
func (c *Checker) Check(ctx context.Context, raw string) (*types.Report, error) {
	addr, err := types.ParseAddress(raw)
	if err != nil {
		return nil, err
	}

	runID := c.newID()
	logger := slog.With("run_id", runID, "domain", addr.Domain)

	remote := make([]types.ProbeResult, c.remote.Len())
	local := make([]types.CheckResult, c.local.Len())

	var g errgroup.Group
	g.SetLimit(c.workers)

	for i := range remote {
		g.Go(func() error {
			remote[i] = c.runProbe(ctx, logger, i, addr)
			return nil
		})
	}
	for i := range local {
		g.Go(func() error {
			local[i] = c.runCheck(ctx, logger, i, addr)
			return nil
		})
	}
	_ = g.Wait()

	tally := aggregate.Tally(aggregate.Votes(remote, local, c.includeLocal))

	report := &types.Report{
		ID:            runID,
		Address:       addr,
		Remote:        remote,
		Local:         local,
		Tally:         tally,
		Verdict:       tally.Verdict(),
		VerdictSource: SourceMajority,
	}

	if c.policy != nil {
		c.applyPolicy(ctx, logger, report)
	}

	telemetry.RecordVerdict(ctx, string(report.Verdict), report.VerdictSource)
	logger.InfoContext(ctx, "email checked",
		"verdict", report.Verdict,
		"verdict_source", report.VerdictSource,
		"disposable", tally.Disposable,
		"not_disposable", tally.NotDisposable,
		"unknown", tally.Unknown,
	)

	return report, nil
}

func (c *Checker) applyPolicy(ctx context.Context, logger *slog.Logger, report *types.Report) {
	out, err := c.policy.Decide(ctx, opa.VerdictInput{
		Address: report.Address,
		Remote:  report.Remote,
		Local:   report.Local,
		Tally:   report.Tally,
		Verdict: report.Verdict,
	})

	switch {
	case err == nil:
		if out.Verdict != report.Verdict {
			logger.DebugContext(ctx, "policy overrode verdict",
				"majority", report.Verdict,
				"policy", out.Verdict,
				"reason", out.Reason,
			)
		}
		report.Verdict = out.Verdict
		report.VerdictSource = SourcePolicy
	case errors.Is(err, opa.ErrNoResult):
		logger.DebugContext(ctx, "policy abstained, keeping majority verdict")
	default:
		logger.WarnContext(ctx, "policy evaluation failed, keeping majority verdict", "error", err)
	}
}

func (c *Checker) runProbe(ctx context.Context, logger *slog.Logger, i int, addr types.Address) types.ProbeResult {
	source := c.remote.Source(i)
	start := time.Now()

	res, err := withTimeout(ctx, c.probeTimeout, func(ctx context.Context) types.ProbeResult {
		return c.remote.Probe(ctx, i, addr)
	})
	if err != nil {
		res = types.ProbeResult{
			Source:  source,
			Verdict: types.VerdictUnknown,
			Detail:  "Error: " + err.Error(),
			Err:     err,
		}
	}
	res.Duration = time.Since(start)

	telemetry.RecordProbe(ctx, telemetry.ProbeMetrics{
		Kind:     telemetry.KindRemote,
		Source:   source,
		Outcome:  string(res.Verdict),
		Duration: res.Duration,
		TimedOut: errors.Is(err, ErrTimeout),
	})

	if res.Err != nil {
		logger.WarnContext(ctx, "remote probe failed", "probe", source, "error", res.Err)
	} else {
		logger.DebugContext(ctx, "remote probe finished", "probe", source, "verdict", res.Verdict, "duration", res.Duration)
	}

	return res
}

func (c *Checker) runCheck(ctx context.Context, logger *slog.Logger, i int, addr types.Address) types.CheckResult {
	source := c.local.Source(i)
	start := time.Now()

	res, err := withTimeout(ctx, c.checkTimeout, func(ctx context.Context) types.CheckResult {
		return c.local.Run(ctx, i, addr)
	})
	if err != nil {
		res = types.CheckResult{
			Name:    source,
			Passed:  false,
			Message: err.Error(),
			Err:     err,
		}
	}

	outcome := "fail"
	if res.Passed {
		outcome = "pass"
	}
	telemetry.RecordProbe(ctx, telemetry.ProbeMetrics{
		Kind:     telemetry.KindLocal,
		Source:   source,
		Outcome:  outcome,
		Duration: time.Since(start),
		TimedOut: errors.Is(err, ErrTimeout),
	})

	logger.DebugContext(ctx, "local check finished", "check", source, "passed", res.Passed, "message", res.Message)

	return res
}

// withTimeout runs fn under its own deadline. A call that outlives the
// deadline is abandoned and ErrTimeout is returned.
func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) T) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan T, 1)
	go func() {
		done <- fn(ctx)
	}()

	select {
	case v := <-done:
		return v, nil
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %s", ErrTimeout, d)
		}
		return zero, ctx.Err()
	}
}
