package tuner

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/roc-streaming/roc-toolkit-sub001/internal/ccr"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/status"
)

// State is one of the latency tuner's forward-only lifecycle states, per
// spec.md section 4.9.
type State int

// Tuner states. The tuner never transitions backward.
const (
	StateUninitialized State = iota
	StateValidating
	StateRunning
	StateTerminated
)

// Backend selects which latency metric drives the control loop.
type Backend int

// Supported backends.
const (
	BackendNiq Backend = iota
	BackendE2e
)

// Config bounds a Tuner's behavior, per spec.md section 4.9.
type Config struct {
	TargetLatency     time.Duration
	LatencyTolerance  time.Duration
	StaleTolerance    time.Duration
	ScalingInterval   time.Duration
	ScalingTolerance  float64
	Profile           Profile
	Backend           Backend
}

// DeduceDefaults fills zero-valued fields per spec.md section 4.9's
// defaulting rules, given a deployment default target latency and whether
// this tuner runs on the sender (tolerance doubled) or the receiver.
func DeduceDefaults(cfg Config, deploymentDefault time.Duration, isSender bool) Config {
	if cfg.TargetLatency == 0 {
		cfg.TargetLatency = deploymentDefault
	}
	if cfg.LatencyTolerance == 0 {
		t := float64(cfg.TargetLatency) / float64(time.Millisecond)
		tol := t * math.Log(400) / math.Log(2*t)
		cfg.LatencyTolerance = time.Duration(tol * float64(time.Millisecond))
		if isSender {
			cfg.LatencyTolerance *= 2
		}
	}
	if cfg.StaleTolerance == 0 {
		cfg.StaleTolerance = cfg.LatencyTolerance / 4
	}
	if cfg.ScalingInterval == 0 {
		cfg.ScalingInterval = 20 * time.Millisecond
	}
	if cfg.ScalingTolerance == 0 {
		cfg.ScalingTolerance = 0.005
	}
	if cfg.Profile == ProfileIntact && cfg.Backend == BackendNiq {
		if cfg.TargetLatency < 30*time.Millisecond {
			cfg.Profile = ProfileResponsive
		} else {
			cfg.Profile = ProfileGradual
		}
	}
	if cfg.Backend == BackendE2e {
		cfg.Profile = ProfileResponsive
	}
	return cfg
}

// Tuner is the per-session latency control loop: bounds-checks the current
// latency, feeds it through the frequency estimator, and publishes a
// clamped scale factor via a seqlock for lock-free consumption by the
// resampler.
type Tuner struct {
	cfg       Config
	state     atomic.Int32
	estimator *FreqEstimator
	scale     ccr.FloatSeqLock

	sinceLastSample time.Duration
	staleActive     bool

	termReason string
}

// NewTuner constructs a Tuner in state Uninitialized.
func NewTuner(cfg Config) *Tuner {
	t := &Tuner{cfg: cfg, estimator: NewFreqEstimator(cfg.TargetLatency.Seconds(), cfg.Profile)}
	t.scale.Store(1.0)
	return t
}

// Start validates the configuration and transitions Uninitialized ->
// Validating -> Running.
func (t *Tuner) Start() error {
	if State(t.state.Load()) != StateUninitialized {
		return status.New(status.BadOperation)
	}
	t.state.Store(int32(StateValidating))

	if t.cfg.TargetLatency <= 0 || t.cfg.LatencyTolerance <= 0 {
		t.state.Store(int32(StateTerminated))
		return status.Newf(status.BadConfig, "tuner: target_latency and latency_tolerance must be positive")
	}

	t.state.Store(int32(StateRunning))
	return nil
}

// State returns the tuner's current lifecycle state.
func (t *Tuner) State() State { return State(t.state.Load()) }

// AdvanceStream implements spec.md section 4.9's advance_stream algorithm.
// latency is the current reading of the chosen backend's metric; niqStalling
// is used to decide whether bounds checks are temporarily suspended.
func (t *Tuner) AdvanceStream(duration time.Duration, latency time.Duration, niqStalling time.Duration) error {
	if State(t.state.Load()) != StateRunning {
		return status.New(status.BadOperation)
	}

	t.staleActive = niqStalling > t.cfg.StaleTolerance

	lower := t.cfg.TargetLatency - t.cfg.LatencyTolerance
	upper := t.cfg.TargetLatency + t.cfg.LatencyTolerance
	if !t.staleActive && (latency < lower || latency > upper) {
		t.state.Store(int32(StateTerminated))
		t.termReason = "bounds exceeded"
		return status.Newf(status.BadOperation, "tuner: latency %v outside [%v, %v]", latency, lower, upper)
	}

	t.sinceLastSample += duration
	for t.sinceLastSample >= t.cfg.ScalingInterval {
		t.sinceLastSample -= t.cfg.ScalingInterval

		raw := t.estimator.Update(latency.Seconds())
		clamped := clamp(raw, 1-t.cfg.ScalingTolerance, 1+t.cfg.ScalingTolerance)
		t.scale.Store(clamped)
	}
	return nil
}

// Scale returns the currently published scale factor, guaranteed within
// [1-scaling_tolerance, 1+scaling_tolerance].
func (t *Tuner) Scale() float64 { return t.scale.Load() }

// TerminationReason returns why the tuner terminated, if it has.
func (t *Tuner) TerminationReason() string { return t.termReason }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
