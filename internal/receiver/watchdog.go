package receiver

import "time"

// DeathReason names why a Watchdog declared a session dead, for the
// info-level log spec.md section 7 requires.
type DeathReason string

// Reasons a session can be declared dead.
const (
	ReasonBoundsExceeded  DeathReason = "bounds exceeded"
	ReasonNoPlayback      DeathReason = "no playback"
	ReasonChoppyPlayback  DeathReason = "choppy playback"
)

// WatchdogConfig bounds the three rolling deadlines of spec.md section 4.8.
type WatchdogConfig struct {
	NoPlaybackTimeout     time.Duration
	ChoppyPlaybackWindow  time.Duration
	ChoppyPlaybackTimeout time.Duration
	ChoppyFraction        float64 // default 0.25
	MaxConsecutiveDrops   int
}

// DefaultWatchdogConfig matches spec.md's stated defaults.
func DefaultWatchdogConfig() WatchdogConfig {
	return WatchdogConfig{
		NoPlaybackTimeout:     2 * time.Second,
		ChoppyPlaybackWindow:  1 * time.Second,
		ChoppyPlaybackTimeout: 2 * time.Second,
		ChoppyFraction:        0.25,
		MaxConsecutiveDrops:   10,
	}
}

// Watchdog tracks the three rolling deadlines that can kill a session.
type Watchdog struct {
	cfg WatchdogConfig

	lastNonBlank time.Time
	choppySince  time.Time
	choppyActive bool
	window       []choppySample
	consecDrops  int

	dead   bool
	reason DeathReason
}

type choppySample struct {
	at     time.Time
	choppy bool
}

// NewWatchdog allocates a Watchdog, considering playback healthy as of
// now.
func NewWatchdog(cfg WatchdogConfig, now time.Time) *Watchdog {
	return &Watchdog{cfg: cfg, lastNonBlank: now}
}

// Update feeds one frame's outcome into the watchdog, checked after every
// depacketizer read.
func (w *Watchdog) Update(now time.Time, flags FrameFlags) {
	if w.dead {
		return
	}

	if flags&FrameBlank == 0 {
		w.lastNonBlank = now
	} else if now.Sub(w.lastNonBlank) > w.cfg.NoPlaybackTimeout {
		w.kill(ReasonNoPlayback)
		return
	}

	if flags&FrameDrops != 0 {
		w.consecDrops++
		if w.consecDrops > w.cfg.MaxConsecutiveDrops {
			w.kill(ReasonNoPlayback)
			return
		}
	} else {
		w.consecDrops = 0
	}

	choppy := flags&(FrameIncomplete|FrameDrops) != 0
	w.window = append(w.window, choppySample{at: now, choppy: choppy})

	cutoff := now.Add(-w.cfg.ChoppyPlaybackWindow)
	i := 0
	for i < len(w.window) && w.window[i].at.Before(cutoff) {
		i++
	}
	w.window = w.window[i:]

	choppyCount := 0
	for _, s := range w.window {
		if s.choppy {
			choppyCount++
		}
	}
	frac := 0.0
	if len(w.window) > 0 {
		frac = float64(choppyCount) / float64(len(w.window))
	}

	if frac > w.cfg.ChoppyFraction {
		if !w.choppyActive {
			w.choppyActive = true
			w.choppySince = now
		} else if now.Sub(w.choppySince) > w.cfg.ChoppyPlaybackTimeout {
			w.kill(ReasonChoppyPlayback)
		}
	} else {
		w.choppyActive = false
	}
}

func (w *Watchdog) kill(reason DeathReason) {
	w.dead = true
	w.reason = reason
}

// Kill declares the session dead for reason, regardless of the rolling
// deadlines above. Used by the latency tuner's bounds-exceeded failure,
// per spec.md section 4.9.
func (w *Watchdog) Kill(reason DeathReason) {
	if w.dead {
		return
	}
	w.kill(reason)
}

// Stalling reports how long playback has gone without a non-blank frame,
// the niq_stalling input to the latency tuner's burst-absorbing mode.
func (w *Watchdog) Stalling(now time.Time) time.Duration {
	return now.Sub(w.lastNonBlank)
}

// Dead reports whether the watchdog has declared the session dead, and
// why.
func (w *Watchdog) Dead() (bool, DeathReason) { return w.dead, w.reason }
