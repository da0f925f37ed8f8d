package receiver

import (
	"sync"
	"time"

	"github.com/roc-streaming/roc-toolkit-sub001/pkg/packet"
)

// Router demultiplexes inbound packets onto per-SSRC sessions, creating
// them on demand and sweeping out idle ones, per spec.md section 4.4's
// receiver session router. Lookup is O(1) amortized via a map.
type Router struct {
	mu       sync.Mutex
	sessions map[uint32]*Session
	cfg      SessionConfig

	noPlaybackTimeout time.Duration
	maxSessions       int
}

// NewRouter allocates a Router bound to a session template.
func NewRouter(cfg SessionConfig, maxSessions int) *Router {
	return &Router{
		sessions:          make(map[uint32]*Session),
		cfg:               cfg,
		noPlaybackTimeout: cfg.Watchdog.NoPlaybackTimeout,
		maxSessions:       maxSessions,
	}
}

// Dispatch looks up or creates the session for pk's SSRC and feeds it the
// packet. Returns the session, or nil if pk has no RTP view or no session
// could be created (slot policy exhausted).
func (r *Router) Dispatch(pk *packet.Packet, now time.Time) *Session {
	if pk.RTP == nil {
		return nil
	}
	ssrc := pk.RTP.SSRC

	r.mu.Lock()
	sess, ok := r.sessions[ssrc]
	if !ok {
		if r.maxSessions > 0 && len(r.sessions) >= r.maxSessions {
			r.mu.Unlock()
			return nil
		}
		sess = NewSession(ssrc, r.cfg, now)
		r.sessions[ssrc] = sess
	}
	r.mu.Unlock()

	sess.HandlePacket(pk, now)
	return sess
}

// Sweep removes sessions that are either idle past no_playback_timeout or
// whose watchdog has independently declared them dead.
func (r *Router) Sweep(now time.Time) []uint32 {
	var removed []uint32

	r.mu.Lock()
	defer r.mu.Unlock()

	for ssrc, sess := range r.sessions {
		dead, _ := sess.watchdog.Dead()
		if dead || sess.Idle(now, r.noPlaybackTimeout) {
			delete(r.sessions, ssrc)
			removed = append(removed, ssrc)
		}
	}
	return removed
}

// Session returns the session for ssrc, if any.
func (r *Router) Session(ssrc uint32) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[ssrc]
	return sess, ok
}

// Sessions returns a snapshot of all active sessions, for the RTCP
// communicator's participant table.
func (r *Router) Sessions() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
