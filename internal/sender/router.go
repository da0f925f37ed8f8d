package sender

import (
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/packet"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/status"
)

// route is one sender-router entry: packets whose flags include every bit
// of Mask, and whose RTP SSRC matches SourceID (once fixed), are forwarded to
// Writer.
type route struct {
	mask     packet.Flags
	writer   Writer
	hasID    bool
	sourceID uint32
	noID     bool // true once a plain-RTCP packet has fixed "no source id"
}

// Router implements spec.md section 4.4's sender-side router: a small
// fixed set of routes, each keyed by a flags mask, that fixes its source
// id from the first packet it forwards.
type Router struct {
	routes []*route
}

// NewRouter allocates an empty Router.
func NewRouter() *Router {
	return &Router{}
}

// AddRoute registers a destination for packets whose flags include every
// bit of mask.
func (r *Router) AddRoute(mask packet.Flags, w Writer) {
	r.routes = append(r.routes, &route{mask: mask, writer: w})
}

// Write implements Writer: forwards pk to every route whose mask matches
// and whose source id is unfixed or matching; drops it otherwise.
func (r *Router) Write(pk *packet.Packet) error {
	forwarded := false
	for _, rt := range r.routes {
		if pk.Flags&rt.mask != rt.mask {
			continue
		}

		if !rt.hasID && !rt.noID {
			if pk.RTP != nil {
				rt.hasID = true
				rt.sourceID = pk.RTP.SSRC
			} else {
				rt.noID = true
			}
		}

		if rt.noID || (rt.hasID && pk.RTP != nil && pk.RTP.SSRC == rt.sourceID) {
			if err := rt.writer.Write(pk); err != nil {
				return err
			}
			forwarded = true
		}
	}
	if !forwarded {
		return status.New(status.NoRoute)
	}
	return nil
}
