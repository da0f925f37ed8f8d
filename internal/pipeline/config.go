// Package pipeline implements the control-plane layer of spec.md section
// 4.14: endpoint-set lifecycle (creation, slot accounting, teardown),
// configuration defaulting that wires internal/tuner.DeduceDefaults and
// the rtpformat/fecformat registries into one construction call, and the
// transcoder/converter sink convenience pipeline. Grounded on gortsplib's
// server_session.go for the forward-only session lifecycle shape
// (state field guarded by a mutex, torn down once on timeout or explicit
// close) and on serverconf.go for the zero-value defaulting pattern.
package pipeline

import (
	"time"

	"github.com/roc-streaming/roc-toolkit-sub001/internal/tuner"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/fecformat"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/packet"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/rtpformat"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/samplespec"
)

// deploymentDefaultTargetLatency is the fallback used by DeduceDefaults
// when a caller hasn't been configured with a site-specific default.
const deploymentDefaultTargetLatency = 200 * time.Millisecond

// EndpointConfig configures one endpoint set (sender or receiver side of
// one logical session), per spec.md section 6's endpoint-set contract.
type EndpointConfig struct {
	SampleSpec   samplespec.SampleSpec
	PacketLength time.Duration

	FECScheme    packet.FECScheme
	FECBlockSrc  int // N
	FECBlockRep  int // M

	TunerConfig tuner.Config
	IsSender    bool

	MaxSessions       int
	NoPlaybackTimeout time.Duration
	ReorderWindow     int32
	ReorderCapacity   int
}

// DeduceDefaults fills zero-valued fields, per spec.md section 4.9's
// defaulting rules (via internal/tuner.DeduceDefaults) plus the pipeline's
// own structural defaults (packet length, FEC block sizes, session caps).
func DeduceDefaults(cfg EndpointConfig) EndpointConfig {
	if cfg.PacketLength == 0 {
		cfg.PacketLength = 10 * time.Millisecond
	}
	if cfg.FECScheme != packet.FECSchemeNone {
		if cfg.FECBlockSrc == 0 {
			cfg.FECBlockSrc = 20
		}
		if cfg.FECBlockRep == 0 {
			cfg.FECBlockRep = 10
		}
	}
	cfg.TunerConfig = tuner.DeduceDefaults(cfg.TunerConfig, deploymentDefaultTargetLatency, cfg.IsSender)

	if cfg.MaxSessions == 0 {
		cfg.MaxSessions = 32
	}
	if cfg.NoPlaybackTimeout == 0 {
		cfg.NoPlaybackTimeout = 2 * time.Second
	}
	if cfg.ReorderWindow == 0 {
		cfg.ReorderWindow = 100
	}
	if cfg.ReorderCapacity == 0 {
		cfg.ReorderCapacity = 256
	}
	return cfg
}

// DefaultFormatMap returns the payload-type table every endpoint set
// shares, per spec.md section 6's closed payload-type set.
func DefaultFormatMap() *rtpformat.FormatMap {
	return rtpformat.NewDefaultMap()
}

// DefaultFECRegistry returns the block codec registry every endpoint set
// shares.
func DefaultFECRegistry() fecformat.Registry {
	return fecformat.NewRegistry()
}
