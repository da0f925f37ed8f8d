package pipeline

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roc-streaming/roc-toolkit-sub001/internal/feedback"
	"github.com/roc-streaming/roc-toolkit-sub001/internal/receiver"
	"github.com/roc-streaming/roc-toolkit-sub001/internal/resampler"
	"github.com/roc-streaming/roc-toolkit-sub001/internal/rtcpcomm"
	"github.com/roc-streaming/roc-toolkit-sub001/internal/sender"
	"github.com/roc-streaming/roc-toolkit-sub001/internal/tuner"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/fecformat"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/packet"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/rtpformat"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/status"
)

// State is an endpoint set's forward-only lifecycle state.
type State int

// Endpoint set states. An endpoint set never transitions backward.
const (
	StateNew State = iota
	StateConfiguring
	StateActive
	StateClosed
)

// SlotMetrics summarizes one endpoint set's traffic for diagnostics and
// the CLI surface's status output.
type SlotMetrics struct {
	PacketsSent     uint64
	PacketsReceived uint64
	ActiveSessions  int
}

// SenderEndpointSet is the sender-side endpoint set: one AudioSource
// endpoint, an optional AudioRepair endpoint, and an optional AudioControl
// endpoint, bound together into one logical outgoing session, per spec.md
// section 6. Endpoint set configuration is complete only once the source
// endpoint is present and, if a FEC scheme is chosen, the matching repair
// endpoint is too.
type SenderEndpointSet struct {
	mu    sync.Mutex
	state State

	cfg EndpointConfig

	Packetizer  *sender.Packetizer
	FECWriter   *sender.FECWriter
	Interleaver *sender.Interleaver
	Router      *sender.Router
	Tuner       *tuner.Tuner
	Monitor     *feedback.Monitor
	Comm        *rtcpcomm.Communicator

	// Resample sits in front of the Packetizer so every Write applies the
	// tuner's current drift-correction scale, per spec.md section 4.11.
	Resample    *resampler.Writer
	resampleOut *packetizerWriter

	metrics    SlotMetrics
	collectors *slotCollectors
}

// packetizerWriter adapts a sender.Packetizer into a resampler.FrameWriter;
// the resampler only ever carries samples, so the capture timestamp of the
// frame currently in flight is stashed here by Write.
type packetizerWriter struct {
	packetizer *sender.Packetizer
	captureTS  time.Time
}

func (w *packetizerWriter) WriteFrame(samples []float32) error {
	return w.packetizer.Write(sender.Frame{Samples: samples, CaptureTimestamp: w.captureTS})
}

// EnableMetrics registers Prometheus instruments for this endpoint set
// under reg, labelled with slot. Call once, before the set starts
// handling traffic.
func (es *SenderEndpointSet) EnableMetrics(reg *prometheus.Registry, slot string) {
	es.collectors = newSlotCollectors("sender", slot)
	es.collectors.Register(reg)
}

// NewSenderEndpointSet wires the sender pipeline per spec.md's data flow
// Packetizer -> FECWriter -> Interleaver -> Router -> {SourcePort,
// RepairPort}. sourceWriter and repairWriter are the already-bound UDP
// writers for the two logical channels; repairWriter may be nil when
// cfg.FECScheme is packet.FECSchemeNone.
func NewSenderEndpointSet(
	cfg EndpointConfig,
	pool *packet.Pool,
	formats *rtpformat.FormatMap,
	registry fecformat.Registry,
	sourceWriter, repairWriter, controlWriter sender.Writer,
) (*SenderEndpointSet, error) {
	cfg = DeduceDefaults(cfg)

	if cfg.FECScheme != packet.FECSchemeNone && repairWriter == nil {
		return nil, status.Newf(status.BadConfig, "pipeline: fec scheme %v requires a repair endpoint", cfg.FECScheme)
	}

	entry, ok := formats.Lookup(payloadTypeFor(cfg.SampleSpec))
	if !ok {
		return nil, status.Newf(status.BadConfig, "pipeline: no format map entry for sample spec")
	}

	es := &SenderEndpointSet{cfg: cfg, state: StateConfiguring}

	es.Router = sender.NewRouter()
	es.Router.AddRoute(packet.FlagRTP, sourceWriter)
	if repairWriter != nil {
		es.Router.AddRoute(packet.FlagFEC|packet.FlagRepair, repairWriter)
	}
	if controlWriter != nil {
		es.Router.AddRoute(packet.FlagRTCP, controlWriter)
	}

	var downstream sender.Writer = es.Router
	blockSize := cfg.FECBlockSrc + cfg.FECBlockRep
	if cfg.FECScheme != packet.FECSchemeNone && blockSize > 0 {
		es.Interleaver = sender.NewInterleaver(blockSize, es.Router)
		downstream = es.Interleaver
	}

	if cfg.FECScheme != packet.FECSchemeNone {
		symbolLen := int(cfg.SampleSpec.SamplesPerPacket(uint64(cfg.PacketLength.Nanoseconds()))) * cfg.SampleSpec.NumChannels() * cfg.SampleSpec.BytesPerSample()
		es.FECWriter = sender.NewFECWriter(cfg.FECScheme, cfg.FECBlockSrc, cfg.FECBlockRep, symbolLen, registry, pool, downstream)
		downstream = es.FECWriter
	}

	es.Packetizer = sender.NewPacketizer(cfg.SampleSpec, cfg.PacketLength, entry.PayloadType, pool, downstream)

	es.resampleOut = &packetizerWriter{packetizer: es.Packetizer}
	es.Resample = resampler.NewWriter(es.resampleOut, cfg.SampleSpec)

	es.Tuner = tuner.NewTuner(cfg.TunerConfig)
	if err := es.Tuner.Start(); err != nil {
		return nil, err
	}
	es.Monitor = feedback.NewMonitor(es.Tuner)
	es.Comm = rtcpcomm.NewCommunicator(rtcpcomm.RoleSender, 1*time.Second)
	es.Comm.AttachMonitor(es.Monitor)

	es.state = StateActive
	return es, nil
}

// State returns the endpoint set's current lifecycle state.
func (es *SenderEndpointSet) State() State {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.state
}

// Metrics returns a snapshot of the endpoint set's slot metrics.
func (es *SenderEndpointSet) Metrics() SlotMetrics {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.metrics
}

// Write pushes one frame through the sender pipeline, accounting it in
// the slot metrics. Per spec.md section 4.11, every write feeds the
// feedback monitor's tuner and applies its currently published scale to
// the resampler sitting in front of the packetizer.
func (es *SenderEndpointSet) Write(f sender.Frame) error {
	es.resampleOut.captureTS = f.CaptureTimestamp

	scale := es.Monitor.Scale()
	if err := es.Resample.SetScaling(es.cfg.SampleSpec, es.cfg.SampleSpec, scale); err != nil {
		return err
	}
	if err := es.Resample.WriteFrame(f.Samples); err != nil {
		return err
	}

	es.mu.Lock()
	es.metrics.PacketsSent++
	es.mu.Unlock()
	if es.collectors != nil {
		es.collectors.packetsSent.Inc()
	}
	return nil
}

// Close tears down the endpoint set. It is idempotent.
func (es *SenderEndpointSet) Close() {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.state = StateClosed
}

// ReceiverEndpointSet is the receiver-side endpoint set: a session router
// demultiplexing by SSRC, plus the shared configuration template new
// sessions are built from.
type ReceiverEndpointSet struct {
	mu    sync.Mutex
	state State

	cfg EndpointConfig

	Router *receiver.Router
	Comm   *rtcpcomm.Communicator

	metrics    SlotMetrics
	collectors *slotCollectors
}

// EnableMetrics registers Prometheus instruments for this endpoint set
// under reg, labelled with slot. Call once, before the set starts
// handling traffic.
func (rs *ReceiverEndpointSet) EnableMetrics(reg *prometheus.Registry, slot string) {
	rs.collectors = newSlotCollectors("receiver", slot)
	rs.collectors.Register(reg)
}

// NewReceiverEndpointSet wires the receiver session router per spec.md
// section 4.4's per-slot policy and section 4.9's per-session tuner
// configuration.
func NewReceiverEndpointSet(cfg EndpointConfig, pool *packet.Pool, formats *rtpformat.FormatMap, registry fecformat.Registry) *ReceiverEndpointSet {
	cfg = DeduceDefaults(cfg)

	symbolLen := 0
	if cfg.FECScheme != packet.FECSchemeNone {
		symbolLen = int(cfg.SampleSpec.SamplesPerPacket(uint64(cfg.PacketLength.Nanoseconds()))) * cfg.SampleSpec.NumChannels() * cfg.SampleSpec.BytesPerSample()
	}

	sessionCfg := receiver.SessionConfig{
		NetworkSpec:  cfg.SampleSpec,
		OutputSpec:   cfg.SampleSpec,
		Formats:      formats,
		FECScheme:    cfg.FECScheme,
		FECRegistry:  registry,
		FECWindow:    cfg.FECBlockSrc + cfg.FECBlockRep,
		FECSymbolLen: symbolLen,
		Pool:         pool,
		ReorderCap:   cfg.ReorderCapacity,
		ReorderWin:   cfg.ReorderWindow,
		ClockRate:    cfg.SampleSpec.SampleRate,
		Watchdog:     receiver.DefaultWatchdogConfig(),
		TunerConfig:  cfg.TunerConfig,
	}

	rs := &ReceiverEndpointSet{
		cfg:   cfg,
		state: StateActive,
		Router: receiver.NewRouter(sessionCfg, cfg.MaxSessions),
		Comm:  rtcpcomm.NewCommunicator(rtcpcomm.RoleReceiver, 1*time.Second),
	}
	return rs
}

// State returns the endpoint set's current lifecycle state.
func (rs *ReceiverEndpointSet) State() State {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.state
}

// Dispatch forwards an inbound packet to the session router, accounting
// it in the slot metrics.
func (rs *ReceiverEndpointSet) Dispatch(pk *packet.Packet, now time.Time) *receiver.Session {
	sess := rs.Router.Dispatch(pk, now)
	rs.mu.Lock()
	rs.metrics.PacketsReceived++
	rs.metrics.ActiveSessions = len(rs.Router.Sessions())
	active := rs.metrics.ActiveSessions
	rs.mu.Unlock()
	if rs.collectors != nil {
		rs.collectors.packetsReceived.Inc()
		rs.collectors.activeSessions.Set(float64(active))
	}
	return sess
}

// Sweep removes dead or idle sessions, per spec.md section 4.4.
func (rs *ReceiverEndpointSet) Sweep(now time.Time) []uint32 {
	dead := rs.Router.Sweep(now)
	rs.mu.Lock()
	rs.metrics.ActiveSessions = len(rs.Router.Sessions())
	active := rs.metrics.ActiveSessions
	rs.mu.Unlock()
	if rs.collectors != nil {
		rs.collectors.activeSessions.Set(float64(active))
	}
	return dead
}

// Metrics returns a snapshot of the endpoint set's slot metrics.
func (rs *ReceiverEndpointSet) Metrics() SlotMetrics {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.metrics
}

// Close tears down the endpoint set. It is idempotent.
func (rs *ReceiverEndpointSet) Close() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.state = StateClosed
}

func payloadTypeFor(spec interface {
	NumChannels() int
}) uint8 {
	if spec.NumChannels() == 1 {
		return rtpformat.PayloadTypeL16Mono
	}
	return rtpformat.PayloadTypeL16Stereo
}
