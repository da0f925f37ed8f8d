package receiver

import (
	"sync"
	"time"

	"github.com/roc-streaming/roc-toolkit-sub001/internal/resampler"
	"github.com/roc-streaming/roc-toolkit-sub001/internal/tuner"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/chanmap"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/fecformat"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/packet"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/rtpformat"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/samplespec"
)

// SessionConfig carries the per-session pipeline template an endpoint set
// hands to every session it creates, per spec.md section 4.4.
type SessionConfig struct {
	// NetworkSpec is the format the depacketizer decodes packets into. If
	// it differs from OutputSpec in channel layout, a ChannelMapper
	// converts between the two; if it differs in sample rate, the
	// resampler reader compensates in addition to the tuner's drift
	// correction. Zero value defaults to OutputSpec.
	NetworkSpec samplespec.SampleSpec
	OutputSpec  samplespec.SampleSpec

	Formats      *rtpformat.FormatMap
	FECScheme    packet.FECScheme
	FECRegistry  fecformat.Registry
	FECWindow    int
	FECSymbolLen int
	Pool         *packet.Pool
	ReorderCap   int
	ReorderWin   int32
	ClockRate    uint32
	Watchdog     WatchdogConfig
	TunerConfig  tuner.Config
}

// Session is per-SSRC receiver state, wiring spec.md section 3's full
// receiver data flow: ReorderQueue -> LinkMeter -> FECReader ->
// Depacketizer -> ChannelMapper -> Watchdog -> LatencyMonitor (the latency
// tuner) -> ResamplerReader. The mutex guards only the activity timestamp
// and link-meter updates, and is held only for the duration of such an
// update, per spec.md section 5's transaction discipline.
type Session struct {
	SSRC uint32

	mu sync.Mutex

	cfg SessionConfig

	reorder   *ReorderQueue
	linkMeter *LinkMeter
	fecReader *FECReader
	depkt     *Depacketizer
	watchdog  *Watchdog
	tuner     *tuner.Tuner

	upstream *sessionUpstream
	resample *resampler.Reader

	lastActivity time.Time
}

// NewSession constructs a Session from the endpoint set's template.
func NewSession(ssrc uint32, cfg SessionConfig, now time.Time) *Session {
	if cfg.NetworkSpec.SampleRate == 0 {
		cfg.NetworkSpec = cfg.OutputSpec
	}

	depkt := NewDepacketizer(cfg.NetworkSpec, cfg.Formats)
	watchdog := NewWatchdog(cfg.Watchdog, now)

	t := tuner.NewTuner(cfg.TunerConfig)
	_ = t.Start() // DeduceDefaults guarantees positive bounds; a start
	// failure just leaves the tuner publishing its safe 1.0 default scale.

	var mapper *chanmap.Mapper
	if !cfg.NetworkSpec.Channels.Equal(cfg.OutputSpec.Channels) {
		mapper = chanmap.New(cfg.NetworkSpec.Channels, cfg.OutputSpec.Channels)
	}

	upstream := &sessionUpstream{
		depkt:       depkt,
		watchdog:    watchdog,
		tuner:       t,
		mapper:      mapper,
		networkRate: cfg.NetworkSpec.SampleRate,
		networkCh:   cfg.NetworkSpec.NumChannels(),
		outCh:       cfg.OutputSpec.NumChannels(),
	}

	resample := resampler.NewReader(upstream, cfg.OutputSpec)
	_ = resample.SetScaling(cfg.NetworkSpec, cfg.OutputSpec, 1.0)

	return &Session{
		SSRC:         ssrc,
		cfg:          cfg,
		reorder:      NewReorderQueue(cfg.ReorderCap, cfg.ReorderWin),
		linkMeter:    NewLinkMeter(cfg.ClockRate),
		fecReader:    NewFECReader(cfg.FECScheme, cfg.FECRegistry, cfg.Pool, cfg.FECWindow, cfg.FECSymbolLen),
		depkt:        depkt,
		watchdog:     watchdog,
		tuner:        t,
		upstream:     upstream,
		resample:     resample,
		lastActivity: now,
	}
}

// HandlePacket ingests one inbound packet, per spec.md section 4.5's
// ReorderQueue -> LinkMeter -> FECReader data flow. Source packets (those
// carrying an RTP view) are pushed into the reorder queue and released in
// ascending sequence order at the next ReadFrame; a push rejected as too
// late marks the next frame's Drops flag. Repair symbols carry no sequence
// number to key the reorder queue by, so they go straight to the FEC
// reader.
func (s *Session) HandlePacket(pk *packet.Packet, now time.Time) {
	s.mu.Lock()
	s.lastActivity = now
	s.mu.Unlock()

	if pk.RTP == nil {
		for _, ready := range s.fecReader.Push(pk) {
			s.depkt.Push(ready)
		}
		return
	}

	if !s.reorder.Push(pk) {
		s.depkt.MarkLateDrop()
	}
}

// ReadFrame drains whatever source packets the reorder queue has released
// since the last read, meters and FEC-reconstructs each in turn, then
// pulls numSamples (per channel) out through the channel mapper, latency
// tuner and resampler reader, returning whether the session should be torn
// down. The tuner's published scale is re-applied to the resampler before
// every read so drift correction tracks the latest estimate.
func (s *Session) ReadFrame(numSamples int, now time.Time) (Frame, bool, DeathReason) {
	for {
		next := s.reorder.Pop()
		if next == nil {
			break
		}
		s.mu.Lock()
		s.linkMeter.OnPush(uint32(next.RTP.SeqNum), next.RTP.Timestamp, now)
		s.mu.Unlock()
		for _, ready := range s.fecReader.Push(next) {
			s.depkt.Push(ready)
		}
	}

	s.upstream.now = now
	s.upstream.flags = 0
	s.upstream.haveCapture = false
	s.upstream.captureTS = now

	_ = s.resample.SetScaling(s.cfg.NetworkSpec, s.cfg.OutputSpec, s.tuner.Scale())

	outCh := s.cfg.OutputSpec.NumChannels()
	samples, err := s.resample.ReadFrame(numSamples * outCh)
	if err != nil {
		samples = make([]float32, numSamples*outCh)
	}

	frame := Frame{
		Samples:          samples,
		Flags:            s.upstream.flags,
		CaptureTimestamp: s.upstream.captureTS,
		Duration:         time.Duration(numSamples) * time.Second / time.Duration(s.cfg.OutputSpec.SampleRate),
	}

	dead, reason := s.watchdog.Dead()
	return frame, dead, reason
}

// Idle reports whether the session has seen no traffic for longer than
// timeout, for the router's sweep.
func (s *Session) Idle(now time.Time, timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActivity) > timeout
}

// CumulativeLoss and Jitter expose the link meter's observables for the
// RTCP communicator's reception report block.
func (s *Session) CumulativeLoss() int64 { return s.linkMeter.CumulativeLoss() }
func (s *Session) Jitter() float64       { return s.linkMeter.Jitter() }

// NIQLatency exposes the depacketizer's jitter-buffer depth estimate, the
// latency tuner's niq_latency input.
func (s *Session) NIQLatency() time.Duration { return s.depkt.NIQLatency() }

// sessionUpstream adapts a Depacketizer (plus the channel mapper, watchdog
// and latency tuner that sit between it and the resampler reader in
// spec.md section 3's data flow) into a resampler.FrameReader. Each call
// corresponds to one depacketizer read; Session resets its accumulated
// flags/capture-timestamp before every top-level ReadFrame and reads them
// back afterward, since a resample ratio other than 1 may pull zero, one,
// or more than one upstream read to fill one output request.
type sessionUpstream struct {
	depkt    *Depacketizer
	watchdog *Watchdog
	tuner    *tuner.Tuner
	mapper   *chanmap.Mapper

	networkRate uint32
	networkCh   int
	outCh       int

	now         time.Time
	flags       FrameFlags
	captureTS   time.Time
	haveCapture bool
}

// ReadFrame implements resampler.FrameReader. numSamples is the total
// interleaved sample count requested, at the output channel count.
func (u *sessionUpstream) ReadFrame(numSamples int) ([]float32, error) {
	perChannel := numSamples / u.outCh

	frame, err := u.depkt.Read(perChannel)
	if err != nil {
		return nil, err
	}

	u.watchdog.Update(u.now, frame.Flags)
	if dead, _ := u.watchdog.Dead(); !dead {
		niqLatency := u.depkt.NIQLatency()
		niqStalling := u.watchdog.Stalling(u.now)
		duration := time.Duration(perChannel) * time.Second / time.Duration(u.networkRate)
		if err := u.tuner.AdvanceStream(duration, niqLatency, niqStalling); err != nil {
			u.watchdog.Kill(ReasonBoundsExceeded)
		}
	}

	u.flags |= frame.Flags
	if !u.haveCapture {
		u.captureTS = frame.CaptureTimestamp
		u.haveCapture = true
	}

	if u.mapper == nil {
		return frame.Samples, nil
	}
	mapped := make([]float32, perChannel*u.outCh)
	u.mapper.Map(frame.Samples, mapped, perChannel)
	return mapped, nil
}
