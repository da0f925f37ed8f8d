package receiver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roc-streaming/roc-toolkit-sub001/pkg/fecformat"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/packet"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/rtpformat"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/samplespec"
)

func newTestPacket(seq uint16, ts uint32, payload []byte) *packet.Packet {
	pk := packet.New()
	pk.Flags = packet.FlagRTP | packet.FlagAudio
	pk.RTP = &packet.RTPView{
		PayloadType: rtpformat.PayloadTypeL16Mono,
		SeqNum:      seq,
		Timestamp:   ts,
		Payload:     payload,
	}
	return pk
}

func TestReorderQueueOrdersBySeqnum(t *testing.T) {
	q := NewReorderQueue(16, 8)

	require.True(t, q.Push(newTestPacket(10, 0, nil)))
	require.True(t, q.Push(newTestPacket(12, 0, nil)))
	require.True(t, q.Push(newTestPacket(11, 0, nil)))

	require.Equal(t, uint16(10), q.Pop().RTP.SeqNum)
	require.Equal(t, uint16(11), q.Pop().RTP.SeqNum)
	require.Equal(t, uint16(12), q.Pop().RTP.SeqNum)
	require.Nil(t, q.Pop())
}

func TestReorderQueueDropsTooLate(t *testing.T) {
	q := NewReorderQueue(16, 2)

	require.True(t, q.Push(newTestPacket(100, 0, nil)))
	q.Pop()

	require.False(t, q.Push(newTestPacket(95, 0, nil)))
	require.Equal(t, uint64(1), q.LateCount())
}

func TestFECReaderReconstructsMissingSource(t *testing.T) {
	const n, m, symbolLen = 4, 2, 16
	registry := fecformat.NewRegistry()
	codec := registry.Lookup(packet.FECSchemeRS8M)

	source := make([][]byte, n)
	for i := range source {
		source[i] = make([]byte, symbolLen)
		source[i][0] = byte(i + 1)
	}
	repair, err := codec.Encode(source, n, m, symbolLen)
	require.NoError(t, err)

	pool := packet.NewPool(nil)
	reader := NewFECReader(packet.FECSchemeRS8M, registry, pool, 8, symbolLen)

	var lastOut []*packet.Packet
	for i := 0; i < n; i++ {
		if i == 1 {
			continue // drop source symbol 1
		}
		pk := packet.New()
		pk.Flags = packet.FlagRTP
		pk.RTP = &packet.RTPView{Payload: source[i]}
		pk.FEC = &packet.FECView{
			Scheme:            packet.FECSchemeRS8M,
			EncodingSymbolID:  uint16(i),
			SourceBlockNumber: 0,
			SourceBlockLength: n,
			BlockLength:       n + m,
			Payload:           source[i],
		}
		if out := reader.Push(pk); out != nil {
			lastOut = out
		}
	}
	for i := 0; i < m; i++ {
		pk := packet.New()
		pk.Flags = packet.FlagRepair
		pk.FEC = &packet.FECView{
			Scheme:            packet.FECSchemeRS8M,
			EncodingSymbolID:  uint16(i),
			SourceBlockNumber: 0,
			SourceBlockLength: n,
			BlockLength:       n + m,
			Payload:           repair[i],
		}
		if out := reader.Push(pk); out != nil {
			lastOut = out
		}
	}

	require.Len(t, lastOut, n)
	found := false
	for _, pk := range lastOut {
		if pk.RTP.Payload[0] == 2 {
			found = true
			require.True(t, pk.Flags.Has(packet.FlagRestored))
		}
	}
	require.True(t, found, "reconstructed source symbol 1 should be present")
}

func TestWatchdogKillsOnNoPlayback(t *testing.T) {
	now := time.Now()
	cfg := WatchdogConfig{
		NoPlaybackTimeout:     100 * time.Millisecond,
		ChoppyPlaybackWindow:  time.Second,
		ChoppyPlaybackTimeout: time.Second,
		ChoppyFraction:        0.25,
		MaxConsecutiveDrops:   100,
	}
	w := NewWatchdog(cfg, now)

	w.Update(now.Add(50*time.Millisecond), 0)
	dead, _ := w.Dead()
	require.False(t, dead)

	w.Update(now.Add(200*time.Millisecond), FrameBlank)
	dead, reason := w.Dead()
	require.True(t, dead)
	require.Equal(t, ReasonNoPlayback, reason)
}

func TestRouterCreatesSessionPerSSRC(t *testing.T) {
	cfg := SessionConfig{
		OutputSpec:   samplespec.SampleSpec{Format: samplespec.FormatPcm, PcmSubformat: samplespec.PcmSInt16BE, SampleRate: 44100, Channels: samplespec.Mono()},
		Formats:      rtpformat.NewDefaultMap(),
		FECScheme:    packet.FECSchemeNone,
		FECRegistry:  fecformat.NewRegistry(),
		FECWindow:    8,
		FECSymbolLen: 1500,
		Pool:         packet.NewPool(nil),
		ReorderCap:   64,
		ReorderWin:   32,
		ClockRate:    44100,
		Watchdog:     DefaultWatchdogConfig(),
	}
	r := NewRouter(cfg, 0)

	pk1 := newTestPacket(1, 0, make([]byte, 4))
	pk1.RTP.SSRC = 111
	pk2 := newTestPacket(1, 0, make([]byte, 4))
	pk2.RTP.SSRC = 222

	now := time.Now()
	r.Dispatch(pk1, now)
	r.Dispatch(pk2, now)

	_, ok1 := r.Session(111)
	_, ok2 := r.Session(222)
	require.True(t, ok1)
	require.True(t, ok2)
	require.Len(t, r.Sessions(), 2)
}
