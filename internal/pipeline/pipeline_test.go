package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roc-streaming/roc-toolkit-sub001/internal/sender"
	"github.com/roc-streaming/roc-toolkit-sub001/internal/tuner"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/packet"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/samplespec"
)

func testStereoSpec() samplespec.SampleSpec {
	return samplespec.SampleSpec{
		Format:     samplespec.FormatRaw,
		SampleRate: 44100,
		Channels:   samplespec.Stereo(),
	}
}

func TestDeduceDefaultsFillsStructuralFields(t *testing.T) {
	cfg := DeduceDefaults(EndpointConfig{SampleSpec: testStereoSpec()})
	require.Equal(t, 10*time.Millisecond, cfg.PacketLength)
	require.NotZero(t, cfg.TunerConfig.TargetLatency)
	require.Equal(t, 32, cfg.MaxSessions)
}

func TestDeduceDefaultsSetsFECBlockSizesOnlyWhenSchemeChosen(t *testing.T) {
	none := DeduceDefaults(EndpointConfig{SampleSpec: testStereoSpec()})
	require.Zero(t, none.FECBlockSrc)

	withFEC := DeduceDefaults(EndpointConfig{SampleSpec: testStereoSpec(), FECScheme: packet.FECSchemeRS8M})
	require.Equal(t, 20, withFEC.FECBlockSrc)
	require.Equal(t, 10, withFEC.FECBlockRep)
}

type nullWriter struct{ count int }

func (w *nullWriter) Write(pk *packet.Packet) error {
	w.count++
	return nil
}

func TestNewSenderEndpointSetRequiresRepairWriterWhenFECChosen(t *testing.T) {
	pool := packet.NewPool(nil)
	_, err := NewSenderEndpointSet(
		EndpointConfig{SampleSpec: testStereoSpec(), FECScheme: packet.FECSchemeRS8M},
		pool, DefaultFormatMap(), DefaultFECRegistry(),
		&nullWriter{}, nil, nil,
	)
	require.Error(t, err)
}

func TestNewSenderEndpointSetWithoutFECWritesPackets(t *testing.T) {
	pool := packet.NewPool(nil)
	src := &nullWriter{}
	es, err := NewSenderEndpointSet(
		EndpointConfig{SampleSpec: testStereoSpec(), TunerConfig: tuner.Config{TargetLatency: 100 * time.Millisecond, LatencyTolerance: 80 * time.Millisecond}},
		pool, DefaultFormatMap(), DefaultFECRegistry(),
		src, nil, nil,
	)
	require.NoError(t, err)
	require.Equal(t, StateActive, es.State())

	samples := make([]float32, 441*2)
	require.NoError(t, es.Write(sender.Frame{Samples: samples, CaptureTimestamp: time.Now()}))
	require.Equal(t, 1, src.count)
}

func TestNewReceiverEndpointSetDispatchesBySSRC(t *testing.T) {
	pool := packet.NewPool(nil)
	rs := NewReceiverEndpointSet(EndpointConfig{SampleSpec: testStereoSpec()}, pool, DefaultFormatMap(), DefaultFECRegistry())

	pk := packet.New()
	pk.Flags = packet.FlagRTP | packet.FlagAudio
	pk.RTP = &packet.RTPView{SSRC: 42, SeqNum: 1, Timestamp: 0, Payload: make([]byte, 8)}

	now := time.Now()
	sess := rs.Dispatch(pk, now)
	require.NotNil(t, sess)
	require.Equal(t, uint32(42), sess.SSRC)
	require.Equal(t, 1, rs.Metrics().ActiveSessions)
}
