package sender

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roc-streaming/roc-toolkit-sub001/internal/arena"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/fecformat"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/packet"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/rtpformat"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/samplespec"
)

type collectingWriter struct {
	packets []*packet.Packet
}

func (c *collectingWriter) Write(pk *packet.Packet) error {
	c.packets = append(c.packets, pk)
	return nil
}

func TestPacketizerEmitsOnePacketPerAccumulatorFill(t *testing.T) {
	spec := samplespec.SampleSpec{
		Format:       samplespec.FormatPcm,
		PcmSubformat: samplespec.PcmSInt16BE,
		SampleRate:   1000,
		Channels:     samplespec.Mono(),
	}
	pool := packet.NewPool(nil)
	out := &collectingWriter{}
	pz := NewPacketizer(spec, 10*time.Millisecond, rtpformat.PayloadTypeL16Mono, pool, out)

	// samples_per_packet = 1000 * 0.010 = 10 samples
	err := pz.Write(Frame{Samples: make([]float32, 25), CaptureTimestamp: time.Now()})
	require.NoError(t, err)
	require.Len(t, out.packets, 2)

	for i, pk := range out.packets {
		require.True(t, pk.Flags.Has(packet.FlagRTP))
		require.Equal(t, uint16(i), pk.RTP.SeqNum-out.packets[0].RTP.SeqNum)
		if i == 0 {
			require.True(t, pk.RTP.Marker)
		} else {
			require.False(t, pk.RTP.Marker)
		}
	}
}

func TestFECWriterProducesRepairPackets(t *testing.T) {
	const n, m, symbolLen = 4, 2, 32
	pool := packet.NewPool(nil)
	out := &collectingWriter{}
	fw := NewFECWriter(packet.FECSchemeRS8M, n, m, symbolLen, fecformat.NewRegistry(), pool, out)

	for i := 0; i < n; i++ {
		pk := packet.New()
		pk.Flags = packet.FlagRTP
		pk.RTP = &packet.RTPView{Payload: make([]byte, symbolLen)}
		require.NoError(t, fw.Write(pk))
	}

	require.Len(t, out.packets, n+m)
	for i := 0; i < n; i++ {
		require.False(t, out.packets[i].Flags.Has(packet.FlagRepair))
	}
	for i := n; i < n+m; i++ {
		require.True(t, out.packets[i].Flags.Has(packet.FlagRepair))
	}
}

func TestRouterFixesSourceIDFromFirstPacket(t *testing.T) {
	r := NewRouter()
	out := &collectingWriter{}
	r.AddRoute(packet.FlagRTP, out)

	pk1 := packet.New()
	pk1.Flags = packet.FlagRTP
	pk1.RTP = &packet.RTPView{SSRC: 42}
	require.NoError(t, r.Write(pk1))

	pk2 := packet.New()
	pk2.Flags = packet.FlagRTP
	pk2.RTP = &packet.RTPView{SSRC: 99}
	err := r.Write(pk2)
	require.Error(t, err)

	require.Len(t, out.packets, 1)
}

func TestMemLimiterBoundsPacketPool(t *testing.T) {
	limiter := arena.NewMemLimiter(1500)
	pool := packet.NewPool(limiter)

	_, err := pool.Get()
	require.NoError(t, err)

	_, err = pool.Get()
	require.Error(t, err)
}
