package netio

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roc-streaming/roc-toolkit-sub001/pkg/packet"
)

func TestParseEndpointSchemes(t *testing.T) {
	cases := []struct {
		uri       string
		iface     Interface
		fecScheme packet.FECScheme
	}{
		{"rtp://192.168.1.1:10001", InterfaceAudioSource, packet.FECSchemeNone},
		{"rtp+rs8m://192.168.1.1:10001", InterfaceAudioSource, packet.FECSchemeRS8M},
		{"rs8m://192.168.1.1:10002", InterfaceAudioRepair, packet.FECSchemeRS8M},
		{"rtp+ldpc://192.168.1.1:10001", InterfaceAudioSource, packet.FECSchemeLDPCStaircase},
		{"ldpc://192.168.1.1:10002", InterfaceAudioRepair, packet.FECSchemeLDPCStaircase},
		{"rtcp://192.168.1.1:10003", InterfaceAudioControl, packet.FECSchemeNone},
	}

	for _, c := range cases {
		ep, err := ParseEndpoint(c.uri)
		require.NoError(t, err, c.uri)
		require.Equal(t, c.iface, ep.Interface, c.uri)
		require.Equal(t, c.fecScheme, ep.FECScheme, c.uri)
		require.Equal(t, "192.168.1.1", ep.Host)
	}
}

func TestParseEndpointRejectsUnknownScheme(t *testing.T) {
	_, err := ParseEndpoint("ftp://192.168.1.1:21")
	require.Error(t, err)
}

func TestIsMulticastDetectsMulticastAddress(t *testing.T) {
	ep, err := ParseEndpoint("rtp://239.1.1.1:10001")
	require.NoError(t, err)
	require.True(t, ep.IsMulticast())

	ep2, err := ParseEndpoint("rtp://192.168.1.1:10001")
	require.NoError(t, err)
	require.False(t, ep2.IsMulticast())
}
