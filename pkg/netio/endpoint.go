// Package netio resolves the endpoint URIs of spec.md section 6 (rtp://,
// rtp+rs8m://, rs8m://, rtp+ldpc://, ldpc://, rtcp://) into bound UDP
// sockets, with multicast-group support generalized from gortsplib's
// pkg/multicast (InterfaceForSource, JoinGroup-per-interface) from a
// single RTSP-negotiated multicast track into an arbitrary endpoint set.
package netio

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/ipv4"

	"github.com/roc-streaming/roc-toolkit-sub001/pkg/packet"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/status"
)

// Interface names an endpoint URI resolves to, per spec.md section 6's
// scheme table.
type Interface int

// Endpoint interfaces.
const (
	InterfaceAudioSource Interface = iota
	InterfaceAudioRepair
	InterfaceAudioControl
)

// Endpoint describes one parsed endpoint URI: its interface role, FEC
// scheme (if any), and network address.
type Endpoint struct {
	Interface Interface
	FECScheme packet.FECScheme
	Host      string
	Port      int
}

// ParseEndpoint parses one of spec.md section 6's endpoint URI schemes.
func ParseEndpoint(rawURI string) (Endpoint, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return Endpoint{}, status.Wrap(status.BadConfig, err)
	}

	var ep Endpoint
	switch strings.ToLower(u.Scheme) {
	case "rtp":
		ep.Interface = InterfaceAudioSource
		ep.FECScheme = packet.FECSchemeNone
	case "rtp+rs8m":
		ep.Interface = InterfaceAudioSource
		ep.FECScheme = packet.FECSchemeRS8M
	case "rs8m":
		ep.Interface = InterfaceAudioRepair
		ep.FECScheme = packet.FECSchemeRS8M
	case "rtp+ldpc":
		ep.Interface = InterfaceAudioSource
		ep.FECScheme = packet.FECSchemeLDPCStaircase
	case "ldpc":
		ep.Interface = InterfaceAudioRepair
		ep.FECScheme = packet.FECSchemeLDPCStaircase
	case "rtcp":
		ep.Interface = InterfaceAudioControl
		ep.FECScheme = packet.FECSchemeNone
	default:
		return Endpoint{}, status.Newf(status.BadConfig, "netio: unsupported endpoint scheme %q", u.Scheme)
	}

	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		return Endpoint{}, status.Wrap(status.BadConfig, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Endpoint{}, status.Wrap(status.BadConfig, err)
	}
	ep.Host = host
	ep.Port = port
	return ep, nil
}

// IsMulticast reports whether ep's host resolves to a multicast group
// address.
func (ep Endpoint) IsMulticast() bool {
	ip := net.ParseIP(ep.Host)
	return ip != nil && ip.IsMulticast()
}

// BindUnicast opens a plain unicast UDP socket for ep.
func BindUnicast(ep Endpoint) (*net.UDPConn, error) {
	addr := &net.UDPAddr{IP: net.ParseIP(ep.Host), Port: ep.Port}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return nil, status.Wrap(status.BadConfig, err)
	}
	return conn, nil
}

// BindMulticast opens a multicast-group UDP socket for ep, joining the
// group on every multicast-capable interface, generalizing
// gortsplib's pkg/multicast single-track join to an arbitrary endpoint.
func BindMulticast(ep Endpoint) (*net.UDPConn, *ipv4.PacketConn, error) {
	if !ep.IsMulticast() {
		return nil, nil, status.Newf(status.BadConfig, "netio: %s is not a multicast address", ep.Host)
	}

	conn, err := net.ListenPacket("udp4", fmt.Sprintf("0.0.0.0:%d", ep.Port))
	if err != nil {
		return nil, nil, status.Wrap(status.BadConfig, err)
	}
	udpConn := conn.(*net.UDPConn)
	pktConn := ipv4.NewPacketConn(udpConn)

	intfs, err := net.Interfaces()
	if err != nil {
		udpConn.Close()
		return nil, nil, status.Wrap(status.BadConfig, err)
	}

	group := &net.UDPAddr{IP: net.ParseIP(ep.Host)}
	joined := 0
	for _, intf := range intfs {
		if intf.Flags&net.FlagMulticast == 0 {
			continue
		}
		cintf := intf
		if err := pktConn.JoinGroup(&cintf, group); err == nil {
			joined++
		}
	}
	if joined == 0 {
		udpConn.Close()
		return nil, nil, status.Newf(status.BadConfig, "netio: no multicast-capable interface could join %s", ep.Host)
	}

	return udpConn, pktConn, nil
}

// InterfaceForSource returns a multicast-capable interface that can reach
// the given source IP, for picking the outbound interface of a multicast
// sender.
func InterfaceForSource(ip net.IP) (*net.Interface, error) {
	if ip.IsLoopback() {
		return nil, status.Newf(status.BadConfig, "netio: loopback address cannot source a multicast stream")
	}

	intfs, err := net.Interfaces()
	if err != nil {
		return nil, status.Wrap(status.BadConfig, err)
	}

	for _, intf := range intfs {
		if intf.Flags&net.FlagMulticast == 0 {
			continue
		}
		addrs, err := intf.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			_, ipnet, err := net.ParseCIDR(addr.String())
			if err == nil && ipnet.Contains(ip) {
				cintf := intf
				return &cintf, nil
			}
		}
	}
	return nil, status.Newf(status.NoRoute, "netio: no multicast-capable interface can reach %v", ip)
}
