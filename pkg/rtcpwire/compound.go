package rtcpwire

import (
	"github.com/pion/rtcp"

	"github.com/roc-streaming/roc-toolkit-sub001/pkg/status"
)

// Compound is a parsed RTCP compound packet: the well-known packet types
// via github.com/pion/rtcp, plus any extended reports this package parses
// itself (see xr.go).
type Compound struct {
	SenderReports      []*rtcp.SenderReport
	ReceiverReports    []*rtcp.ReceiverReport
	SourceDescriptions []*rtcp.SourceDescription
	Goodbyes           []*rtcp.Goodbye
	ExtendedReports    []ExtendedReport
}

// Marshal serializes a compound packet: pion/rtcp packets first, in the
// order supplied, followed by this package's extended reports.
func Marshal(c Compound) ([]byte, error) {
	var packets []rtcp.Packet
	for _, p := range c.SenderReports {
		packets = append(packets, p)
	}
	for _, p := range c.ReceiverReports {
		packets = append(packets, p)
	}
	for _, p := range c.SourceDescriptions {
		packets = append(packets, p)
	}
	for _, p := range c.Goodbyes {
		packets = append(packets, p)
	}

	buf, err := rtcp.Marshal(packets)
	if err != nil {
		return nil, status.Wrap(status.BadBuffer, err)
	}

	for _, xr := range c.ExtendedReports {
		buf = append(buf, xr.Marshal()...)
	}
	return buf, nil
}

// Parse decodes a compound RTCP packet. Packet types this package doesn't
// understand are skipped; XR packets carrying block types this package
// doesn't recognize still parse, with unrecognized blocks ignored (see
// ParseExtendedReport).
func Parse(buf []byte) (Compound, error) {
	var out Compound

	for len(buf) >= 4 {
		length := ((int(buf[2])<<8 | int(buf[3])) + 1) * 4
		if length > len(buf) {
			return Compound{}, status.New(status.BadBuffer)
		}
		chunk := buf[:length]
		pt := buf[1]

		if pt == ptXR {
			xr, err := ParseExtendedReport(chunk)
			if err != nil {
				return Compound{}, err
			}
			out.ExtendedReports = append(out.ExtendedReports, xr)
		} else {
			pkts, err := rtcp.Unmarshal(chunk)
			if err != nil {
				return Compound{}, status.Wrap(status.BadProtocol, err)
			}
			for _, p := range pkts {
				switch v := p.(type) {
				case *rtcp.SenderReport:
					out.SenderReports = append(out.SenderReports, v)
				case *rtcp.ReceiverReport:
					out.ReceiverReports = append(out.ReceiverReports, v)
				case *rtcp.SourceDescription:
					out.SourceDescriptions = append(out.SourceDescriptions, v)
				case *rtcp.Goodbye:
					out.Goodbyes = append(out.Goodbyes, v)
				}
			}
		}
		buf = buf[length:]
	}
	return out, nil
}
