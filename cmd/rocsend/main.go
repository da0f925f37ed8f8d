// Command rocsend is the sender-side CLI collaborator of spec.md section
// 6: it parses endpoint/pipeline configuration, binds the endpoints, wires
// a SenderEndpointSet, logs that it is ready and exits. It does not read an
// input source or send any frames. Flag parsing uses the standard library's flag package since no
// third-party CLI framework appears anywhere in the example corpus.
package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/roc-streaming/roc-toolkit-sub001/internal/pipeline"
	"github.com/roc-streaming/roc-toolkit-sub001/internal/sender"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/logging"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/netio"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/packet"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/samplespec"
)

const (
	exitOK         = 0
	exitConfigOrIO = 1
	exitBadArgs    = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("rocsend", flag.ContinueOnError)
	sourceURI := fs.String("source", "", "rtp:// or rtp+rs8m:// or rtp+ldpc:// endpoint URI (required)")
	repairURI := fs.String("repair", "", "rs8m:// or ldpc:// endpoint URI (required when source uses FEC)")
	controlURI := fs.String("control", "", "rtcp:// endpoint URI (optional)")
	packetLength := fs.Duration("packet-length", 10*time.Millisecond, "packet length")
	targetLatency := fs.Duration("target-latency", 0, "target latency (0 = deployment default)")
	sampleRate := fs.Uint("rate", 44100, "sample rate")
	stereo := fs.Bool("stereo", true, "stereo (false = mono)")
	verbosity := fs.String("verbosity", "info", "log level: trace, debug, info, warn, error")
	metricsAddr := fs.String("metrics-addr", "", "address to serve Prometheus /metrics on (empty disables)")

	if err := fs.Parse(args); err != nil {
		return exitBadArgs
	}
	if *sourceURI == "" {
		fmt.Fprintln(os.Stderr, "rocsend: -source is required")
		return exitBadArgs
	}

	level, err := zerolog.ParseLevel(*verbosity)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rocsend: invalid -verbosity:", err)
		return exitBadArgs
	}
	logging.SetLevel(level)
	log := logging.Component("rocsend")

	srcEndpoint, err := netio.ParseEndpoint(*sourceURI)
	if err != nil {
		log.Error().Err(err).Msg("invalid source endpoint")
		return exitBadArgs
	}
	srcConn, err := netio.BindUnicast(srcEndpoint)
	if err != nil {
		log.Error().Err(err).Msg("failed to bind source endpoint")
		return exitConfigOrIO
	}
	defer srcConn.Close()

	var repairConn *net.UDPConn
	if *repairURI != "" {
		repairEndpoint, err := netio.ParseEndpoint(*repairURI)
		if err != nil {
			log.Error().Err(err).Msg("invalid repair endpoint")
			return exitBadArgs
		}
		repairConn, err = netio.BindUnicast(repairEndpoint)
		if err != nil {
			log.Error().Err(err).Msg("failed to bind repair endpoint")
			return exitConfigOrIO
		}
		defer repairConn.Close()
	}

	spec := samplespec.SampleSpec{Format: samplespec.FormatRaw, SampleRate: uint32(*sampleRate)}
	if *stereo {
		spec.Channels = samplespec.Stereo()
	} else {
		spec.Channels = samplespec.Mono()
	}

	cfg := pipeline.EndpointConfig{
		SampleSpec:   spec,
		PacketLength: *packetLength,
		FECScheme:    srcEndpoint.FECScheme,
	}
	cfg.TunerConfig.TargetLatency = *targetLatency
	cfg.IsSender = true

	pool := packet.NewPool(nil)

	sourceWriter := &udpPacketWriter{conn: srcConn}
	var repairWriter sender.Writer
	if repairConn != nil {
		repairWriter = &udpPacketWriter{conn: repairConn}
	}

	es, err := pipeline.NewSenderEndpointSet(cfg, pool, pipeline.DefaultFormatMap(), pipeline.DefaultFECRegistry(), sourceWriter, repairWriter, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to construct sender endpoint set")
		return exitConfigOrIO
	}
	defer es.Close()

	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		es.EnableMetrics(reg, "source")
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Warn().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	log.Info().Str("source", *sourceURI).Msg("rocsend ready")
	return exitOK
}

// udpPacketWriter adapts a *net.UDPConn to sender.Writer. It sends the
// packet's Bytes field as is and does not serialize the RTP/FEC views;
// a packet whose Bytes is empty is skipped without error.
type udpPacketWriter struct {
	conn *net.UDPConn
	dest *net.UDPAddr
}

func (w *udpPacketWriter) Write(pk *packet.Packet) error {
	if len(pk.Bytes) == 0 {
		return nil
	}
	_, err := w.conn.Write(pk.Bytes)
	return err
}
