// Command rocrecv is the receiver-side CLI collaborator of spec.md
// section 6: it binds the endpoint set's UDP sockets, pumps inbound
// datagrams through the parser and session router, and periodically
// sweeps dead sessions. Flag parsing uses the standard library's flag
// package since no third-party CLI framework appears in the corpus.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/roc-streaming/roc-toolkit-sub001/internal/pipeline"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/logging"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/netio"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/packet"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/rtpformat"
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
	fs := flag.NewFlagSet("rocrecv", flag.ContinueOnError)
	sourceURI := fs.String("source", "", "rtp:// or rtp+rs8m:// or rtp+ldpc:// endpoint URI (required)")
	repairURI := fs.String("repair", "", "rs8m:// or ldpc:// endpoint URI (required when source uses FEC)")
	targetLatency := fs.Duration("target-latency", 200*time.Millisecond, "target latency")
	sampleRate := fs.Uint("rate", 44100, "sample rate")
	stereo := fs.Bool("stereo", true, "stereo (false = mono)")
	verbosity := fs.String("verbosity", "info", "log level: trace, debug, info, warn, error")
	metricsAddr := fs.String("metrics-addr", "", "address to serve Prometheus /metrics on (empty disables)")

	if err := fs.Parse(args); err != nil {
		return exitBadArgs
	}
	if *sourceURI == "" {
		fmt.Fprintln(os.Stderr, "rocrecv: -source is required")
		return exitBadArgs
	}

	level, err := zerolog.ParseLevel(*verbosity)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rocrecv: invalid -verbosity:", err)
		return exitBadArgs
	}
	logging.SetLevel(level)
	log := logging.Component("rocrecv")

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

	if *repairURI != "" {
		repairEndpoint, err := netio.ParseEndpoint(*repairURI)
		if err != nil {
			log.Error().Err(err).Msg("invalid repair endpoint")
			return exitBadArgs
		}
		repairConn, err := netio.BindUnicast(repairEndpoint)
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
		FECScheme:    srcEndpoint.FECScheme,
	}
	cfg.TunerConfig.TargetLatency = *targetLatency

	pool := packet.NewPool(nil)
	rs := pipeline.NewReceiverEndpointSet(cfg, pool, pipeline.DefaultFormatMap(), pipeline.DefaultFECRegistry())
	defer rs.Close()

	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		rs.EnableMetrics(reg, "source")
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Warn().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	log.Info().Str("source", *sourceURI).Msg("rocrecv ready")

	go sweepLoop(rs)

	buf := make([]byte, 2048)
	for {
		n, _, err := srcConn.ReadFromUDP(buf)
		if err != nil {
			log.Error().Err(err).Msg("read failed")
			return exitConfigOrIO
		}
		pk, err := pool.Get()
		if err != nil {
			log.Warn().Err(err).Msg("packet pool exhausted, dropping datagram")
			continue
		}
		pk.Bytes = append(pk.Bytes[:0], buf[:n]...)
		now := time.Now()
		if err := (rtpformat.Parser{}).Parse(pk, now); err != nil {
			pool.Release(pk)
			continue
		}
		rs.Dispatch(pk, now)
	}
}

func sweepLoop(rs *pipeline.ReceiverEndpointSet) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		rs.Sweep(time.Now())
	}
}

