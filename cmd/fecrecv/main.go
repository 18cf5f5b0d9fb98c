// Command fecrecv receives a FEC-protected UDP stream into a WAV file.
//
// It listens on a UDP socket, feeds source and repair packets into the
// receiving pipeline, and writes the mixed output of all peers to the
// output file at the stream's real-time rate until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/opd-ai/fecstream/audio"
	"github.com/opd-ai/fecstream/packet"
	"github.com/opd-ai/fecstream/receiver"
	"github.com/opd-ai/fecstream/transport"
	"github.com/opd-ai/fecstream/wav"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "fecrecv.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fecrecv: %v\n", err)
		return 1
	}
	setupLogging(cfg.LogLevel)

	rcv, err := receiver.NewReceiver(cfg.receiverConfig())
	if err != nil {
		logrus.WithError(err).Error("Cannot create receiver")
		return 1
	}

	slot := rcv.CreateSlot()
	srcEp, err := slot.CreateEndpoint(packet.RoleSource)
	if err != nil {
		logrus.WithError(err).Error("Cannot create source endpoint")
		return 1
	}
	repEp, err := slot.CreateEndpoint(packet.RoleRepair)
	if err != nil {
		logrus.WithError(err).Error("Cannot create repair endpoint")
		return 1
	}

	tr, err := transport.NewUDPTransport(cfg.ListenAddr)
	if err != nil {
		logrus.WithError(err).Error("Cannot bind UDP socket")
		return 1
	}
	defer tr.Close()
	tr.RegisterWriter(packet.RoleSource, srcEp.Writer())
	tr.RegisterWriter(packet.RoleRepair, repEp.Writer())

	sink, err := wav.CreateSink(cfg.Output, cfg.outputSpec())
	if err != nil {
		logrus.WithError(err).Error("Cannot create output file")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pump(ctx, rcv, sink, cfg.outputSpec())
	})

	err = g.Wait()
	slot.Close()
	if cerr := sink.Close(); cerr != nil {
		logrus.WithError(cerr).Error("Output close failed")
		return 1
	}
	if err != nil && ctx.Err() == nil {
		logrus.WithError(err).Error("Receiving failed")
		return 1
	}

	logrus.Info("Receiver stopped")
	return 0
}

// pump pulls frames at the stream's real-time rate and writes them to
// the sink until the context is cancelled.
func pump(ctx context.Context, rcv *receiver.Receiver, sink *wav.Sink, spec audio.SampleSpec) error {
	frameLen := 10 * time.Millisecond
	f := audio.SilentFrame(spec, spec.FramesFor(frameLen))

	ticker := time.NewTicker(frameLen)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		rcv.ReadFrame(f)
		if err := sink.WriteFrame(f); err != nil {
			return err
		}
	}
}

func setupLogging(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}
