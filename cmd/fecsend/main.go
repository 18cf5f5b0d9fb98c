// Command fecsend streams a WAV file over UDP with FEC protection.
//
// It reads the input file, slices it into fixed-length packets,
// derives repair packets with the configured erasure scheme, and
// transmits both flows in real time to the receiver's endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/opd-ai/fecstream/audio"
	"github.com/opd-ai/fecstream/packet"
	"github.com/opd-ai/fecstream/sender"
	"github.com/opd-ai/fecstream/transport"
	"github.com/opd-ai/fecstream/wav"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "fecsend.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fecsend: %v\n", err)
		return 1
	}
	setupLogging(cfg.LogLevel)

	src, err := wav.OpenSource(cfg.Input)
	if err != nil {
		logrus.WithError(err).Error("Cannot open input file")
		return 1
	}
	defer src.Close()

	sndCfg, err := cfg.senderConfig(src.Spec())
	if err != nil {
		logrus.WithError(err).Error("Invalid configuration")
		return 1
	}

	snd, err := sender.NewSender(sndCfg)
	if err != nil {
		logrus.WithError(err).Error("Cannot create sender")
		return 1
	}

	tr, err := transport.NewUDPTransport(cfg.BindAddr)
	if err != nil {
		logrus.WithError(err).Error("Cannot bind UDP socket")
		return 1
	}
	defer tr.Close()

	if err := bindSlot(snd, tr, cfg); err != nil {
		logrus.WithError(err).Error("Cannot bind slot endpoints")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pump(ctx, src, snd)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logrus.WithError(err).Error("Streaming failed")
		return 1
	}
	if err := snd.Close(); err != nil {
		logrus.WithError(err).Error("Sender close failed")
		return 1
	}

	logrus.Info("Stream finished")
	return 0
}

// bindSlot creates the slot and wires both endpoints to the transport.
func bindSlot(snd *sender.Sender, tr *transport.UDPTransport, cfg *config) error {
	slot, err := snd.CreateSlot()
	if err != nil {
		return err
	}

	bind := func(ep *sender.Endpoint, addr string) error {
		dest, err := net.ResolveUDPAddr("udp", addr)
		if err != nil {
			return fmt.Errorf("resolve %q: %w", addr, err)
		}
		if err := ep.SetDestinationWriter(tr); err != nil {
			return err
		}
		return ep.SetDestinationAddress(dest)
	}

	srcEp, err := slot.CreateEndpoint(packet.RoleSource)
	if err != nil {
		return err
	}
	if err := bind(srcEp, cfg.SourceAddr); err != nil {
		return err
	}

	if cfg.FEC.Scheme != "" && cfg.FEC.Scheme != "none" {
		repEp, err := slot.CreateEndpoint(packet.RoleRepair)
		if err != nil {
			return err
		}
		if err := bind(repEp, cfg.RepairAddr); err != nil {
			return err
		}
	}
	return nil
}

// pump feeds the file to the sender at the stream's real-time rate.
func pump(ctx context.Context, src *wav.Source, snd *sender.Sender) error {
	spec := src.Spec()
	frameLen := 10 * time.Millisecond
	frames := spec.FramesFor(frameLen)
	f := audio.SilentFrame(spec, frames)

	ticker := time.NewTicker(frameLen)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if !src.ReadFrame(f) {
			return nil
		}
		if err := snd.WriteFrame(f); err != nil {
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
