package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/opd-ai/fecstream/audio"
	"github.com/opd-ai/fecstream/audio/opusio"
	"github.com/opd-ai/fecstream/fec"
	"github.com/opd-ai/fecstream/sender"
)

// duration parses YAML scalars like "10ms" into a time.Duration,
// which yaml.v3 does not do natively.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = duration(v)
	return nil
}

// config is the YAML configuration of fecsend.
type config struct {
	// Input is the WAV file to stream.
	Input string `yaml:"input"`

	// BindAddr is the local UDP address, default any port.
	BindAddr string `yaml:"bind_addr"`

	// SourceAddr and RepairAddr are the receiver's endpoints.
	SourceAddr string `yaml:"source_addr"`
	RepairAddr string `yaml:"repair_addr"`

	// PacketLength is the audio duration of one packet.
	PacketLength duration `yaml:"packet_length"`

	// FEC selects the erasure coding scheme and block shape.
	FEC struct {
		Scheme        string `yaml:"scheme"`
		SourcePackets int    `yaml:"source_packets"`
		RepairPackets int    `yaml:"repair_packets"`
	} `yaml:"fec"`

	// Interleaving reorders packets within coding blocks.
	Interleaving bool `yaml:"interleaving"`

	// Opus encodes packet payloads with Opus instead of raw PCM. The
	// input must then be at an Opus-supported rate.
	Opus bool `yaml:"opus"`

	// LogLevel is a logrus level name, default info.
	LogLevel string `yaml:"log_level"`
}

func loadConfig(path string) (*config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()
	return parseConfig(f)
}

func parseConfig(r io.Reader) (*config, error) {
	cfg := &config{
		BindAddr:     ":0",
		PacketLength: duration(5 * time.Millisecond),
		LogLevel:     "info",
	}

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	if cfg.Input == "" {
		return nil, fmt.Errorf("input file not set")
	}
	if cfg.SourceAddr == "" {
		return nil, fmt.Errorf("source_addr not set")
	}
	if cfg.FEC.Scheme != "" && cfg.FEC.Scheme != "none" && cfg.RepairAddr == "" {
		return nil, fmt.Errorf("repair_addr required with fec scheme %q", cfg.FEC.Scheme)
	}
	return cfg, nil
}

// senderConfig maps the file config to a pipeline config for the
// given input spec.
func (c *config) senderConfig(spec audio.SampleSpec) (sender.Config, error) {
	scheme := fec.SchemeNone
	if c.FEC.Scheme != "" {
		s, err := fec.ParseScheme(c.FEC.Scheme)
		if err != nil {
			return sender.Config{}, err
		}
		scheme = s
	}

	cfg := sender.Config{
		InputSpec:    spec,
		PacketSpec:   spec,
		PacketLength: time.Duration(c.PacketLength),
		FECScheme:    scheme,
		FECBlock: fec.BlockParams{
			SourcePackets: c.FEC.SourcePackets,
			RepairPackets: c.FEC.RepairPackets,
		},
		Interleaving: c.Interleaving,
	}

	if c.Opus {
		packetFrames := spec.FramesFor(time.Duration(c.PacketLength))
		cfg.NewPayloadEncoder = func() audio.PayloadEncoder {
			enc, err := opusio.NewEncoder(spec, packetFrames)
			if err != nil {
				panic(fmt.Sprintf("fecsend: %v", err))
			}
			return enc
		}
	}
	return cfg, nil
}
