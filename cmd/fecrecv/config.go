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
	"github.com/opd-ai/fecstream/receiver"
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

// config is the YAML configuration of fecrecv.
type config struct {
	// Output is the WAV file to write.
	Output string `yaml:"output"`

	// ListenAddr is the UDP address both packet flows arrive on.
	ListenAddr string `yaml:"listen_addr"`

	// SampleRate and Channels describe the stream format. Channels is
	// 1 or 2.
	SampleRate uint32 `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`

	// PacketLength is the audio duration of one packet, matching the
	// sender.
	PacketLength duration `yaml:"packet_length"`

	// TargetLatency is the buffering target per session.
	TargetLatency duration `yaml:"target_latency"`

	// NoPlaybackTimeout terminates silent sessions.
	NoPlaybackTimeout duration `yaml:"no_playback_timeout"`

	// FEC must match the sender's scheme and block shape.
	FEC struct {
		Scheme        string `yaml:"scheme"`
		SourcePackets int    `yaml:"source_packets"`
		RepairPackets int    `yaml:"repair_packets"`
	} `yaml:"fec"`

	// Opus decodes packet payloads as Opus instead of raw PCM.
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
		ListenAddr:        ":4010",
		SampleRate:        44100,
		Channels:          2,
		PacketLength:      duration(5 * time.Millisecond),
		TargetLatency:     duration(100 * time.Millisecond),
		NoPlaybackTimeout: duration(2 * time.Second),
		LogLevel:          "info",
	}

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	if cfg.Output == "" {
		return nil, fmt.Errorf("output file not set")
	}
	if cfg.Channels != 1 && cfg.Channels != 2 {
		return nil, fmt.Errorf("channels must be 1 or 2, got %d", cfg.Channels)
	}
	return cfg, nil
}

func (c *config) outputSpec() audio.SampleSpec {
	mask := audio.ChanStereo
	if c.Channels == 1 {
		mask = audio.ChanMono
	}
	return audio.SampleSpec{SampleRate: c.SampleRate, Channels: mask}
}

// receiverConfig maps the file config to a pipeline config.
func (c *config) receiverConfig() receiver.Config {
	scheme, err := fec.ParseScheme(c.FEC.Scheme)
	if err != nil {
		scheme = fec.SchemeNone
	}

	spec := c.outputSpec()
	cfg := receiver.Config{
		OutputSpec:        spec,
		PacketSpec:        spec,
		PacketLength:      time.Duration(c.PacketLength),
		TargetLatency:     time.Duration(c.TargetLatency),
		NoPlaybackTimeout: time.Duration(c.NoPlaybackTimeout),
		FECScheme:         scheme,
		FECBlock: fec.BlockParams{
			SourcePackets: c.FEC.SourcePackets,
			RepairPackets: c.FEC.RepairPackets,
		},
	}

	if c.Opus {
		packetFrames := spec.FramesFor(time.Duration(c.PacketLength))
		cfg.NewPayloadDecoder = func() audio.PayloadDecoder {
			dec, err := opusio.NewDecoder(spec, packetFrames)
			if err != nil {
				panic(fmt.Sprintf("fecrecv: %v", err))
			}
			return dec
		}
	}
	return cfg
}
