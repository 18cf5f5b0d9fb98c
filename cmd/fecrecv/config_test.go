package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/fecstream/fec"
)

func TestParseConfig_Full(t *testing.T) {
	yaml := `
output: out.wav
listen_addr: ":4010"
sample_rate: 48000
channels: 1
packet_length: 10ms
target_latency: 200ms
no_playback_timeout: 5s
fec:
  scheme: ldpc
  source_packets: 20
  repair_packets: 10
`
	cfg, err := parseConfig(strings.NewReader(yaml))
	require.NoError(t, err)

	rcfg := cfg.receiverConfig()
	assert.Equal(t, uint32(48000), rcfg.OutputSpec.SampleRate)
	assert.Equal(t, 1, rcfg.OutputSpec.NumChannels())
	assert.Equal(t, fec.SchemeLDPCStaircase, rcfg.FECScheme)
	assert.Equal(t, 200*time.Millisecond, rcfg.TargetLatency)
	assert.NoError(t, rcfg.Validate())
}

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := parseConfig(strings.NewReader("output: out.wav\n"))
	require.NoError(t, err)

	assert.Equal(t, ":4010", cfg.ListenAddr)
	assert.Equal(t, uint32(44100), cfg.SampleRate)
	assert.Equal(t, 2, cfg.Channels)
	assert.Equal(t, 100*time.Millisecond, time.Duration(cfg.TargetLatency))
	assert.Equal(t, 2*time.Second, time.Duration(cfg.NoPlaybackTimeout))

	rcfg := cfg.receiverConfig()
	assert.Equal(t, fec.SchemeNone, rcfg.FECScheme)
	assert.NoError(t, rcfg.Validate())
}

func TestParseConfig_Rejections(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "Missing output",
			yaml: `listen_addr: ":4010"`,
		},
		{
			name: "Bad channel count",
			yaml: "output: out.wav\nchannels: 6\n",
		},
		{
			name: "Unknown field",
			yaml: "output: out.wav\nwhatever: true\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseConfig(strings.NewReader(tt.yaml))
			assert.Error(t, err)
		})
	}
}
