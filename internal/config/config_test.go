package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 5*time.Second, cfg.Voice.PhraseLimit)
	assert.Equal(t, time.Second, cfg.Voice.SilenceTimeout)
	assert.Equal(t, "stop listening", cfg.Voice.StopPhrase)
	assert.Equal(t, 600*time.Millisecond, cfg.Voice.EndSilence)
	assert.True(t, cfg.TTS.DiskCache)
	assert.Equal(t, 200, cfg.TTS.ChunkSize)
	assert.Equal(t, 30*time.Second, cfg.TTS.Timeout)
	assert.Equal(t, "OPEN_PALM", cfg.Gesture.Attention)
	assert.InDelta(t, 0.6, cfg.Gesture.MinConfidence, 1e-9)
	assert.NotEmpty(t, cfg.Voice.WakeWords)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deskmate.yaml")
	yaml := `
llm:
  provider: anthropic
  model: claude-3-5-haiku-latest
voice:
  wake_words: ["hey box"]
  phrase_limit: 3s
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("DESKMATE_LLM_MODEL", "from-env")
	t.Setenv("DESKMATE_LLM_API_KEY", "secret")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "from-env", cfg.LLM.Model)
	assert.Equal(t, "secret", cfg.LLM.APIKey)
	assert.Equal(t, []string{"hey box"}, cfg.Voice.WakeWords)
	assert.Equal(t, 3*time.Second, cfg.Voice.PhraseLimit)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"ok", func(*Config) {}, false},
		{"bad provider", func(c *Config) { c.LLM.Provider = "mystery" }, true},
		{"azure without endpoint", func(c *Config) { c.LLM.Provider = "azure" }, true},
		{"confidence out of range", func(c *Config) { c.Gesture.MinConfidence = 1.5 }, true},
		{"zero phrase limit", func(c *Config) { c.Voice.PhraseLimit = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				LLM:     LLMConfig{Provider: "openai"},
				Voice:   VoiceConfig{PhraseLimit: time.Second, SilenceTimeout: time.Second},
				Gesture: GestureConfig{MinConfidence: 0.6},
			}
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
