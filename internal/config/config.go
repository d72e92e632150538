// Package config loads runtime settings from defaults, an optional YAML
// file, DESKMATE_* environment variables, and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// DESKMATE_LLM_PROVIDER.
const EnvPrefix = "DESKMATE"

// Config is the full application configuration.
type Config struct {
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
	Context  string `mapstructure:"context"` // history context name

	LLM      LLMConfig      `mapstructure:"llm"`
	Voice    VoiceConfig    `mapstructure:"voice"`
	Gesture  GestureConfig  `mapstructure:"gesture"`
	Wakeword WakewordConfig `mapstructure:"wakeword"`
	TTS      TTSConfig      `mapstructure:"tts"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Persona  PersonaConfig  `mapstructure:"persona"`
	Bus      BusConfig      `mapstructure:"bus"`
	Desktop  DesktopConfig  `mapstructure:"desktop"`
}

// LLMConfig selects and configures the language-model provider.
type LLMConfig struct {
	Provider      string        `mapstructure:"provider"` // azure, openai, anthropic, gemini
	Model         string        `mapstructure:"model"`
	FallbackModel string        `mapstructure:"fallback_model"`
	APIKey        string        `mapstructure:"api_key"`
	Endpoint      string        `mapstructure:"endpoint"` // azure resource URL or openai base URL
	APIVersion    string        `mapstructure:"api_version"`
	Proxy         string        `mapstructure:"proxy"` // socks5 host:port
	Timeout       time.Duration `mapstructure:"timeout"`
	Temperature   float64       `mapstructure:"temperature"`
	MaxTokens     int           `mapstructure:"max_tokens"`
}

// VoiceConfig configures the voice activation loop.
type VoiceConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Recognizer     string        `mapstructure:"recognizer"` // cli or model
	WhisperBin     string        `mapstructure:"whisper_bin"`
	WhisperModel   string        `mapstructure:"whisper_model"`
	Language       string        `mapstructure:"language"`
	TempDir        string        `mapstructure:"temp_dir"`
	WakeEnabled    bool          `mapstructure:"wake_enabled"`
	WakeWords      []string      `mapstructure:"wake_words"`
	StopPhrase     string        `mapstructure:"stop_phrase"`
	PhraseLimit    time.Duration `mapstructure:"phrase_limit"`
	SilenceTimeout time.Duration `mapstructure:"silence_timeout"`
	Calibration    time.Duration `mapstructure:"calibration"`
	Tones          bool          `mapstructure:"tones"`
	MinThreshold   float64       `mapstructure:"min_threshold"` // lowest mic RMS treated as speech
	EndSilence     time.Duration `mapstructure:"end_silence"`   // trailing silence that ends a phrase
	ClipDir        string        `mapstructure:"clip_dir"`      // saves captured clips when set
}

// GestureConfig configures the camera-driven gesture loop.
type GestureConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Device        string        `mapstructure:"device"`
	InputFormat   string        `mapstructure:"input_format"`
	Width         int           `mapstructure:"width"`
	Height        int           `mapstructure:"height"`
	FPS           int           `mapstructure:"fps"`
	Attention     string        `mapstructure:"attention"`
	Cooldown      time.Duration `mapstructure:"cooldown"`
	MinConfidence float64       `mapstructure:"min_confidence"`
	LandmarkModel string        `mapstructure:"landmark_model"`
	GestureModel  string        `mapstructure:"gesture_model"`
	Dataset       string        `mapstructure:"dataset"`
	OnnxLib       string        `mapstructure:"onnx_lib"`
}

// WakewordConfig configures the optional acoustic hotword detector.
type WakewordConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Model          string        `mapstructure:"model"`
	MelspecModel   string        `mapstructure:"melspec_model"`
	EmbeddingModel string        `mapstructure:"embedding_model"`
	OnnxLib        string        `mapstructure:"onnx_lib"`
	Threshold      float64       `mapstructure:"threshold"`
	Cooldown       time.Duration `mapstructure:"cooldown"`
}

// TTSConfig configures spoken replies.
type TTSConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	AzureKey    string        `mapstructure:"azure_key"`
	AzureRegion string        `mapstructure:"azure_region"`
	Voice       string        `mapstructure:"voice"`
	CacheDir    string        `mapstructure:"cache_dir"`
	DiskCache   bool          `mapstructure:"disk_cache"`
	ChunkSize   int           `mapstructure:"chunk_size"` // characters per synthesis request
	Timeout     time.Duration `mapstructure:"timeout"`
}

// StorageConfig locates persisted state.
type StorageConfig struct {
	Ephemeral     bool   `mapstructure:"ephemeral"`
	Path          string `mapstructure:"path"`
	WorkflowsFile string `mapstructure:"workflows_file"`
	Screenshots   string `mapstructure:"screenshots"`
}

// PersonaConfig configures response shaping.
type PersonaConfig struct {
	Brief bool `mapstructure:"brief"`
}

// BusConfig configures the WebSocket submit bus.
type BusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// DesktopConfig configures the desktop automation collaborators.
type DesktopConfig struct {
	AllowShell      bool          `mapstructure:"allow_shell"` // registers run_command
	ShellTimeout    time.Duration `mapstructure:"shell_timeout"`
	Browser         string        `mapstructure:"browser"`          // chromium binary for WhatsApp Web; empty finds one
	WhatsAppProfile string        `mapstructure:"whatsapp_profile"` // keeps the WhatsApp Web login between runs
	WhatsAppTimeout time.Duration `mapstructure:"whatsapp_timeout"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	dataDir := defaultDataDir()

	v.SetDefault("log_level", "normal")
	v.SetDefault("log_file", filepath.Join(dataDir, "deskmate.log"))
	v.SetDefault("context", "default")

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.fallback_model", "gpt-4o")
	v.SetDefault("llm.api_version", "2024-08-01-preview")
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 1024)

	v.SetDefault("voice.recognizer", "cli")
	v.SetDefault("voice.whisper_bin", "whisper-cli")
	v.SetDefault("voice.whisper_model", "models/ggml-base.en.bin")
	v.SetDefault("voice.language", "en")
	v.SetDefault("voice.temp_dir", filepath.Join(os.TempDir(), "deskmate-stt"))
	v.SetDefault("voice.wake_enabled", true)
	v.SetDefault("voice.wake_words", []string{"hey desk", "hey deskmate", "deskmate", "computer"})
	v.SetDefault("voice.stop_phrase", "stop listening")
	v.SetDefault("voice.phrase_limit", 5*time.Second)
	v.SetDefault("voice.silence_timeout", 1*time.Second)
	v.SetDefault("voice.calibration", 1*time.Second)
	v.SetDefault("voice.tones", true)
	v.SetDefault("voice.min_threshold", 0.015)
	v.SetDefault("voice.end_silence", 600*time.Millisecond)

	v.SetDefault("gesture.device", "/dev/video0")
	v.SetDefault("gesture.input_format", "v4l2")
	v.SetDefault("gesture.width", 320)
	v.SetDefault("gesture.height", 240)
	v.SetDefault("gesture.fps", 10)
	v.SetDefault("gesture.attention", "OPEN_PALM")
	v.SetDefault("gesture.cooldown", 3*time.Second)
	v.SetDefault("gesture.min_confidence", 0.6)
	v.SetDefault("gesture.dataset", filepath.Join(dataDir, "gestures.yaml"))

	v.SetDefault("wakeword.threshold", 0.3)
	v.SetDefault("wakeword.cooldown", 1500*time.Millisecond)

	v.SetDefault("tts.voice", "en-US-AvaNeural")
	v.SetDefault("tts.cache_dir", filepath.Join(dataDir, "tts-cache"))
	v.SetDefault("tts.disk_cache", true)
	v.SetDefault("tts.chunk_size", 200)
	v.SetDefault("tts.timeout", 30*time.Second)

	v.SetDefault("storage.path", filepath.Join(dataDir, "deskmate.db"))
	v.SetDefault("storage.workflows_file", filepath.Join(dataDir, "workflows.yaml"))
	v.SetDefault("storage.screenshots", filepath.Join(dataDir, "screenshots"))

	v.SetDefault("bus.addr", "127.0.0.1:7345")

	v.SetDefault("desktop.shell_timeout", 30*time.Second)
	v.SetDefault("desktop.whatsapp_profile", filepath.Join(dataDir, "whatsapp-profile"))
	v.SetDefault("desktop.whatsapp_timeout", 90*time.Second)
}

// bindEnv maps well-known provider variables onto config keys. The
// DESKMATE_* form always wins because it is listed first.
func bindEnv(v *viper.Viper) error {
	binds := map[string][]string{
		"llm.api_key":      {"DESKMATE_LLM_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "AZURE_OPENAI_KEY"},
		"llm.endpoint":     {"DESKMATE_LLM_ENDPOINT", "AZURE_OPENAI_ENDPOINT"},
		"llm.proxy":        {"DESKMATE_LLM_PROXY", "SOCKS5_PROXY"},
		"tts.azure_key":    {"DESKMATE_TTS_AZURE_KEY", "AZURE_SPEECH_KEY"},
		"tts.azure_region": {"DESKMATE_TTS_AZURE_REGION", "AZURE_SPEECH_REGION"},
	}
	for key, envs := range binds {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("config: binding %s: %w", key, err)
		}
	}
	return nil
}

// Load reads configuration into a Config. If file is empty, deskmate.yaml
// is searched for in the working directory and the user config dir; a
// missing file is not an error. Flags must already be bound to v.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("deskmate")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "deskmate"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the rest of the program cannot work with.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "azure", "openai", "anthropic", "gemini":
	default:
		return fmt.Errorf("config: unknown llm provider %q", c.LLM.Provider)
	}
	if c.LLM.Provider == "azure" && c.LLM.Endpoint == "" {
		return errors.New("config: llm.endpoint is required for the azure provider")
	}
	if c.Gesture.MinConfidence < 0 || c.Gesture.MinConfidence > 1 {
		return fmt.Errorf("config: gesture.min_confidence %.2f outside [0,1]", c.Gesture.MinConfidence)
	}
	if c.Voice.PhraseLimit <= 0 || c.Voice.SilenceTimeout <= 0 {
		return errors.New("config: voice phrase_limit and silence_timeout must be positive")
	}
	return nil
}

func defaultDataDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(dir, ".deskmate")
	}
	return ".deskmate"
}
