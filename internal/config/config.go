// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/codevolver/api/schemas"
)

// ErrConfigMissing is returned when a value required to reach an external
// service (the API key, mostly) cannot be resolved from any source.
var ErrConfigMissing = errors.New("required configuration missing")

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	LLM() LLMConfig
	Evolver() EvolverConfig
	TTS() TTSConfig

	// Evolver Setters (CLI flag overrides)
	SetEvolvePrompt(string)
	SetSystemInstruction(string)
	SetSelectedVariant(int)
}

// Config holds the entire application configuration.
// Sections are reached through the Interface getters.
type Config struct {
	LoggerCfg  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	LLMCfg     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	EvolverCfg EvolverConfig `mapstructure:"evolver" yaml:"evolver"`
	TTSCfg     TTSConfig     `mapstructure:"tts" yaml:"tts"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) LLM() LLMConfig         { return c.LLMCfg }
func (c *Config) Evolver() EvolverConfig { return c.EvolverCfg }
func (c *Config) TTS() TTSConfig         { return c.TTSCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetEvolvePrompt(p string)      { c.EvolverCfg.EvolvePrompt = p }
func (c *Config) SetSystemInstruction(s string) { c.EvolverCfg.SystemInstruction = s }
func (c *Config) SetSelectedVariant(i int)      { c.EvolverCfg.SelectedVariant = i }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// LLMProvider defines the supported LLM backends.
type LLMProvider string

const (
	// ProviderGemini talks to the Generative Language REST API directly.
	ProviderGemini LLMProvider = "gemini"
	// ProviderGenAI uses the google.golang.org/genai SDK.
	ProviderGenAI LLMProvider = "genai"
)

// LLMConfig defines the configuration for the generation service.
type LLMConfig struct {
	Provider          LLMProvider       `mapstructure:"provider" yaml:"provider"`
	Model             string            `mapstructure:"model" yaml:"model"`
	FastModel         string            `mapstructure:"fast_model" yaml:"fast_model"`
	APIKey            string            `mapstructure:"api_key" yaml:"-"`
	EnvFile           string            `mapstructure:"env_file" yaml:"env_file"`
	Endpoint          string            `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout        time.Duration     `mapstructure:"api_timeout" yaml:"api_timeout"`
	MaxRetryElapsed   time.Duration     `mapstructure:"max_retry_elapsed" yaml:"max_retry_elapsed"`
	RequestsPerSecond float64           `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	EnableSearch      bool              `mapstructure:"enable_search" yaml:"enable_search"`
	SafetyFilters     map[string]string `mapstructure:"safety_filters" yaml:"safety_filters"`
}

// EvolverConfig holds settings for the shader evolution workflow.
type EvolverConfig struct {
	ProjectRoot       string        `mapstructure:"project_root" yaml:"project_root"`
	OutputDir         string        `mapstructure:"output_dir" yaml:"output_dir"`
	SceneFile         string        `mapstructure:"scene_file" yaml:"scene_file"`
	StateFile         string        `mapstructure:"state_file" yaml:"state_file"`
	Slots             int           `mapstructure:"slots" yaml:"slots"`
	Parents           []string      `mapstructure:"parents" yaml:"parents"`
	Template          string        `mapstructure:"template" yaml:"template"`
	SelectedVariant   int           `mapstructure:"selected_variant" yaml:"selected_variant"`
	EvolvePrompt      string        `mapstructure:"evolve_prompt" yaml:"evolve_prompt"`
	SystemInstruction string        `mapstructure:"system_instruction" yaml:"system_instruction"`
	PollInterval      time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	MaxAttempts       int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	ReimportEvery     int           `mapstructure:"reimport_every" yaml:"reimport_every"`
	SettleDelay       time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	DirectorySettle   time.Duration `mapstructure:"directory_settle" yaml:"directory_settle"`
	CompilerCommand   []string      `mapstructure:"compiler_command" yaml:"compiler_command"`
	Watch             bool          `mapstructure:"watch" yaml:"watch"`
}

// OutputPath is the generated-asset directory resolved against the project root.
func (e EvolverConfig) OutputPath() string {
	return resolve(e.ProjectRoot, e.OutputDir)
}

// ScenePath is the scene document path resolved against the project root.
func (e EvolverConfig) ScenePath() string {
	return resolve(e.ProjectRoot, e.SceneFile)
}

func resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// CompilerArgv returns the external validator command line. A single entry
// is split with shell quoting rules, so `compiler_command: "glslc -x 'a b'"`
// works as well as a YAML list.
func (e EvolverConfig) CompilerArgv() ([]string, error) {
	if len(e.CompilerCommand) != 1 {
		return e.CompilerCommand, nil
	}
	argv, err := shellwords.Parse(e.CompilerCommand[0])
	if err != nil {
		return nil, fmt.Errorf("invalid compiler_command %q: %w", e.CompilerCommand[0], err)
	}
	return argv, nil
}

// StatePath is the persisted slot-state file resolved against the project root.
func (e EvolverConfig) StatePath() string {
	return resolve(e.ProjectRoot, e.StateFile)
}

// TTSConfig configures the text-to-speech client.
type TTSConfig struct {
	Endpoint      string        `mapstructure:"endpoint" yaml:"endpoint"`
	LanguageCode  string        `mapstructure:"language_code" yaml:"language_code"`
	AudioEncoding string        `mapstructure:"audio_encoding" yaml:"audio_encoding"`
	APITimeout    time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "codevolver")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- LLM --
	v.SetDefault("llm.provider", string(ProviderGemini))
	v.SetDefault("llm.model", "gemini-2.5-pro")
	v.SetDefault("llm.fast_model", "gemini-2.5-flash")
	v.SetDefault("llm.env_file", ".env")
	v.SetDefault("llm.endpoint", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("llm.api_timeout", "120s")
	v.SetDefault("llm.max_retry_elapsed", "30s")
	v.SetDefault("llm.requests_per_second", 1.0)
	v.SetDefault("llm.enable_search", true)
	v.SetDefault("llm.safety_filters", map[string]string{
		"HARM_CATEGORY_HARASSMENT": "BLOCK_LOW_AND_ABOVE",
	})

	// -- Evolver --
	v.SetDefault("evolver.project_root", ".")
	v.SetDefault("evolver.output_dir", "Assets/GeneratedShaders")
	v.SetDefault("evolver.scene_file", "Assets/Scenes/Evolver.scene.yaml")
	v.SetDefault("evolver.state_file", "Library/CodeEvolver/state.json")
	v.SetDefault("evolver.slots", 3)
	v.SetDefault("evolver.parents", []string{"Variant1", "Variant2", "Variant3"})
	v.SetDefault("evolver.template", "Sphere")
	v.SetDefault("evolver.selected_variant", 0)
	v.SetDefault("evolver.evolve_prompt", "")
	v.SetDefault("evolver.system_instruction", "Generate a simple Unity URP unlit shader in .shader format.")
	v.SetDefault("evolver.poll_interval", "100ms")
	v.SetDefault("evolver.max_attempts", 200)
	v.SetDefault("evolver.reimport_every", 20)
	v.SetDefault("evolver.settle_delay", "500ms")
	v.SetDefault("evolver.directory_settle", "100ms")
	v.SetDefault("evolver.compiler_command", []string{})
	v.SetDefault("evolver.watch", true)

	// -- TTS --
	v.SetDefault("tts.endpoint", "https://texttospeech.googleapis.com/v1beta1")
	v.SetDefault("tts.language_code", "en-US")
	v.SetDefault("tts.audio_encoding", "MP3_64_KBPS")
	v.SetDefault("tts.api_timeout", "60s")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	_ = v.BindEnv("llm.api_key", "CODEVOLVER_LLM_API_KEY", "GEMINI_API_KEY")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) expandPaths() error {
	paths := []*string{&c.EvolverCfg.ProjectRoot, &c.LLMCfg.EnvFile, &c.LoggerCfg.LogFile}
	for _, p := range paths {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
// The API key is deliberately not checked here; it is resolved when a
// client is constructed so unrelated commands keep working without it.
func (c *Config) Validate() error {
	if err := c.LLMCfg.Validate(); err != nil {
		return fmt.Errorf("llm configuration invalid: %w", err)
	}
	if err := c.EvolverCfg.Validate(); err != nil {
		return fmt.Errorf("evolver configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the LLM configuration.
func (l *LLMConfig) Validate() error {
	switch l.Provider {
	case ProviderGemini, ProviderGenAI:
	default:
		return fmt.Errorf("unsupported provider '%s'", l.Provider)
	}
	if l.Model == "" {
		return fmt.Errorf("model is required")
	}
	if l.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative")
	}
	return nil
}

// Validate checks the EvolverConfig settings.
func (e *EvolverConfig) Validate() error {
	if e.Slots <= 0 {
		return fmt.Errorf("slots must be greater than 0")
	}
	if e.SelectedVariant < 0 || e.SelectedVariant >= e.Slots {
		return fmt.Errorf("selected_variant must be within [0, %d)", e.Slots)
	}
	if e.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be a positive duration")
	}
	if e.MaxAttempts <= 0 {
		return fmt.Errorf("max_attempts must be greater than 0")
	}
	if e.ReimportEvery <= 0 {
		return fmt.Errorf("reimport_every must be greater than 0")
	}
	if e.SettleDelay < 0 {
		return fmt.Errorf("settle_delay must not be negative")
	}
	if e.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if _, err := e.CompilerArgv(); err != nil {
		return err
	}
	return nil
}

// ResolveAPIKey returns the configured API key, falling back to the
// `key=...` entry of the dotenv file. It returns ErrConfigMissing when no
// source provides one.
func (l LLMConfig) ResolveAPIKey() (string, error) {
	if key := strings.TrimSpace(l.APIKey); key != "" {
		return key, nil
	}
	if l.EnvFile == "" {
		return "", fmt.Errorf("%w: llm.api_key is not set", ErrConfigMissing)
	}
	if _, err := os.Stat(l.EnvFile); err != nil {
		return "", fmt.Errorf("%w: llm.api_key is not set and %s is unreadable", ErrConfigMissing, l.EnvFile)
	}

	v := viper.New()
	v.SetConfigFile(l.EnvFile)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return "", fmt.Errorf("failed to read env file %s: %w", l.EnvFile, err)
	}
	key := strings.TrimSpace(v.GetString("key"))
	if key == "" {
		return "", fmt.Errorf("%w: key=YOUR_API_KEY not found in %s", ErrConfigMissing, l.EnvFile)
	}
	return key, nil
}

// SafetySettings turns the safety_filters map into request settings,
// upper-cased and sorted by category.
func (l LLMConfig) SafetySettings() []schemas.SafetySetting {
	safety := make([]schemas.SafetySetting, 0, len(l.SafetyFilters))
	for category, threshold := range l.SafetyFilters {
		safety = append(safety, schemas.SafetySetting{
			Category:  strings.ToUpper(category),
			Threshold: strings.ToUpper(threshold),
		})
	}
	sort.Slice(safety, func(i, j int) bool { return safety[i].Category < safety[j].Category })
	return safety
}
