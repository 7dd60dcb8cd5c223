// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Device() DeviceConfig
	Agent() AgentConfig

	// Agent Setters
	SetAgentMaxSteps(int)
	SetAgentTapPolicy(TapPolicy)

	// Device Setters
	SetDeviceSerial(string)

	// LLM Setters
	SetLLMProvider(LLMProvider)
	SetLLMModel(string)
}

// Config holds the entire application configuration.
// It uses private fields to enforce access through the Interface's getter methods.
type Config struct {
	logger LoggerConfig
	device DeviceConfig
	agent  AgentConfig

	// keyFromEnv is set when the API key came from the provider's own variable.
	keyFromEnv bool
}

// fileConfig mirrors Config with exported fields so viper (mapstructure) and
// yaml can reach them. Config keeps its fields private behind the getters.
type fileConfig struct {
	Logger LoggerConfig `mapstructure:"logger" yaml:"logger"`
	Device DeviceConfig `mapstructure:"device" yaml:"device"`
	Agent  AgentConfig  `mapstructure:"agent" yaml:"agent"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig { return c.logger }
func (c *Config) Device() DeviceConfig { return c.device }
func (c *Config) Agent() AgentConfig   { return c.agent }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetAgentMaxSteps(n int)        { c.agent.MaxSteps = n }
func (c *Config) SetAgentTapPolicy(p TapPolicy) { c.agent.TapPolicy = p }
func (c *Config) SetDeviceSerial(s string)      { c.device.Serial = s }
func (c *Config) SetLLMModel(m string)          { c.agent.LLM.Model = m }

// SetLLMProvider switches the provider. A key taken from the previous
// provider's environment variable is replaced by the new provider's one, and
// an unset model or the previous provider's default model follows the switch.
func (c *Config) SetLLMProvider(p LLMProvider) {
	if p == c.agent.LLM.Provider {
		return
	}
	previous := c.agent.LLM.Provider
	c.agent.LLM.Provider = p
	if m := c.agent.LLM.Model; m == "" || m == DefaultModelFor(previous) {
		c.agent.LLM.Model = DefaultModelFor(p)
	}
	if c.keyFromEnv || c.agent.LLM.APIKey == "" {
		c.agent.LLM.APIKey = providerKeyFromEnv(p)
		c.keyFromEnv = c.agent.LLM.APIKey != ""
	}
}

// Snapshot returns an exported copy of the configuration suitable for
// serialization. Secrets are redacted.
func (c *Config) Snapshot() any {
	snap := fileConfig{Logger: c.logger, Device: c.device, Agent: c.agent}
	if snap.Agent.LLM.APIKey != "" {
		snap.Agent.LLM.APIKey = "[REDACTED]"
	}
	return snap
}

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

// DeviceConfig describes how to reach the device through adb and where the
// UI dump is staged on both ends.
type DeviceConfig struct {
	ADBPath        string        `mapstructure:"adb_path" yaml:"adb_path"`
	Serial         string        `mapstructure:"serial" yaml:"serial"`
	RemoteDumpPath string        `mapstructure:"remote_dump_path" yaml:"remote_dump_path"`
	LocalDumpPath  string        `mapstructure:"local_dump_path" yaml:"local_dump_path"`
	CommandTimeout time.Duration `mapstructure:"command_timeout" yaml:"command_timeout"`
}

// TapPolicy controls whether tap coordinates are checked against the
// last observed screen before being sent to the device.
type TapPolicy string

const (
	// TapPolicyPassthrough forwards every tap to the device unchanged.
	TapPolicyPassthrough TapPolicy = "passthrough"
	// TapPolicyRejectOffscreen drops taps outside the observed element bounds.
	TapPolicyRejectOffscreen TapPolicy = "reject_offscreen"
)

// AgentConfig holds settings related to the control loop and its oracle.
type AgentConfig struct {
	MaxSteps     int            `mapstructure:"max_steps" yaml:"max_steps"`
	StepDelay    time.Duration  `mapstructure:"step_delay" yaml:"step_delay"`
	WaitDuration time.Duration  `mapstructure:"wait_duration" yaml:"wait_duration"`
	TapPolicy    TapPolicy      `mapstructure:"tap_policy" yaml:"tap_policy"`
	MaxElements  int            `mapstructure:"max_elements" yaml:"max_elements"`
	LLM          LLMModelConfig `mapstructure:"llm" yaml:"llm"`
}

// LLMProvider defines the supported LLM providers.
type LLMProvider string

const (
	ProviderGemini    LLMProvider = "gemini"
	ProviderAnthropic LLMProvider = "anthropic"
)

// LLMModelConfig defines the configuration for the decision oracle's model.
type LLMModelConfig struct {
	Provider          LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model             string        `mapstructure:"model" yaml:"model"`
	APIKey            string        `mapstructure:"api_key" yaml:"api_key"`
	Endpoint          string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout        time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature       float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens         int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	RequestsPerMinute float64       `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// ErrMissingAPIKey is returned when no credential is available for the configured provider.
var ErrMissingAPIKey = errors.New("no API key configured for the LLM provider")

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	cfg, err := unmarshal(v)
	if err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "droidpilot")
	v.SetDefault("logger.log_file", "droidpilot.log")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "magenta")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Device --
	v.SetDefault("device.adb_path", "adb")
	v.SetDefault("device.serial", "")
	v.SetDefault("device.remote_dump_path", "/sdcard/window_dump.xml")
	v.SetDefault("device.local_dump_path", "window_dump.xml")
	v.SetDefault("device.command_timeout", "0s")

	// -- Agent --
	v.SetDefault("agent.max_steps", 10)
	v.SetDefault("agent.step_delay", "2s")
	v.SetDefault("agent.wait_duration", "2s")
	v.SetDefault("agent.tap_policy", string(TapPolicyPassthrough))
	v.SetDefault("agent.max_elements", 150)

	// -- Agent LLM --
	v.SetDefault("agent.llm.provider", string(ProviderGemini))
	// Empty means the provider's default, see DefaultModelFor.
	v.SetDefault("agent.llm.model", "")
	v.SetDefault("agent.llm.api_timeout", "0s")
	v.SetDefault("agent.llm.temperature", 0.2)
	v.SetDefault("agent.llm.max_tokens", 1024)
	v.SetDefault("agent.llm.requests_per_minute", 0)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Bind environment variables for sensitive data
	v.BindEnv("agent.llm.api_key", "DROIDPILOT_AGENT_LLM_API_KEY")

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Provider specific keys are the conventional way to hand over credentials.
	if cfg.agent.LLM.APIKey == "" {
		cfg.agent.LLM.APIKey = providerKeyFromEnv(cfg.agent.LLM.Provider)
		cfg.keyFromEnv = cfg.agent.LLM.APIKey != ""
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, err
	}
	if fc.Agent.LLM.Model == "" {
		fc.Agent.LLM.Model = DefaultModelFor(fc.Agent.LLM.Provider)
	}
	return &Config{logger: fc.Logger, device: fc.Device, agent: fc.Agent}, nil
}

// Default models per provider.
const (
	DefaultGeminiModel    = "gemini-2.5-flash"
	DefaultAnthropicModel = "claude-sonnet-4-5-20250929"
)

// DefaultModelFor returns the model used when none is configured. Unknown
// providers get no default and fail validation on the model instead.
func DefaultModelFor(p LLMProvider) string {
	switch p {
	case ProviderGemini:
		return DefaultGeminiModel
	case ProviderAnthropic:
		return DefaultAnthropicModel
	default:
		return ""
	}
}

// providerKeyFromEnv looks up the provider's conventional API key variable.
func providerKeyFromEnv(p LLMProvider) string {
	switch p {
	case ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
			return key
		}
		return os.Getenv("GEMINI_API_KEY")
	}
}

// Validate checks the configuration for required fields and sane values.
// It does not require an API key; commands that talk to the oracle call
// RequireAPIKey separately.
func (c *Config) Validate() error {
	if err := c.device.Validate(); err != nil {
		return fmt.Errorf("device configuration invalid: %w", err)
	}
	if err := c.agent.Validate(); err != nil {
		return fmt.Errorf("agent configuration invalid: %w", err)
	}
	return nil
}

// RequireAPIKey reports ErrMissingAPIKey when the oracle has no credential.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.agent.LLM.APIKey) == "" {
		return fmt.Errorf("%w (%s)", ErrMissingAPIKey, c.agent.LLM.Provider)
	}
	return nil
}

// Validate checks the device settings.
func (d *DeviceConfig) Validate() error {
	if d.ADBPath == "" {
		return fmt.Errorf("device.adb_path is required")
	}
	if d.RemoteDumpPath == "" || d.LocalDumpPath == "" {
		return fmt.Errorf("device.remote_dump_path and device.local_dump_path are required")
	}
	if d.CommandTimeout < 0 {
		return fmt.Errorf("device.command_timeout must not be negative")
	}
	return nil
}

// Validate checks the AgentConfig settings.
func (a *AgentConfig) Validate() error {
	if a.MaxSteps <= 0 {
		return fmt.Errorf("agent.max_steps must be a positive integer")
	}
	if a.StepDelay < 0 || a.WaitDuration < 0 {
		return fmt.Errorf("agent.step_delay and agent.wait_duration must not be negative")
	}
	if a.MaxElements < 0 {
		return fmt.Errorf("agent.max_elements must not be negative")
	}
	switch a.TapPolicy {
	case TapPolicyPassthrough, TapPolicyRejectOffscreen:
	default:
		return fmt.Errorf("agent.tap_policy must be %q or %q, got %q", TapPolicyPassthrough, TapPolicyRejectOffscreen, a.TapPolicy)
	}
	return a.LLM.Validate()
}

// Validate checks the LLM model settings.
func (l *LLMModelConfig) Validate() error {
	switch l.Provider {
	case ProviderGemini, ProviderAnthropic:
	default:
		return fmt.Errorf("agent.llm.provider %q is not supported. Supported: [%s, %s]", l.Provider, ProviderGemini, ProviderAnthropic)
	}
	if l.Model == "" {
		return fmt.Errorf("agent.llm.model is required")
	}
	if l.RequestsPerMinute < 0 {
		return fmt.Errorf("agent.llm.requests_per_minute must not be negative")
	}
	if l.Provider == ProviderAnthropic && l.MaxTokens <= 0 {
		return fmt.Errorf("agent.llm.max_tokens must be positive for the anthropic provider")
	}
	return nil
}
