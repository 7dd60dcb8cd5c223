// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

// NewRootCommand builds the command tree. The root command itself runs the agent.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "droidpilot",
		Short: "droidpilot drives an Android device toward a goal using a language model.",
		Long: `droidpilot observes the screen of an adb-connected Android device, asks a
language model for the next action and performs it, until the model reports
the goal as done or the step budget runs out.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			// 1. Config file, environment and .env.
			if err := initializeConfig(cmd, v); err != nil {
				observability.InitializeLogger(fallbackLoggerConfig())
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			// 2. Build and validate.
			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(fallbackLoggerConfig())
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			// 3. Command line overrides win over everything else.
			if err := applyFlagOverrides(cmd, cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				observability.InitializeLogger(fallbackLoggerConfig())
				return fmt.Errorf("invalid command line overrides: %w", err)
			}

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Starting droidpilot", zap.String("version", Version))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
		RunE: runAgent,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file with API keys; existing environment variables take precedence")

	rootCmd.Flags().StringP("goal", "g", "", "goal to pursue; read from stdin when omitted")
	rootCmd.Flags().Int("max-steps", 0, "maximum number of observe/decide/act cycles")
	rootCmd.Flags().StringP("serial", "s", "", "adb serial of the target device")
	rootCmd.Flags().String("provider", "", "language model provider (gemini or anthropic)")
	rootCmd.Flags().String("model", "", "language model name")
	rootCmd.Flags().String("tap-policy", "", "tap bounds policy (passthrough or reject_offscreen)")

	rootCmd.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newDevicesCmd())
	rootCmd.AddCommand(newDumpCmd())
	rootCmd.AddCommand(newLogsCmd())
	return rootCmd
}

// Execute runs the command tree with the signal-aware context from main.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	observability.Sync()
	return err
}

// initializeConfig reads the config file, the environment and the dotenv file.
func initializeConfig(cmd *cobra.Command, v *viper.Viper) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("DROIDPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults/env vars
	}

	envFile, _ := cmd.Flags().GetString("env-file")
	if _, err := loadDotEnv(envFile); err != nil {
		return err
	}
	return nil
}

// loadDotEnv exports the variables of a dotenv file that are not already set.
// A missing file is not an error.
func loadDotEnv(path string) (int, error) {
	if path == "" {
		return 0, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}

	dv := viper.New()
	dv.SetConfigFile(path)
	dv.SetConfigType("env")
	if err := dv.ReadInConfig(); err != nil {
		return 0, fmt.Errorf("error reading env file '%s': %w", path, err)
	}

	exported := 0
	for _, key := range dv.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, dv.GetString(key)); err != nil {
			return exported, fmt.Errorf("failed to export %s: %w", name, err)
		}
		exported++
	}
	return exported, nil
}

// applyFlagOverrides copies explicitly set run flags onto the configuration.
func applyFlagOverrides(cmd *cobra.Command, cfg config.Interface) error {
	flags := cmd.Flags()
	if flags.Lookup("max-steps") == nil {
		return nil
	}

	if flags.Changed("max-steps") {
		n, err := flags.GetInt("max-steps")
		if err != nil {
			return err
		}
		cfg.SetAgentMaxSteps(n)
	}
	if flags.Changed("serial") {
		s, _ := flags.GetString("serial")
		cfg.SetDeviceSerial(s)
	}
	if flags.Changed("provider") {
		p, _ := flags.GetString("provider")
		cfg.SetLLMProvider(config.LLMProvider(strings.ToLower(p)))
	}
	if flags.Changed("model") {
		m, _ := flags.GetString("model")
		cfg.SetLLMModel(m)
	}
	if flags.Changed("tap-policy") {
		p, _ := flags.GetString("tap-policy")
		cfg.SetAgentTapPolicy(config.TapPolicy(p))
	}
	return nil
}

// getConfigFromContext returns the configuration stored by PersistentPreRunE.
func getConfigFromContext(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not found in command context")
	}
	return cfg, nil
}

func fallbackLoggerConfig() config.LoggerConfig {
	return config.LoggerConfig{Level: "info", Format: "console", ServiceName: "droidpilot"}
}
