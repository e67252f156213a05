package cmd

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/scusemua/workload-generator/internal/domain"
)

const (
	// EnvironmentFileVariable names the environment file to load. Defaults to DefaultEnvironmentFile.
	EnvironmentFileVariable = "WORKLOAD_GENERATOR_ENV_FILE"
	DefaultEnvironmentFile  = ".env"

	// ConfigFileVariable is consulted for a YAML configuration file when --yaml is not given.
	ConfigFileVariable = "WORKLOAD_GENERATOR_CONFIG"
)

var (
	opts = domain.GetDefaultConfig()
	atom = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// RootCmd is the top-level CLI command.
var RootCmd = &cobra.Command{
	Use:          "workload-generator",
	Short:        "Generate synthetic training workloads for the workload driver",
	SilenceUsage: true,
}

func init() {
	opts.BindFlags(RootCmd.PersistentFlags())
}

// loadEnvironment loads the environment file, if there is one.
func loadEnvironment() error {
	envFile := os.Getenv(EnvironmentFileVariable)
	if envFile == "" {
		envFile = DefaultEnvironmentFile
	}

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

// prepareConfiguration finalizes the configuration of the given command: it loads the environment and the
// YAML file, reconciles the rate and inter-arrival time options, and sets the log level.
func prepareConfiguration(cmd *cobra.Command, config *domain.Configuration, level *zap.AtomicLevel) error {
	if err := loadEnvironment(); err != nil {
		return err
	}

	// An explicit --iat replaces the default rate; an explicit --rate still takes precedence.
	flags := cmd.Flags()
	if flags.Changed("iat") && !flags.Changed("rate") {
		config.Rates = []float64{}
	}

	if config.YAML == "" {
		config.YAML = os.Getenv(ConfigFileVariable)
	}

	if err := config.LoadYAML(); err != nil {
		return err
	}

	if config.Debug {
		level.SetLevel(zapcore.DebugLevel)
	} else {
		level.SetLevel(zapcore.InfoLevel)
	}

	return nil
}
