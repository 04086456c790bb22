package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/layoutkit/internal/config"
	"github.com/zjrosen/layoutkit/internal/log"
	"github.com/zjrosen/layoutkit/internal/presentation"
)

// DefaultConfigPath is where init writes, and where extensions add saves
// when no config file was loaded.
const DefaultConfigPath = ".layoutkit/config.yaml"

var (
	version    = "dev"
	cfgFile    string
	debugFlag  bool
	logFile    string
	logLevel   string
	formatFlag string
	cfg        config.Config

	logCleanup func()
)

var rootCmd = &cobra.Command{
	Use:   "layoutkit",
	Short: "Index and resolve layout sections, templates and snippets",
	Long: `layoutkit discovers page-builder resources from the active theme, registered
extensions and the built-in core, and resolves each id to one winning
definition: theme first, then extensions in registration order, then core.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if logCleanup != nil {
			logCleanup()
			logCleanup = nil
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .layoutkit/config.yaml, then ~/.config/layoutkit/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false,
		"enable debug logging (also LAYOUTKIT_DEBUG)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"debug log path (default: layoutkit.log in the cache dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "debug",
		"minimum debug log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", presentation.FormatJSON,
		"output format: json or text")
}

func initConfig() {
	viper.Reset()

	defaults := config.Defaults()
	viper.SetDefault("theme.root", defaults.Theme.Root)
	viper.SetDefault("theme.schemas_dir", defaults.Theme.SchemasDir)
	viper.SetDefault("theme.sections_dir", defaults.Theme.SectionsDir)
	viper.SetDefault("theme.templates_dir", defaults.Theme.TemplatesDir)
	viper.SetDefault("theme.snippets_dir", defaults.Theme.SnippetsDir)
	viper.SetDefault("theme.schema_location", defaults.Theme.SchemaLocation)
	viper.SetDefault("theme.label", defaults.Theme.Label)
	viper.SetDefault("core.label", defaults.Core.Label)
	viper.SetDefault("cache.backend", defaults.Cache.Backend)
	viper.SetDefault("cache.ttl", defaults.Cache.TTL)
	viper.SetDefault("metrics.namespace", defaults.Metrics.Namespace)
	viper.SetDefault("debug", false)

	// LAYOUTKIT_DEBUG, LAYOUTKIT_CACHE_BACKEND, ...
	viper.SetEnvPrefix("LAYOUTKIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .layoutkit/config.yaml (current directory)
		// 2. ~/.config/layoutkit/config.yaml (user config)
		if _, err := os.Stat(DefaultConfigPath); err == nil {
			viper.SetConfigFile(DefaultConfigPath)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "layoutkit"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// Reported again by setup so the command fails with context
			log.WarnErr(log.CatConfig, "Failed to read config", err, "path", viper.ConfigFileUsed())
		}
	}

	cfg = config.Defaults()
	_ = viper.Unmarshal(&cfg)
}

// setup validates the loaded config and starts logging before any command runs.
func setup(cmd *cobra.Command, _ []string) error {
	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := presentation.ParseFormat(formatFlag); err != nil {
		return err
	}

	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return err
	}

	if debugFlag || cfg.Debug {
		if logFile != "" {
			cfg.LogFile = logFile
		}
		path := cfg.LogPath()
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
		cleanup, err := log.Init(path)
		if err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		logCleanup = cleanup
		log.SetMinLevel(level)
		log.Info(log.CatConfig, "layoutkit starting", "command", cmd.Name(),
			"config", viper.ConfigFileUsed(), "version", version)
	}
	return nil
}

// configPath returns the file extensions add writes to.
func configPath() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return DefaultConfigPath
}

func newFormatter(cmd *cobra.Command) *presentation.Formatter {
	format, _ := presentation.ParseFormat(formatFlag)
	return presentation.NewFormatter(cmd.OutOrStdout(), format)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
