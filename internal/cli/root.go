package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

const envPrefix = "XPKG"

type RootConfig struct {
	ConfigFile   string
	LogLevel     string
	Root         string
	DBDir        string
	Repositories []string
	Essential    []string
}

func Execute() {
	root := newRootCommand()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "xpkg: %s\n", errorMessage(err))
		log.Debug().Err(err).Msg("command failed")
		os.Exit(exitCodeForError(err))
	}
}

func newRootCommand() *cobra.Command {
	cfg := RootConfig{}
	cmd := &cobra.Command{
		Use:           "xpkg",
		Short:         "Install and update binary packages",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initConfig(cfg.ConfigFile); err != nil {
				return err
			}
			setupLogging(viper.GetString("log_level"))
			cmd.SetContext(log.Logger.WithContext(cmd.Context()))
			return nil
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfg.ConfigFile, "config", "", "Config file path")
	flags.StringVar(&cfg.LogLevel, "log-level", "info", "Log level")
	flags.StringVarP(&cfg.Root, "root", "r", "/", "Target root directory")
	flags.StringVar(&cfg.DBDir, "db-dir", "", "Package database directory (default <root>/var/db/xpkg)")
	flags.StringSliceVar(&cfg.Repositories, "repository", nil, "Repository directories, in priority order")
	flags.StringSliceVar(&cfg.Essential, "essential", nil, "Extra essential package patterns")
	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("root", flags.Lookup("root"))
	_ = viper.BindPFlag("db_dir", flags.Lookup("db-dir"))
	_ = viper.BindPFlag("repositories", flags.Lookup("repository"))
	_ = viper.BindPFlag("essential", flags.Lookup("essential"))

	cmd.AddCommand(newInstallCommand())
	cmd.AddCommand(newUpdateCommand())
	cmd.AddCommand(newAutoUpdateCommand())
	cmd.AddCommand(newListCommand())
	return cmd
}

func initConfig(configFile string) error {
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to read config file").
				WithCause(err)
		}
		return nil
	}

	viper.SetConfigName("xpkg")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/xpkg")
	viper.AddConfigPath("/etc/xpkg")
	if err := viper.ReadInConfig(); err != nil {
		return nil
	}
	return nil
}

func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func exitCodeForError(err error) int {
	switch errbuilder.CodeOf(err) {
	case errbuilder.CodeInvalidArgument, errbuilder.CodeAlreadyExists:
		return 2
	case errbuilder.CodePermissionDenied:
		return 3
	case errbuilder.CodeFailedPrecondition:
		return 4
	case errbuilder.CodeNotFound, errbuilder.CodeInternal:
		return 5
	case errbuilder.CodeDataLoss:
		return 6
	case errbuilder.CodeUnavailable:
		return 7
	default:
		return 1
	}
}

func errorMessage(err error) string {
	var builder *errbuilder.ErrBuilder
	if errors.As(err, &builder) && strings.TrimSpace(builder.Msg) != "" {
		return builder.Msg
	}
	return err.Error()
}
