package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Sternrassler/steam-reviews/internal/ui"
	"github.com/Sternrassler/steam-reviews/pkg/logging"
)

// envPrefix turns --max-reviews into STEAM_REVIEWS_MAX_REVIEWS.
const envPrefix = "STEAM_REVIEWS"

// app carries the state shared by the commands of one invocation.
type app struct {
	v  *viper.Viper
	ui *ui.UI
}

func newRootCmd(u *ui.UI) *cobra.Command {
	a := &app{
		v:  viper.New(),
		ui: u,
	}

	root := &cobra.Command{
		Use:   "steam-reviews",
		Short: "Download Steam reviews to CSV and Parquet",
		Long: `steam-reviews pages through the public Steam review listing for one app,
flattens every review into a fixed set of columns and writes the result
as CSV and Parquet. Without a subcommand it runs fetch.`,
		Version:           fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runFetch(cmd)
		},
	}
	root.SetOut(u.Out)
	root.SetErr(u.ErrOut)

	pf := root.PersistentFlags()
	pf.String("config", "", "Config file (YAML)")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.Bool("log-pretty", false, "Human-readable logs instead of JSON")
	addFetchFlags(root)

	root.AddCommand(newFetchCmd(a), newSummarizeCmd(a))
	return root
}

// init loads config, binds the running command's flags and sets up logging.
func (a *app) init(cmd *cobra.Command) error {
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	if cfgFile := a.v.GetString("config"); cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	level, err := logging.ParseLevel(a.v.GetString("log-level"))
	if err != nil {
		return err
	}
	logging.Setup(logging.Config{
		Level:  level,
		Pretty: a.v.GetBool("log-pretty"),
		Output: a.ui.ErrOut,
	})
	a.ui.Verbose = a.v.GetBool("verbose")
	return nil
}
