package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/samuelfneumann/mpcrl/environment/envconfig"
	"github.com/samuelfneumann/mpcrl/environment/gym"
	"github.com/samuelfneumann/mpcrl/experiment"
	"github.com/samuelfneumann/mpcrl/experiment/trackers"
)

var (
	configFile string
	saveDir    string
	seed       uint64
	verbose    bool
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mpcrl",
		Short: "Model-based reinforcement learning with MPC over learned dynamics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configFile, saveDir, seed, verbose)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "config.yaml",
		"experiment configuration file")
	cmd.Flags().StringVarP(&saveDir, "dir", "d", "data",
		"directory to save returns, plots, and the configuration to")
	cmd.Flags().Uint64VarP(&seed, "seed", "s", 0, "random seed")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func run(configFile, saveDir string, seed uint64, verbose bool) error {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).Level(level).With().Timestamp().Logger()

	c, err := experiment.LoadConfig(configFile)
	if err != nil {
		return err
	}
	logger.Debug().Interface("config", c).Msg("loaded configuration")

	if err := os.MkdirAll(saveDir, 0755); err != nil {
		return fmt.Errorf("run: could not create save directory: %v", err)
	}
	if err := experiment.SaveConfig(c, filepath.Join(saveDir,
		"config.yaml")); err != nil {
		return err
	}

	returns := trackers.NewReturn(filepath.Join(saveDir, "returns.bin"))
	lengths := trackers.NewEpisodeLength(filepath.Join(saveDir,
		"lengths.bin"))

	e, err := experiment.New(c, seed, logger, returns, lengths)
	if err != nil {
		return err
	}
	if c.Env.Environment == envconfig.HalfCheetah {
		defer gym.Shutdown()
	}
	defer e.Close()

	if err := e.Run(); err != nil {
		return err
	}
	if err := e.Save(); err != nil {
		return err
	}

	plotFile := filepath.Join(saveDir, "returns.png")
	if err := trackers.PlotReturns(returns.Returns(),
		string(c.Env.Environment), plotFile); err != nil {
		logger.Warn().Err(err).Msg("could not plot returns")
	}

	logger.Info().
		Int("episodes", len(returns.Returns())).
		Str("dir", saveDir).
		Msg("experiment complete")
	return nil
}
