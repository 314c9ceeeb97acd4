package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bradenn/hwdemo/config"
	"github.com/bradenn/hwdemo/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose bool
	envFile string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "hwdemo",
	Short: "Hardware design demo: RTL generation, HLS compilation and waitlist",
	Long: `hwdemo runs the demo backend and drives it from the command line.

Submit a hardware specification to get RTL, a testbench and a simulation log,
or a Python model to get an HLS package.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		if envFile != "" {
			files = append(files, envFile)
		}
		var err error
		cfg, err = config.Load(files...)
		if err != nil {
			return err
		}
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level, !cfg.Production())
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load settings from this .env file")
	rootCmd.AddCommand(serveCmd, generateCmd, compileCmd, waitlistCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
