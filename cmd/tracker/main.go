package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/polzovatel/hmm-tracker/internal/agent"
	"github.com/polzovatel/hmm-tracker/internal/browser"
	"github.com/polzovatel/hmm-tracker/internal/config"
	"github.com/polzovatel/hmm-tracker/internal/llm"
	"github.com/polzovatel/hmm-tracker/internal/sequence"
	"github.com/polzovatel/hmm-tracker/internal/snapshot"
	"github.com/polzovatel/hmm-tracker/internal/track"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		sequencePath string
		maxRetries   int
		maxSteps     int
	)
	cmd := &cobra.Command{
		Use:           "tracker <booking-id>",
		Short:         "Retrieve voyage and arrival for an HMM booking",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if sequencePath != "" {
				cfg.SequencePath = sequencePath
			}
			if maxRetries > 0 {
				cfg.MaxRetries = maxRetries
			}
			if maxSteps > 0 {
				cfg.MaxSteps = maxSteps
			}
			return run(args[0], cfg)
		},
	}
	cmd.Flags().StringVar(&sequencePath, "sequence", "", "Path to the recorded sequence file")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "Max corrective discovery attempts")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "Max policy steps per discovery attempt")
	return cmd
}

func run(bookingID string, cfg config.Config) error {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	llmClient, err := llm.NewClientFromEnv(log.With().Str("comp", "llm").Logger())
	if err != nil {
		log.Error().Err(err).Msg("llm init")
		return err
	}

	launcher, err := browser.NewLauncher(ctx, cfg.Headless)
	if err != nil {
		log.Error().Err(err).Msg("browser init")
		return err
	}
	defer launcher.Close()

	sess, err := launcher.NewSession(ctx, cfg.Pace)
	if err != nil {
		log.Error().Err(err).Msg("browser session")
		return err
	}
	// The session is released on every exit path, including failure and
	// interrupt.
	defer sess.Close(context.Background())

	store := sequence.NewStore(cfg.SequencePath, log.With().Str("comp", "store").Logger())
	policy := agent.NewPolicy(llmClient)
	observe := func(c context.Context) (snapshot.Summary, error) {
		return snapshot.Collect(c, sess)
	}

	tracker := track.New(sess, policy, observe, store,
		track.Config{MaxRetries: cfg.MaxRetries, MaxSteps: cfg.MaxSteps},
		log.With().Str("comp", "track").Logger())

	res := tracker.Run(ctx, bookingID)
	fmt.Println("Results:", res.Summary())
	if !res.OK() {
		return res.Err
	}
	return nil
}
