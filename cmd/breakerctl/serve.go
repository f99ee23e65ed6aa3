package main

import (
	"context"
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rmathena79/breaker-bot/internal/corpus"
	"github.com/rmathena79/breaker-bot/internal/predictor/frequency"
	"github.com/rmathena79/breaker-bot/internal/predictor/remote"
)

func (a *app) servePredictorCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve-predictor",
		Short: "Serve the frequency predictor over gRPC",
		Long: `Serves the built-in frequency predictor on the predictor gRPC service so
that remote clients can crack text without a model host. Requests must be
scaled with the configured scaler, or carry raw offsets when none is set.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runServePredictor(cmd.Context(), listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "127.0.0.1:50061", "address to listen on")
	return cmd
}

func (a *app) runServePredictor(ctx context.Context, listen string) error {
	codec, err := a.codec()
	if err != nil {
		return err
	}
	params, err := a.scalerParams()
	if err != nil {
		return err
	}

	lis, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listen, err)
	}
	srv := remote.NewGRPCServer(frequency.New(codec.Set(), params), a.logger.Logger)
	a.logger.Info("predictor listening", zap.String("addr", lis.Addr().String()), zap.Bool("scaled", params != nil))
	if err := remote.Serve(ctx, srv, lis); err != nil {
		return err
	}
	a.logger.Info("predictor stopped")
	return nil
}

func (a *app) intakeCmd() *cobra.Command {
	var dataDir string
	cmd := &cobra.Command{
		Use:   "intake",
		Short: "Record Project Gutenberg texts from the intake directory",
		Long: `Processes every file in <data-dir>/intake: Gutenberg texts are recorded
as sources, moved to raw/ and simplified into simplified/. Other files are
left in place.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dataDir == "" {
				dataDir = a.cfg.DataDir
			}
			codec, err := a.codec()
			if err != nil {
				return err
			}
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			outcomes, err := corpus.Intake(cmd.Context(), corpus.Layout{Root: dataDir}, st, codec.Set(), a.logger.Logger)
			for _, out := range outcomes {
				if out.Skipped {
					fmt.Fprintf(a.stdout, "skipped\t%s\t%s\n", out.Name, out.Reason)
				} else {
					fmt.Fprintf(a.stdout, "recorded\t%s\t%s\t%s\n", out.Name, out.Document.Title, out.Document.URL)
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "data directory; the configured data_dir when empty")
	return cmd
}
