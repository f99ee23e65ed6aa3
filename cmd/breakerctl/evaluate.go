package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmathena79/breaker-bot/internal/evaluate"
)

func (a *app) evaluateCmd() *cobra.Command {
	var (
		truthPath string
		guessPath string
		truthKey  int
		guessKey  int
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score a cracked text or key against the truth",
		Long: `Scores a guess against the truth. Texts are compared per character and on
the cyclic offset scale; keys are compared by their cyclic distance.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			keys := cmd.Flags().Changed("truth-key") || cmd.Flags().Changed("guess-key")
			texts := truthPath != "" || guessPath != ""
			switch {
			case keys && texts:
				return usagef("compare either texts or keys, not both")
			case keys:
				return a.evaluateKeys(truthKey, guessKey)
			case truthPath == "" || guessPath == "":
				return usagef("--truth and --guess are required")
			}
			return a.evaluateTexts(truthPath, guessPath)
		},
	}
	cmd.Flags().StringVar(&truthPath, "truth", "", "file holding the true plaintext")
	cmd.Flags().StringVar(&guessPath, "guess", "", "file holding the cracked plaintext")
	cmd.Flags().IntVar(&truthKey, "truth-key", 0, "true Caesar key")
	cmd.Flags().IntVar(&guessKey, "guess-key", 0, "cracked Caesar key")
	return cmd
}

func (a *app) evaluateKeys(truth, guess int) error {
	codec, err := a.codec()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "key_error\t%d\n", evaluate.KeyError(truth, guess, codec.Size()))
	return nil
}

func (a *app) evaluateTexts(truthPath, guessPath string) error {
	truth, err := a.readInput("", truthPath)
	if err != nil {
		return err
	}
	guess, err := a.readInput("", guessPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "character_accuracy\t%.4f\n", evaluate.CharacterAccuracy(truth, guess))

	codec, err := a.codec()
	if err != nil {
		return err
	}
	t, err := codec.Encode(truth)
	if err != nil {
		return fmt.Errorf("truth: %w", err)
	}
	g, err := codec.Encode(guess)
	if err != nil {
		return fmt.Errorf("guess: %w", err)
	}
	if len(t) != len(g) {
		// offset metrics need paired positions
		fmt.Fprintf(a.stdout, "length_difference\t%d\n", len(g)-len(t))
		return nil
	}

	n := codec.Size()
	loss, err := evaluate.DistanceLoss(evaluate.Offsets(t), evaluate.Offsets(g), n)
	if err != nil {
		return err
	}
	acc, err := evaluate.DistanceAccuracy(evaluate.Offsets(t), evaluate.Offsets(g), n)
	if err != nil {
		return err
	}
	rounded, err := evaluate.RoundedAccuracy(evaluate.Offsets(t), evaluate.Offsets(g), n)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "distance_loss\t%.4f\n", loss)
	fmt.Fprintf(a.stdout, "distance_accuracy\t%.4f\n", acc)
	fmt.Fprintf(a.stdout, "rounded_accuracy\t%.4f\n", rounded)
	return nil
}
