package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmathena79/breaker-bot/internal/aggregate"
	"github.com/rmathena79/breaker-bot/internal/crack"
)

type crackFlags struct {
	size        int
	text        string
	cipherName  string
	parallelism int
	out         string
}

func (a *app) crackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crack",
		Short: "Recover plaintext or the key from ciphertext",
		Long: `Recovers plaintext or the key from ciphertext. Predictions come from the
remote predictor at predictor.addr, or from the built-in frequency predictor
when no address is configured.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return usagef("crack subcommand required")
		},
	}
	cmd.AddCommand(a.crackModeCmd(aggregate.ModeText), a.crackModeCmd(aggregate.ModeKey))
	return cmd
}

func (a *app) crackModeCmd(mode aggregate.Mode) *cobra.Command {
	var f crackFlags
	short := "Recover the plaintext"
	if mode == aggregate.ModeKey {
		short = "Recover the Caesar key"
	}
	cmd := &cobra.Command{
		Use:   string(mode) + " [file]...",
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCrack(cmd.Context(), mode, &f, args)
		},
	}
	cmd.Flags().IntVar(&f.size, "size", 0, "chunk size; the configured chunk_size when 0")
	cmd.Flags().StringVar(&f.text, "text", "", "ciphertext; reads the file arguments or stdin when empty")
	cmd.Flags().StringVar(&f.cipherName, "cipher", "", "cipher the text was encoded with, checked before predicting")
	cmd.Flags().IntVar(&f.parallelism, "parallelism", 0, "texts cracked at once; unlimited when 0")
	if mode == aggregate.ModeText {
		cmd.Flags().StringVarP(&f.out, "out", "o", "", "output file for a single text; stdout when empty")
	}
	return cmd
}

func (a *app) runCrack(ctx context.Context, mode aggregate.Mode, f *crackFlags, args []string) error {
	if f.text != "" && len(args) > 0 {
		return usagef("use either --text or file arguments, not both")
	}
	if f.out != "" && len(args) > 1 {
		return usagef("--out needs exactly one input")
	}

	codec, err := a.codec()
	if err != nil {
		return err
	}
	params, err := a.scalerParams()
	if err != nil {
		return err
	}
	aggOpts, err := a.aggregationOptions()
	if err != nil {
		return err
	}
	p, release, err := a.predictor(codec.Set(), params)
	if err != nil {
		return err
	}
	defer release()

	opts := []crack.Option{
		crack.WithAggregation(aggOpts...),
		crack.WithParallelism(f.parallelism),
		crack.WithLogger(a.logger.Logger),
	}
	if params != nil {
		opts = append(opts, crack.WithScaler(params))
	}
	if f.cipherName != "" {
		opts = append(opts, crack.WithCipher(f.cipherName))
	}
	cracker, err := crack.New(codec, p, a.chunkSize(f.size), opts...)
	if err != nil {
		return err
	}

	names := args
	if len(names) == 0 {
		names = []string{"-"}
	}
	texts := make([]string, len(names))
	for i, name := range names {
		inline := ""
		if i == 0 {
			inline = f.text
		}
		if texts[i], err = a.readInput(inline, argPath(name, inline)); err != nil {
			return err
		}
	}

	results := cracker.CrackMany(ctx, texts, mode)
	if len(results) == 1 {
		r := results[0]
		if r.Err != nil {
			return r.Err
		}
		if mode == aggregate.ModeKey {
			fmt.Fprintln(a.stdout, r.Key)
			return nil
		}
		return a.writeOutput(f.out, r.Text)
	}

	var errs []error
	for i, r := range results {
		switch {
		case r.Err != nil:
			fmt.Fprintf(a.stdout, "%s\terror: %v\n", names[i], r.Err)
			errs = append(errs, fmt.Errorf("%s: %w", names[i], r.Err))
		case mode == aggregate.ModeKey:
			fmt.Fprintf(a.stdout, "%s\t%d\n", names[i], r.Key)
		default:
			fmt.Fprintf(a.stdout, "%s\t%q\n", names[i], r.Text)
		}
	}
	return errors.Join(errs...)
}

func argPath(name, inline string) string {
	if inline != "" {
		return ""
	}
	return name
}
