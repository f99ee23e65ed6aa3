package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rmathena79/breaker-bot/internal/chunk"
	"github.com/rmathena79/breaker-bot/internal/scaler"
)

type chunkRecord struct {
	Index    int    `json:"index"`
	Start    int    `json:"start"`
	Overlaps bool   `json:"overlaps"`
	Text     string `json:"text"`
	Offsets  []int  `json:"offsets"`
}

func (a *app) chunkCmd() *cobra.Command {
	var (
		size int
		text string
	)
	cmd := &cobra.Command{
		Use:   "chunk [file]",
		Short: "Show how a text is split into fixed-size chunks",
		Args:  maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			input, err := a.readInput(text, path)
			if err != nil {
				return err
			}
			codec, err := a.codec()
			if err != nil {
				return err
			}
			offsets, err := codec.Encode(input)
			if err != nil {
				return err
			}
			layout, err := chunk.Split(offsets, a.chunkSize(size))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(a.stdout)
			for i, c := range layout.Chunks {
				s, err := codec.Decode(c.Values)
				if err != nil {
					return err
				}
				if err := enc.Encode(chunkRecord{Index: i, Start: c.Start, Overlaps: c.Overlaps, Text: s, Offsets: c.Values}); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "size", 0, "chunk size; the configured chunk_size when 0")
	cmd.Flags().StringVar(&text, "text", "", "input text; reads the file argument or stdin when empty")
	return cmd
}

func (a *app) scalerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scaler",
		Short: "Manage feature scaler parameters",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return usagef("scaler subcommand required")
		},
	}

	var (
		size int
		out  string
	)
	fit := &cobra.Command{
		Use:   "fit <file>...",
		Short: "Fit per-position mean and scale over the chunks of ciphertext files",
		Args:  minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return usagef("--out is required")
			}
			codec, err := a.codec()
			if err != nil {
				return err
			}
			n := a.chunkSize(size)

			var chunks [][]int
			for _, path := range args {
				input, err := a.readInput("", path)
				if err != nil {
					return err
				}
				offsets, err := codec.Encode(input)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				layout, err := chunk.Split(offsets, n)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				chunks = append(chunks, layout.Values()...)
			}

			params, err := scaler.Fit(chunks)
			if err != nil {
				return err
			}
			if err := params.SaveFile(out); err != nil {
				return err
			}
			a.logger.Info("scaler fitted", zap.Int("files", len(args)), zap.Int("chunks", len(chunks)), zap.Int("size", n), zap.String("out", out))
			fmt.Fprintf(a.stdout, "wrote %s (%d chunks of %d)\n", out, len(chunks), n)
			return nil
		},
	}
	fit.Flags().IntVar(&size, "size", 0, "chunk size; the configured chunk_size when 0")
	fit.Flags().StringVarP(&out, "out", "o", "", "destination JSON file")

	cmd.AddCommand(fit)
	return cmd
}

func (a *app) chunkSize(flag int) int {
	if flag > 0 {
		return flag
	}
	return a.cfg.ChunkSize
}
