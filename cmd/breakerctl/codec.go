package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rmathena79/breaker-bot/internal/cipher"
	"github.com/rmathena79/breaker-bot/internal/logging"
)

type codecFlags struct {
	cipherName string
	key        string
	pipeline   string
	text       string
	out        string
}

func (f *codecFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.cipherName, "cipher", "caesar", "cipher name: "+cipherNames())
	cmd.Flags().StringVar(&f.key, "key", "", "key in the cipher's textual form (character maps may be Go-quoted)")
	cmd.Flags().StringVar(&f.pipeline, "pipeline", "", "JSON pipeline file; replaces --cipher and --key")
	cmd.Flags().StringVar(&f.text, "text", "", "input text; reads the file argument or stdin when empty")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "output file; stdout when empty")
}

func (a *app) encodeCmd() *cobra.Command {
	var f codecFlags
	cmd := &cobra.Command{
		Use:   "encode [file]",
		Short: "Encipher plaintext",
		Args:  maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCodec(&f, args, true)
		},
	}
	f.register(cmd)
	return cmd
}

func (a *app) decodeCmd() *cobra.Command {
	var f codecFlags
	cmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Decipher ciphertext with a known key",
		Args:  maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCodec(&f, args, false)
		},
	}
	f.register(cmd)
	return cmd
}

func (a *app) runCodec(f *codecFlags, args []string, encode bool) error {
	var path string
	if len(args) == 1 {
		path = args[0]
	}
	input, err := a.readInput(f.text, path)
	if err != nil {
		return err
	}
	codec, err := a.codec()
	if err != nil {
		return err
	}
	engine := cipher.NewEngine(codec)

	var output string
	if f.pipeline != "" {
		p, err := loadPipeline(f.pipeline)
		if err != nil {
			return err
		}
		if encode {
			output, err = p.EncodeText(engine, input)
		} else {
			output, err = p.DecodeText(engine, input)
		}
		if err != nil {
			return err
		}
		a.logger.Info("pipeline applied", zap.Int("steps", len(p.Steps)), zap.Bool("encode", encode), zap.Int("length", len(input)))
	} else {
		if f.key == "" {
			return usagef("--key is required without --pipeline")
		}
		key, err := engine.ParseKey(f.cipherName, keyArg(f.key))
		if err != nil {
			return err
		}
		if encode {
			output, err = engine.EncodeText(f.cipherName, input, key)
		} else {
			output, err = engine.DecodeText(f.cipherName, input, key)
		}
		if err != nil {
			return err
		}
		a.logger.Info("cipher applied",
			zap.String("cipher", f.cipherName),
			logging.Key("key", f.key),
			zap.Bool("encode", encode),
			zap.Int("length", len(input)),
		)
	}
	return a.writeOutput(f.out, output)
}

func loadPipeline(path string) (*cipher.Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline: %w", err)
	}
	var p cipher.Pipeline
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse pipeline %s: %w", path, err)
	}
	if len(p.Steps) == 0 {
		return nil, fmt.Errorf("pipeline %s has no steps", path)
	}
	return &p, nil
}

func cipherNames() string {
	var names []string
	for _, c := range cipher.List() {
		names = append(names, c.Name())
	}
	return strings.Join(names, ", ")
}
