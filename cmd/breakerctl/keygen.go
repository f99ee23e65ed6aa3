package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rmathena79/breaker-bot/internal/cipher"
	"github.com/rmathena79/breaker-bot/internal/logging"
)

func (a *app) keygenCmd() *cobra.Command {
	var (
		cipherName string
		count      int
		noStore    bool
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate keys that have not been used before",
		Long: `Generates keys for a cipher. Keys are recorded in the store and never
handed out twice. With --no-store keys are only unique within one run.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 1 {
				return usagef("--count must be positive, got %d", count)
			}
			return a.runKeygen(cmd.Context(), cipherName, count, noStore)
		},
	}
	cmd.Flags().StringVar(&cipherName, "cipher", "caesar", "cipher name: "+cipherNames())
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of keys to generate")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "do not read or record keys in the store")
	return cmd
}

func (a *app) runKeygen(ctx context.Context, cipherName string, count int, noStore bool) error {
	c, err := cipher.Lookup(cipherName)
	if err != nil {
		return usageError{err: err}
	}
	codec, err := a.codec()
	if err != nil {
		return err
	}

	// keys drawn during this run, on top of whatever the store knows
	drawn := map[string]bool{}
	usage := cipher.KeyUsageFunc(func(context.Context, string, string) (bool, error) { return false, nil })
	record := func(k cipher.Key) (string, error) { return "", nil }

	if !noStore {
		st, err := a.openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Seed(ctx, cipher.List()); err != nil {
			return err
		}
		usage = st.KeyUsed
		record = func(k cipher.Key) (string, error) {
			stored, err := st.AddKey(ctx, c.Name(), string(c.KeyKind()), k.String())
			if err != nil {
				return "", err
			}
			return stored.Ref, nil
		}
	}
	inRun := cipher.KeyUsageFunc(func(ctx context.Context, name, key string) (bool, error) {
		if drawn[key] {
			return true, nil
		}
		return usage(ctx, name, key)
	})

	for range count {
		k, err := cipher.GenerateUniqueKey(ctx, c, codec.Size(), nil, inRun, a.cfg.Keygen.MaxAttempts)
		if err != nil {
			return err
		}
		drawn[k.String()] = true

		ref, err := record(k)
		if err != nil {
			return err
		}
		text, err := c.FormatKey(k, codec.Set())
		if err != nil {
			return err
		}
		a.logger.Info("key generated", zap.String("cipher", c.Name()), zap.String("ref", ref), logging.Key("key", text))

		if ref != "" {
			fmt.Fprintf(a.stdout, "%s\t%s\n", ref, displayKey(c, text))
		} else {
			fmt.Fprintln(a.stdout, displayKey(c, text))
		}
	}
	return nil
}
