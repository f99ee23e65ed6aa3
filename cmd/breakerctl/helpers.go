package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/rmathena79/breaker-bot/internal/aggregate"
	"github.com/rmathena79/breaker-bot/internal/charset"
	"github.com/rmathena79/breaker-bot/internal/cipher"
	"github.com/rmathena79/breaker-bot/internal/corpus"
	"github.com/rmathena79/breaker-bot/internal/predictor"
	"github.com/rmathena79/breaker-bot/internal/predictor/frequency"
	"github.com/rmathena79/breaker-bot/internal/predictor/remote"
	"github.com/rmathena79/breaker-bot/internal/scaler"
	"github.com/rmathena79/breaker-bot/internal/store"
)

func (a *app) codec() (*charset.Codec, error) {
	set, err := charset.New(a.cfg.Charset)
	if err != nil {
		return nil, err
	}
	var opts []charset.Option
	if a.cfg.Lenient {
		opts = append(opts, charset.WithLenient())
	}
	return charset.NewCodec(set, opts...), nil
}

// readInput returns the inline text if set, else the file at path, else
// stdin. "-" also means stdin.
func (a *app) readInput(inline, path string) (string, error) {
	if inline != "" {
		if path != "" {
			return "", usagef("use either --text or a file argument, not both")
		}
		return inline, nil
	}
	if path == "" || path == "-" {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return strings.ReplaceAll(string(data), "\r\n", "\n"), nil
	}
	return corpus.ReadText(path)
}

func (a *app) writeOutput(path, text string) error {
	if path == "" || path == "-" {
		_, err := io.WriteString(a.stdout, text)
		return err
	}
	return corpus.WriteText(path, text)
}

func (a *app) aggregationOptions() ([]aggregate.Option, error) {
	policy, err := aggregate.ParseTextPolicy(a.cfg.Aggregation.TextPolicy)
	if err != nil {
		return nil, err
	}
	opts := []aggregate.Option{aggregate.WithTextPolicy(policy)}
	if a.cfg.Aggregation.TolerateMalformed {
		opts = append(opts, aggregate.WithTolerateMalformed())
	}
	if a.cfg.Aggregation.Parallelism > 0 {
		opts = append(opts, aggregate.WithParallelism(a.cfg.Aggregation.Parallelism))
	}
	return opts, nil
}

// scalerParams loads the configured scaler, or returns nil when none is set.
func (a *app) scalerParams() (*scaler.Params, error) {
	if a.cfg.ScalerPath == "" {
		return nil, nil
	}
	params, err := scaler.LoadFile(a.cfg.ScalerPath)
	if err != nil {
		return nil, fmt.Errorf("load scaler: %w", err)
	}
	return params, nil
}

// predictor connects to the configured remote predictor, or falls back to
// the frequency predictor when no address is set. The returned func releases
// the connection.
func (a *app) predictor(set *charset.Set, params *scaler.Params) (predictor.Predictor, func(), error) {
	if a.cfg.Predictor.Addr == "" {
		a.logger.Debug("using frequency predictor")
		return frequency.New(set, params), func() {}, nil
	}
	client, err := remote.Dial(a.cfg.Predictor.Addr, remote.WithTimeout(a.cfg.Predictor.Timeout))
	if err != nil {
		return nil, nil, fmt.Errorf("connect predictor: %w", err)
	}
	a.logger.Debug("using remote predictor", zap.String("addr", a.cfg.Predictor.Addr))
	return client, func() { _ = client.Close() }, nil
}

func (a *app) openStore() (*store.SQLite, error) {
	return store.Open(a.cfg.Store.Path)
}

// keyArg accepts keys in the cipher's textual form. Character maps contain
// spaces and newlines, so a Go-quoted string is unquoted first.
func keyArg(s string) string {
	if strings.HasPrefix(s, `"`) {
		if unq, err := strconv.Unquote(s); err == nil {
			return unq
		}
	}
	return s
}

// displayKey renders a key so that it fits on one line.
func displayKey(c cipher.Cipher, text string) string {
	if c.KeyKind() == cipher.KeyKindMap {
		return strconv.Quote(text)
	}
	return text
}
