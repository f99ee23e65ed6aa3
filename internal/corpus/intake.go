package corpus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/rmathena79/breaker-bot/internal/charset"
	"github.com/rmathena79/breaker-bot/internal/store"
)

// Layout names the data directories under Root.
type Layout struct {
	Root string
}

func (l Layout) Intake() string     { return filepath.Join(l.Root, "intake") }
func (l Layout) Raw() string        { return filepath.Join(l.Root, "raw") }
func (l Layout) Simplified() string { return filepath.Join(l.Root, "simplified") }
func (l Layout) Encoded() string    { return filepath.Join(l.Root, "encoded") }

// Prepare creates every data directory that does not exist yet.
func (l Layout) Prepare() error {
	for _, dir := range []string{l.Intake(), l.Raw(), l.Simplified(), l.Encoded()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// Sources is the part of the store intake needs.
type Sources interface {
	SourceByTitle(ctx context.Context, title string) (store.Source, error)
	AddSource(ctx context.Context, src store.Source) (int64, error)
	AddFile(ctx context.Context, f store.File) (int64, error)
}

// Outcome describes what intake did with one file.
type Outcome struct {
	Name     string
	Document Document
	Skipped  bool
	Reason   string
}

// Intake processes every file in the intake directory: Gutenberg texts are
// recorded as sources, moved to the raw directory and simplified into the
// simplified directory. Files that fail to parse or are already known are
// skipped and left in place.
func Intake(ctx context.Context, l Layout, repo Sources, set *charset.Set, logger *zap.Logger) ([]Outcome, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := l.Prepare(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(l.Intake())
	if err != nil {
		return nil, fmt.Errorf("read intake directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var outcomes []Outcome
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		out, err := intakeFile(ctx, l, repo, set, entry.Name())
		if err != nil {
			return outcomes, fmt.Errorf("intake %s: %w", entry.Name(), err)
		}
		if out.Skipped {
			logger.Warn("intake skipped file", zap.String("file", out.Name), zap.String("reason", out.Reason))
		} else {
			logger.Info("intake recorded source",
				zap.String("file", out.Name),
				zap.String("title", out.Document.Title),
				zap.String("url", out.Document.URL),
			)
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

func intakeFile(ctx context.Context, l Layout, repo Sources, set *charset.Set, name string) (Outcome, error) {
	out := Outcome{Name: name}
	content, err := ReadText(filepath.Join(l.Intake(), name))
	if err != nil {
		return out, err
	}

	doc, err := ParseGutenberg(content)
	if err != nil {
		out.Skipped, out.Reason = true, err.Error()
		return out, nil
	}
	out.Document = doc

	if _, err := repo.SourceByTitle(ctx, doc.Title); err == nil {
		out.Skipped, out.Reason = true, "source already recorded"
		return out, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return out, err
	}

	sourceID, err := repo.AddSource(ctx, store.Source{Title: doc.Title, URL: doc.URL, EbookID: doc.EbookID})
	if err != nil {
		return out, err
	}

	rawPath := filepath.Join(l.Raw(), name)
	if err := os.Rename(filepath.Join(l.Intake(), name), rawPath); err != nil {
		return out, fmt.Errorf("move to raw: %w", err)
	}
	if _, err := repo.AddFile(ctx, store.File{Path: rawPath, Kind: store.FileRaw, SourceID: sourceID}); err != nil {
		return out, err
	}

	simplePath := filepath.Join(l.Simplified(), name)
	if err := WriteText(simplePath, Simplify(doc.Body, set)); err != nil {
		return out, err
	}
	if _, err := repo.AddFile(ctx, store.File{Path: simplePath, Kind: store.FileSimplified, SourceID: sourceID}); err != nil {
		return out, err
	}
	return out, nil
}
