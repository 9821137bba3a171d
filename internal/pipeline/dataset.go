package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/abz/internal/extractor"
	"github.com/roach88/abz/internal/features"
	"github.com/roach88/abz/internal/submit"
)

// DatasetOptions sets manifest metadata. Zero values give a public dataset
// named after the root directory with an empty description.
type DatasetOptions struct {
	Name        string
	Description string
	Private     bool
}

// DatasetResult is the outcome of a dataset run.
type DatasetResult struct {
	Manifest *submit.Manifest        `json:"manifest"`
	Response *submit.DatasetResponse `json:"response,omitempty"`
	Summary  *Summary                `json:"summary"`
}

// BuildDataset walks root and submits every allowed file as a dataset item.
//
// Each directory below root is a class named after the directory; only the
// files directly inside it belong to the class. When a name is already taken
// by an earlier class, the directory's path relative to root is used instead.
// Classes that end up with no submitted items are left out of the manifest.
// Files directly in root belong to no class and are ignored.
func (p *Processor) BuildDataset(ctx context.Context, root string, opts DatasetOptions) (*submit.Manifest, *Summary, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, fmt.Errorf("dataset %s: %w", root, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%s does not exist", root)
		}
		return nil, nil, fmt.Errorf("dataset %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%s is not a directory", root)
	}

	name := opts.Name
	if name == "" {
		name = filepath.Base(filepath.Clean(root))
	}
	manifest := submit.NewManifest(name)
	manifest.Description = opts.Description
	manifest.SetPublic(!opts.Private)

	summary := NewSummary()
	slog.Info("scanning dataset", "root", root, "name", name)

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			slog.Warn("skipping unreadable path", "path", path, "error", walkErr)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() || path == root {
			return nil
		}

		class, err := p.buildClass(ctx, path, summary)
		if err != nil {
			return err
		}
		if manifest.HasClass(class.Name) {
			rel, relErr := filepath.Rel(root, path)
			if relErr == nil {
				slog.Warn("class name already used, naming by relative path", "class", class.Name, "path", rel)
				class.Name = filepath.ToSlash(rel)
			}
		}
		if manifest.AddClass(class) {
			slog.Debug("class added", "class", class.Name, "items", len(class.Recordings))
		} else {
			slog.Info("class has no submitted items, omitted", "class", class.Name)
		}
		return nil
	})
	if err != nil {
		return manifest, summary, err
	}

	return manifest, summary, nil
}

// buildClass submits the files directly inside dir.
func (p *Processor) buildClass(ctx context.Context, dir string, summary *Summary) (submit.Class, error) {
	class := submit.Class{Name: filepath.Base(dir), Recordings: []string{}}

	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("cannot list class directory", "dir", dir, "error", err)
		return class, nil
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if !isRegularFile(path, entry) || !p.allowed(path) {
			continue
		}

		itemID, outcome, err := p.ProcessItem(ctx, path)
		if err != nil {
			return class, err
		}
		summary.Add(outcome)
		if itemID != "" {
			class.Recordings = append(class.Recordings, itemID)
		}
	}
	return class, nil
}

// ProcessItem extracts one dataset file and submits it as a dataset item.
// It returns the server-assigned item identifier, or "" when the item could
// not be submitted. The error is non-nil only when the run must stop.
//
// Dataset items are not checked against the ledger; only extractor failures
// are recorded.
func (p *Processor) ProcessItem(ctx context.Context, path string) (string, Outcome, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, interrupted(path, err)
	}

	output, cleanup, err := p.tempOutput()
	if err != nil {
		return "", 0, err
	}
	defer cleanup()

	res, err := p.extract(ctx, path, output, extractor.ProfileDatasets)
	if err != nil {
		return "", 0, err
	}

	switch res.Kind {
	case extractor.ExtractFailed:
		reason, _ := res.Reason()
		p.record(ctx, path, reason)
		return "", p.emit(Event{Path: path, Outcome: OutcomeExtractFailed, ExitCode: res.ExitCode, Detail: string(res.Output)}), nil
	case extractor.Unknown, extractor.NoIdentifier:
		return "", p.emit(Event{Path: path, Outcome: OutcomeUnknownFailure, ExitCode: res.ExitCode, Detail: string(res.Output)}), nil
	case extractor.Missing:
		return "", p.emit(Event{Path: path, Outcome: OutcomeNoOutput}), nil
	}

	doc, err := features.Load(res.OutputPath)
	if err != nil {
		return "", p.emit(Event{Path: path, Outcome: OutcomeMalformed, Detail: err.Error()}), nil
	}

	itemID, err := p.submitter.SubmitItem(ctx, doc.Bytes())
	if err != nil {
		if ctx.Err() != nil {
			return "", 0, interrupted(path, ctx.Err())
		}
		return "", p.emit(Event{Path: path, Outcome: OutcomeItemFailed, Detail: submitDetail(err)}), nil
	}

	return itemID, p.emit(Event{Path: path, Outcome: OutcomeItemSubmitted, ItemID: itemID}), nil
}

// RunDataset builds the manifest for root and submits it.
//
// When no class qualifies the manifest is returned with ErrEmptyDataset and
// nothing is submitted. A manifest rejected by the server is returned with
// the server's response and an *submit.HTTPError.
func (p *Processor) RunDataset(ctx context.Context, root string, opts DatasetOptions) (*DatasetResult, error) {
	manifest, summary, err := p.BuildDataset(ctx, root, opts)
	result := &DatasetResult{Manifest: manifest, Summary: summary}
	if err != nil {
		return result, err
	}
	if len(manifest.Classes) == 0 {
		return result, ErrEmptyDataset
	}

	slog.Info("submitting dataset", "name", manifest.Name, "classes", len(manifest.Classes), "items", manifest.ItemCount())
	resp, err := p.submitter.SubmitDataset(ctx, manifest)
	result.Response = resp
	if err != nil {
		if ctx.Err() != nil {
			return result, interrupted(root, ctx.Err())
		}
		return result, err
	}
	return result, nil
}
