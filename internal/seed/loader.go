// Package seed imports dilemma and story flow JSON files.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"moral-torture-machine/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Kind of records a seed file holds.
type Kind string

const (
	KindDilemmas   Kind = "dilemmas"
	KindStoryFlows Kind = "story_flows"
)

const maxParallelLoad = 4

// Seed files in a directory are named dilemmas_<language>.json and
// story_flows_<language>.json.
var fileNamePattern = regexp.MustCompile(`^(dilemmas|story_flows)_([a-zA-Z]{1,10})\.json$`)

// Importer stores localized records. service.AdminService implements it.
type Importer interface {
	ImportDilemmas(ctx context.Context, language string, dilemmas []models.Dilemma) (int, error)
	ImportStoryFlows(ctx context.Context, language string, flows []models.StoryFlow) (int, error)
}

// File is one seed file to import.
type File struct {
	Path     string
	Kind     Kind
	Language string
}

// Result reports what a file contributed.
type Result struct {
	File     File
	Imported int
}

// Loader imports seed files through an Importer.
type Loader struct {
	importer Importer
	logger   *zap.Logger
}

// NewLoader creates a Loader.
func NewLoader(importer Importer, logger *zap.Logger) *Loader {
	return &Loader{importer: importer, logger: logger.Named("SeedLoader")}
}

// ReadDilemmas decodes a JSON array of dilemmas.
func ReadDilemmas(r io.Reader) ([]models.Dilemma, error) {
	var out []models.Dilemma
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode dilemmas: %w", models.ErrInvalidInput, err)
	}
	return out, nil
}

// ReadStoryFlows decodes a JSON array of story flows.
func ReadStoryFlows(r io.Reader) ([]models.StoryFlow, error) {
	var out []models.StoryFlow
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode story flows: %w", models.ErrInvalidInput, err)
	}
	return out, nil
}

// LoadFile imports one file.
func (l *Loader) LoadFile(ctx context.Context, f File) (Result, error) {
	logFields := []zap.Field{zap.String("path", f.Path), zap.String("kind", string(f.Kind)), zap.String("language", f.Language)}

	fh, err := os.Open(f.Path)
	if err != nil {
		return Result{File: f}, fmt.Errorf("open seed file: %w", err)
	}
	defer fh.Close()

	var n int
	switch f.Kind {
	case KindDilemmas:
		dilemmas, rerr := ReadDilemmas(fh)
		if rerr != nil {
			return Result{File: f}, fmt.Errorf("%s: %w", f.Path, rerr)
		}
		n, err = l.importer.ImportDilemmas(ctx, f.Language, dilemmas)
	case KindStoryFlows:
		flows, rerr := ReadStoryFlows(fh)
		if rerr != nil {
			return Result{File: f}, fmt.Errorf("%s: %w", f.Path, rerr)
		}
		n, err = l.importer.ImportStoryFlows(ctx, f.Language, flows)
	default:
		return Result{File: f}, fmt.Errorf("%w: unknown seed kind %q", models.ErrInvalidInput, f.Kind)
	}
	if err != nil {
		l.logger.Error("Seed import failed", append(logFields, zap.Error(err))...)
		return Result{File: f}, fmt.Errorf("%s: %w", f.Path, err)
	}

	l.logger.Info("Seed file imported", append(logFields, zap.Int("count", n))...)
	return Result{File: f, Imported: n}, nil
}

// Discover lists the seed files of dir, sorted by name.
func Discover(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read seed dir: %w", err)
	}
	var files []File
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := fileNamePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		files = append(files, File{Path: filepath.Join(dir, e.Name()), Kind: Kind(m[1]), Language: m[2]})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// LoadFiles imports files concurrently. The first failure cancels the rest.
func (l *Loader) LoadFiles(ctx context.Context, files []File) ([]Result, error) {
	results := make([]Result, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLoad)
	for i, f := range files {
		g.Go(func() error {
			res, err := l.LoadFile(gctx, f)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// LoadDir imports every seed file found in dir.
func (l *Loader) LoadDir(ctx context.Context, dir string) ([]Result, error) {
	files, err := Discover(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		l.logger.Warn("No seed files found", zap.String("dir", dir))
		return nil, nil
	}
	return l.LoadFiles(ctx, files)
}
