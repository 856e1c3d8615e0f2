package coverage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Discovery mode names accepted in configuration.
const (
	ModeGlob  = "glob"
	ModeFixed = "fixed"
)

// Layout defaults for the fixed-layout mode.
const (
	DefaultNodesDir  = "coverage_nodes"
	DefaultResultDir = "spec_coverage"
)

// DiscoveryStrategy enumerates result files under an aggregation root.
// Files are returned in discovery order, which is also ingestion order.
type DiscoveryStrategy interface {
	Name() string
	Discover(fsys fs.FS) ([]CoverageFile, error)
}

// RecursiveGlob finds every file named Filename at any depth under the root.
type RecursiveGlob struct {
	Filename  string
	ResultDir string // directory name skipped over when deriving the worker
	Exclude   string // root-relative path never ingested (the combined output)
	Logger    *slog.Logger
}

func (g RecursiveGlob) Name() string { return ModeGlob }

// Discover returns matches sorted by path.
func (g RecursiveGlob) Discover(fsys fs.FS) ([]CoverageFile, error) {
	if _, err := fs.Stat(fsys, "."); err != nil {
		return nil, &NotFoundError{Path: ".", Err: err}
	}
	pattern := "**/" + g.filename()
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid result filename %q", g.Filename)
	}
	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(matches)

	exclude := ""
	if g.Exclude != "" {
		exclude = path.Clean(g.Exclude)
	}
	log := orDiscard(g.Logger)

	files := make([]CoverageFile, 0, len(matches))
	for _, m := range matches {
		if m == exclude {
			continue
		}
		worker := WorkerIDOf(m, g.ResultDir)
		if worker == "" {
			log.Warn("result file has no worker directory, skipping", "file", m)
			continue
		}
		files = append(files, CoverageFile{Path: m, Worker: worker})
	}
	return files, nil
}

func (g RecursiveGlob) filename() string {
	if g.Filename == "" {
		return DefaultFilename
	}
	return g.Filename
}

// FixedLayout treats each immediate subdirectory of NodesDir as one worker
// and expects its result file at <worker>/<ResultDir>/<Filename>.
type FixedLayout struct {
	NodesDir  string
	ResultDir string
	Filename  string
}

func (f FixedLayout) Name() string { return ModeFixed }

// Discover lists worker directories in name order. Non-directory entries
// are skipped. Presence of each result file is checked at ingest time.
func (f FixedLayout) Discover(fsys fs.FS) ([]CoverageFile, error) {
	nodes := f.NodesDir
	if nodes == "" {
		nodes = DefaultNodesDir
	}
	entries, err := fs.ReadDir(fsys, nodes)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: nodes, Err: err}
		}
		return nil, fmt.Errorf("read %s: %w", nodes, err)
	}

	resultDir, filename := f.ResultDir, f.Filename
	if resultDir == "" {
		resultDir = DefaultResultDir
	}
	if filename == "" {
		filename = DefaultFilename
	}

	var files []CoverageFile
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		files = append(files, CoverageFile{
			Path:   path.Join(nodes, e.Name(), resultDir, filename),
			Worker: e.Name(),
		})
	}
	return files, nil
}

// WorkerIDOf derives the worker id from a root-relative result file path:
// the directory holding the file, or the one above it when the holding
// directory is resultDir. It returns "" when no worker directory exists.
func WorkerIDOf(p, resultDir string) string {
	dir := path.Dir(path.Clean(p))
	if dir == "." || dir == "/" {
		return ""
	}
	base := path.Base(dir)
	if resultDir == "" || base != resultDir {
		return base
	}
	parent := path.Dir(dir)
	if parent == "." || parent == "/" {
		return ""
	}
	return path.Base(parent)
}

// NewStrategy builds the discovery strategy for mode.
func NewStrategy(mode string, opts Options, log *slog.Logger) (DiscoveryStrategy, error) {
	switch mode {
	case ModeFixed, "":
		return FixedLayout{NodesDir: opts.NodesDir, ResultDir: opts.ResultDir, Filename: opts.Filename}, nil
	case ModeGlob:
		return RecursiveGlob{
			Filename:  opts.Filename,
			ResultDir: opts.resultDir(),
			Exclude:   opts.Output,
			Logger:    log,
		}, nil
	default:
		return nil, fmt.Errorf("unknown discovery mode %q (expected %s or %s)", mode, ModeFixed, ModeGlob)
	}
}

func orDiscard(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
