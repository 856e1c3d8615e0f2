package coverage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Options configures one aggregation run.
type Options struct {
	Root      string // aggregation root on disk
	Mode      string // ModeFixed or ModeGlob
	NodesDir  string
	ResultDir string
	Filename  string
	// Output is the combined file, relative to Root unless absolute.
	// Defaults to <NodesDir>/<Filename>.
	Output        string
	OnCollision   CollisionPolicy
	SkipMalformed bool
	// Workers > 1 parses files concurrently. Insertion stays serial and in
	// discovery order.
	Workers int
	// FS overrides the filesystem read for discovery and ingest.
	// Defaults to os.DirFS(Root).
	FS fs.FS
}

func (o Options) nodesDir() string {
	if o.NodesDir == "" {
		return DefaultNodesDir
	}
	return o.NodesDir
}

func (o Options) resultDir() string {
	if o.ResultDir == "" {
		return DefaultResultDir
	}
	return o.ResultDir
}

func (o Options) filename() string {
	if o.Filename == "" {
		return DefaultFilename
	}
	return o.Filename
}

func (o Options) withDefaults() Options {
	if o.Root == "" {
		o.Root = "."
	}
	if o.Mode == "" {
		o.Mode = ModeFixed
	}
	o.NodesDir = o.nodesDir()
	o.ResultDir = o.resultDir()
	o.Filename = o.filename()
	if o.Output == "" {
		o.Output = path.Join(o.NodesDir, o.Filename)
	}
	if o.OnCollision == "" {
		o.OnCollision = PolicyOverwrite
	}
	return o
}

// OutputPath returns the on-disk location of the combined file.
func (o Options) OutputPath() string {
	o = o.withDefaults()
	if filepath.IsAbs(o.Output) {
		return o.Output
	}
	return filepath.Join(o.Root, filepath.FromSlash(o.Output))
}

// outputRel returns the output path relative to Root in slash form, or ""
// when the output lives outside the root.
func (o Options) outputRel() string {
	if !filepath.IsAbs(o.Output) {
		return path.Clean(filepath.ToSlash(o.Output))
	}
	root, err := filepath.Abs(o.Root)
	if err != nil {
		return ""
	}
	rel, err := filepath.Rel(root, o.Output)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return filepath.ToSlash(rel)
}

// Aggregator discovers, ingests and persists result sets for one run.
type Aggregator struct {
	opts     Options
	fsys     fs.FS
	strategy DiscoveryStrategy
	log      *slog.Logger

	combined *Combined
	report   Report
}

// New validates opts and returns an Aggregator with an empty combined set.
func New(opts Options, log *slog.Logger) (*Aggregator, error) {
	opts = opts.withDefaults()
	log = orDiscard(log)

	switch opts.OnCollision {
	case PolicyOverwrite, PolicyError:
	default:
		return nil, fmt.Errorf("unknown collision policy %q (expected %s or %s)",
			opts.OnCollision, PolicyOverwrite, PolicyError)
	}

	stratOpts := opts
	stratOpts.Output = opts.outputRel()
	strategy, err := NewStrategy(opts.Mode, stratOpts, log)
	if err != nil {
		return nil, err
	}

	fsys := opts.FS
	if fsys == nil {
		if _, err := os.Stat(opts.Root); err != nil {
			return nil, &NotFoundError{Path: opts.Root, Err: err}
		}
		fsys = os.DirFS(opts.Root)
	}

	return &Aggregator{
		opts:     opts,
		fsys:     fsys,
		strategy: strategy,
		log:      log,
		combined: NewCombined(),
		report: Report{
			Strategy:  strategy.Name(),
			PerWorker: make(map[string]int),
		},
	}, nil
}

// Combined exposes the set built so far.
func (a *Aggregator) Combined() *Combined { return a.combined }

// Discover runs the configured strategy.
func (a *Aggregator) Discover() ([]CoverageFile, error) {
	files, err := a.strategy.Discover(a.fsys)
	if err != nil {
		return nil, err
	}
	a.log.Info("discovered result files", "strategy", a.strategy.Name(), "count", len(files))
	return files, nil
}

// Ingest inserts every process of rs under file's worker. Processes are
// visited in name order so the audit trail is reproducible.
func (a *Aggregator) Ingest(file CoverageFile, rs ResultSet) error {
	procs := make([]string, 0, len(rs))
	for p := range rs {
		procs = append(procs, p)
	}
	sort.Strings(procs)

	for _, p := range procs {
		key := CompositeKey{Worker: file.Worker, Process: p}
		k := key.String()
		if prev := a.combined.Source(k); prev != "" && a.opts.OnCollision == PolicyError {
			return &CollisionError{Collision: Collision{Key: k, Previous: prev, Current: file.Path}}
		}

		a.log.Info("found key", "key", k, "worker", file.Worker)
		col, collided := a.combined.Insert(key, rs[p], file.Path)
		if collided {
			a.log.Warn("composite key collision, keeping last write",
				"key", col.Key, "previous", col.Previous, "file", col.Current)
			a.report.Collisions = append(a.report.Collisions, col)
			continue
		}
		a.report.PerWorker[file.Worker]++
	}
	a.report.Files = append(a.report.Files, file)
	return nil
}

// IngestFile reads file and ingests it. Under SkipMalformed a ParseError is
// logged and recorded instead of returned.
func (a *Aggregator) IngestFile(file CoverageFile) error {
	a.log.Info("copying results file", "file", file.Path, "worker", file.Worker)
	rs, err := ReadResultSet(a.fsys, file.Path)
	return a.ingestParsed(file, rs, err)
}

func (a *Aggregator) ingestParsed(file CoverageFile, rs ResultSet, err error) error {
	if err != nil {
		if a.opts.SkipMalformed && errors.Is(err, ErrParse) {
			a.log.Warn("skipping malformed result file", "file", file.Path, "error", err)
			a.report.Skipped = append(a.report.Skipped, Skipped{Path: file.Path, Reason: err.Error()})
			return nil
		}
		return err
	}
	return a.Ingest(file, rs)
}

// Run discovers, ingests all files in discovery order and persists the
// combined set. Nothing is written when any step before persist fails.
func (a *Aggregator) Run(ctx context.Context) (*Report, error) {
	start := time.Now()

	files, err := a.Discover()
	if err != nil {
		return nil, err
	}

	if a.opts.Workers > 1 && len(files) > 1 {
		err = a.ingestParallel(ctx, files)
	} else {
		err = a.ingestSequential(ctx, files)
	}
	if err != nil {
		return nil, err
	}

	out := a.opts.OutputPath()
	n, err := Persist(a.combined, out)
	if err != nil {
		return nil, err
	}
	a.log.Info("wrote combined result set", "output", out, "keys", a.combined.Len(), "bytes", n)

	report := a.report
	report.Keys = a.combined.Len()
	report.Output = out
	report.Bytes = n
	report.Elapsed = time.Since(start)
	return &report, nil
}

func (a *Aggregator) ingestSequential(ctx context.Context, files []CoverageFile) error {
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.IngestFile(f); err != nil {
			return err
		}
	}
	return nil
}

type parsed struct {
	rs  ResultSet
	err error
}

// ingestParallel parses concurrently, then merges in discovery order so
// collision winners match the sequential run.
func (a *Aggregator) ingestParallel(ctx context.Context, files []CoverageFile) error {
	results := make([]parsed, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rs, err := ReadResultSet(a.fsys, f.Path)
			results[i] = parsed{rs: rs, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		a.log.Info("copying results file", "file", f.Path, "worker", f.Worker)
		if err := a.ingestParsed(f, results[i].rs, results[i].err); err != nil {
			return err
		}
	}
	return nil
}
