package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/dkoosis/cibot/internal/config"
	"github.com/dkoosis/cibot/internal/metrics"
	"github.com/dkoosis/cibot/pkg/coverage"
	"github.com/dkoosis/cibot/pkg/mapper"
	"github.com/dkoosis/cibot/pkg/pattern"
)

func newCombineCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "combine",
		Short: "Merge per-worker coverage result sets into one file",
		Long: `Combine discovers every worker's result set, namespaces each process
entry as "worker:process" and writes one combined result set.

Layouts:
  fixed  <root>/<nodes-dir>/<worker>/<result-dir>/<filename>  (default)
  glob   <root>/**/<filename>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.combine(cmd)
		},
	}

	f := cmd.Flags()
	f.String("root", ".", "aggregation root")
	f.String("mode", config.DefaultMode, "discovery mode: fixed, glob")
	f.StringP("output", "o", "", "combined output file (default <nodes-dir>/<filename>)")
	f.String("filename", config.DefaultFilename, "result file name")
	f.String("nodes-dir", config.DefaultNodesDir, "directory holding one subdirectory per worker (fixed mode)")
	f.String("result-dir", config.DefaultResultDir, "per-worker directory holding the result file")
	f.String("on-collision", config.DefaultOnCollision, "duplicate worker:process keys: overwrite, error")
	f.Bool("skip-malformed", false, "skip result files that fail to parse instead of aborting")
	f.Int("workers", 0, "parse files concurrently with this many workers")
	a.bind(cmd, map[string]string{
		"root":           "coverage.root",
		"mode":           "coverage.mode",
		"output":         "coverage.output",
		"filename":       "coverage.filename",
		"nodes-dir":      "coverage.nodes_dir",
		"result-dir":     "coverage.result_dir",
		"on-collision":   "coverage.on_collision",
		"skip-malformed": "coverage.skip_malformed",
		"workers":        "coverage.workers",
	})
	return cmd
}

func (a *app) combine(cmd *cobra.Command) error {
	c := a.cfg.Coverage
	opts := coverage.Options{
		Root:          c.Root,
		Mode:          c.Mode,
		NodesDir:      c.NodesDir,
		ResultDir:     c.ResultDir,
		Filename:      c.Filename,
		Output:        c.Output,
		OnCollision:   coverage.CollisionPolicy(c.OnCollision),
		SkipMalformed: c.SkipMalformed,
		Workers:       c.Workers,
	}

	rec := metrics.NewRecorder()
	defer a.writeMetrics(rec)

	agg, err := coverage.New(opts, a.log)
	if err != nil {
		rec.ObserveFailure()
		if errors.Is(err, coverage.ErrNotFound) {
			return a.combineFailed(err)
		}
		return usageError(err)
	}

	rep, err := agg.Run(cmd.Context())
	if err != nil {
		rec.ObserveFailure()
		return a.combineFailed(err)
	}
	rec.ObserveCoverage(rep)
	a.render(mapper.FromCoverage(rep))
	return nil
}

func (a *app) combineFailed(err error) error {
	a.log.Error("combine failed", "error", err)
	a.render([]pattern.Pattern{mapper.FromError("combine", err)})
	return runFailure(err)
}
