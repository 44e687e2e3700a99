package recipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/oxhq/quarkmig/core"
	"github.com/oxhq/quarkmig/internal/lang/java"
)

// ErrFilesFailed marks a run that finished with per-file failures.
var ErrFilesFailed = errors.New("some files failed")

// FilesError lists the failures of a finished run. The report of the run
// is complete; the files named here kept their original content.
type FilesError struct {
	Failed int
	Errs   []error
}

func (e *FilesError) Error() string {
	return fmt.Sprintf("%d file(s) failed: %v", e.Failed, errors.Join(e.Errs...))
}

func (e *FilesError) Unwrap() []error {
	return append([]error{ErrFilesFailed}, e.Errs...)
}

// RunOptions configure a Runner.
type RunOptions struct {
	Scope  core.FileScope
	Apply  Options
	DryRun bool
	Write  core.AtomicWriteConfig
}

// Runner migrates one project: discover, parse, apply the rules, write.
type Runner struct {
	parser *java.Parser
	rules  []Rule
	opts   RunOptions
	walker *core.FileWalker
	writer *core.AtomicWriter
	log    *slog.Logger
}

// NewRunner creates a runner applying rules in order.
func NewRunner(jp *java.Parser, rules []Rule, opts RunOptions) *Runner {
	log := opts.Apply.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Runner{
		parser: jp,
		rules:  rules,
		opts:   opts,
		walker: core.NewFileWalker(),
		writer: core.NewAtomicWriter(opts.Write),
		log:    log,
	}
}

type source struct {
	found  core.WalkResult
	text   string
	file   *File
	report *core.FileReport
	errs   []error
}

func (s *source) fail(err error) {
	s.errs = append(s.errs, err)
	s.report.Errors = append(s.report.Errors, err.Error())
}

// Run migrates the project under opts.Scope.Path. The report is returned
// whenever discovery succeeded. File failures give a *FilesError; other
// errors mean the run stopped early.
func (r *Runner) Run(ctx context.Context) (*core.RunReport, error) {
	scope := r.opts.Scope
	if len(scope.Exclude) == 0 {
		scope.Exclude = core.DefaultExclude
	}
	report := &core.RunReport{
		RunID:  uuid.NewString(),
		Root:   scope.Path,
		DryRun: r.opts.DryRun,
	}
	for _, rule := range r.rules {
		report.Rules = append(report.Rules, rule.Name())
	}
	log := r.log.With("run", report.RunID)
	defer r.writer.Cleanup()

	start := time.Now()
	found, err := r.walker.Discover(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", scope.Path, err)
	}
	sources := make([]*source, len(found))
	for i, f := range found {
		sources[i] = &source{found: f, report: &core.FileReport{Path: f.Rel, Language: f.Language}}
	}
	if err := r.parse(ctx, sources); err != nil {
		return report, err
	}
	report.ParseDuration = time.Since(start).Milliseconds()
	report.FilesScanned = len(sources)
	log.Info("parsed project", "root", scope.Path, "files", len(sources), "ms", report.ParseDuration)

	var (
		files  []*File
		byPath = map[string]*source{}
	)
	for _, s := range sources {
		if s.file != nil {
			files = append(files, s.file)
			byPath[s.file.Path] = s
		}
	}

	start = time.Now()
	opts := r.opts.Apply
	opts.Logger = log
	outcomes, err := Apply(ctx, r.rules, files, opts)
	if err != nil {
		return report, err
	}
	report.RulesDuration = time.Since(start).Milliseconds()

	start = time.Now()
	for _, o := range outcomes {
		s := byPath[o.Path]
		for _, e := range o.Errors {
			s.fail(e)
		}
		if !o.Changed() {
			continue
		}
		if err := r.finish(ctx, s, o); err != nil {
			return report, err
		}
	}
	report.WriteDuration = time.Since(start).Milliseconds()

	var failures []error
	for _, s := range sources {
		failures = append(failures, s.errs...)
		if s.report.Modified {
			report.FilesModified++
		}
		if s.report.Failed() {
			report.FilesFailed++
		}
		report.Files = append(report.Files, *s.report)
	}
	log.Info("run finished",
		"modified", report.FilesModified,
		"failed", report.FilesFailed,
		"dry_run", report.DryRun,
	)
	if report.FilesFailed > 0 {
		return report, &FilesError{Failed: report.FilesFailed, Errs: failures}
	}
	return report, nil
}

// parse reads and parses every source concurrently. A file that cannot be
// read or parsed is reported and left out of the rules.
func (r *Runner) parse(ctx context.Context, sources []*source) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Apply.workers())
	for _, s := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(s.found.Path)
			if err != nil {
				s.fail(fmt.Errorf("%w: read %s: %v", ErrIO, s.found.Rel, err))
				return nil
			}
			s.text = string(data)
			s.report.OriginalHash = core.Digest(s.text)
			s.report.OriginalSize = int64(len(data))
			f, err := Parse(ctx, r.parser, s.found.Rel, data)
			if err != nil {
				s.fail(err)
				r.log.Warn("skipping file", "path", s.found.Rel, "error", err)
				return nil
			}
			s.file = f
			return nil
		})
	}
	return g.Wait()
}

// finish diffs a changed file and writes it unless the run is dry.
func (r *Runner) finish(ctx context.Context, s *source, o *Outcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	after := o.Tree.String()
	diff, err := core.UnifiedDiff(o.Path, s.text, after)
	if err != nil {
		return fmt.Errorf("diff %s: %w", o.Path, err)
	}
	rep := s.report
	rep.Rules = o.Applied
	rep.Diff = diff
	rep.ModifiedHash = core.Digest(after)
	rep.ModifiedSize = int64(len(after))
	if r.opts.DryRun {
		rep.Modified = true
		return nil
	}
	backup, err := r.writer.WriteFile(s.found.Path, after)
	if err != nil {
		s.fail(fmt.Errorf("%w: write %s: %v", ErrIO, o.Path, err))
		r.log.Error("write failed", "path", o.Path, "error", err)
		return nil
	}
	rep.Modified = true
	rep.BackupPath = backup
	r.log.Debug("wrote file", "path", o.Path, "rules", o.Applied)
	return nil
}
