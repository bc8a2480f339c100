// Package driver walks a directory tree of projects, strips comments from
// each source file with internal/lexer, and writes the results alongside
// cache bookkeeping and aggregate statistics.
package driver

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fsnotify/fsnotify"

	"github.com/aledsdavies/stripcomments/internal/cache"
	"github.com/aledsdavies/stripcomments/internal/config"
	stripperrors "github.com/aledsdavies/stripcomments/internal/errors"
	"github.com/aledsdavies/stripcomments/internal/lexer"
	"github.com/aledsdavies/stripcomments/internal/report"
)

// Driver runs stripping jobs over a configured directory tree.
type Driver struct {
	logger *slog.Logger
	cache  *cache.Index
}

// New creates a Driver with the given cache index (New cache.New() for an
// empty one) and an optional logger (defaults to slog.Default()).
func New(idx *cache.Index, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{logger: logger, cache: idx}
}

// Summary is the result of one Driver.Run call.
type Summary struct {
	Projects []report.ProjectStats
	Files    []report.FileDelta
}

// fileJob is one file queued for stripping within a project.
type fileJob struct {
	inputPath    string
	relativePath string
	outputPath   string
}

// Run enumerates the project subdirectories of cfg.InputRoot, strips every
// matching file in each, and writes the result under cfg.OutputRoot. It
// continues past per-file errors (logged at Warn) and only returns a
// non-nil error if a project produced zero usable files.
func (d *Driver) Run(ctx context.Context, cfg config.Config) (Summary, error) {
	projectDirs, err := listProjectDirs(cfg.InputRoot)
	if err != nil {
		return Summary{}, stripperrors.NewInputError(cfg.InputRoot, err)
	}

	var summary Summary
	var projectErr error
	for _, project := range projectDirs {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		stats, files, err := d.runProject(ctx, cfg, project)
		if err != nil {
			d.logger.Error("project produced no usable files", "project", project, "error", err)
			if projectErr == nil {
				projectErr = err
			}
			continue
		}
		summary.Projects = append(summary.Projects, stats)
		summary.Files = append(summary.Files, files...)
	}

	return summary, projectErr
}

func (d *Driver) runProject(ctx context.Context, cfg config.Config, project string) (report.ProjectStats, []report.FileDelta, error) {
	start := time.Now()
	projectInputRoot := filepath.Join(cfg.InputRoot, project)
	projectOutputRoot := filepath.Join(cfg.OutputRoot, project)

	jobs, err := collectJobs(projectInputRoot, projectOutputRoot, cfg.Include, cfg.Exclude)
	if err != nil {
		return report.ProjectStats{}, nil, err
	}

	workers := cfg.MaxParallel
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}
	if workers < 1 {
		workers = 1
	}

	type result struct {
		stats report.FileDelta
		lines [2]int64
		ok    bool
	}

	jobCh := make(chan fileJob)
	resultCh := make(chan result, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				r, err := d.stripFile(job, project)
				if err != nil {
					d.logger.Warn("failed to strip file", "project", project, "path", job.relativePath, "error", err)
					resultCh <- result{}
					continue
				}
				resultCh <- result{stats: r.delta, lines: r.lines, ok: true}
			}
		}()
	}

	go func() {
		defer close(jobCh)
		for _, job := range jobs {
			select {
			case <-ctx.Done():
				return
			case jobCh <- job:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var stats report.ProjectStats
	stats.Project = project
	var files []report.FileDelta

	for r := range resultCh {
		if !r.ok {
			continue
		}
		stats.FileCount++
		stats.BytesBefore += r.stats.BytesBefore
		stats.BytesAfter += r.stats.BytesAfter
		stats.LinesBefore += r.lines[0]
		stats.LinesAfter += r.lines[1]
		files = append(files, r.stats)
	}
	stats.ElapsedNanos = time.Since(start).Nanoseconds()

	if stats.FileCount == 0 {
		return stats, nil, stripperrors.New(stripperrors.ErrInputRead, "no file in project could be processed").WithContext("project", project)
	}

	return stats, files, nil
}

type strippedFile struct {
	delta report.FileDelta
	lines [2]int64
}

func (d *Driver) stripFile(job fileJob, project string) (strippedFile, error) {
	content, err := os.ReadFile(job.inputPath)
	if err != nil {
		return strippedFile{}, stripperrors.NewInputError(job.inputPath, err)
	}
	if !utf8.Valid(content) {
		return strippedFile{}, stripperrors.NewEncodingError(job.inputPath)
	}

	contentHash := cache.ContentHash(content)
	if entry, ok := d.cache.Get(job.relativePath, contentHash); ok {
		d.logger.Debug("cache hit, skipping strip", "path", job.relativePath)
		return strippedFile{
			delta: report.FileDelta{
				Project:     project,
				Path:        job.relativePath,
				BytesBefore: entry.BytesBefore,
				BytesAfter:  entry.BytesAfter,
			},
			lines: [2]int64{entry.LinesBefore, entry.LinesAfter},
		}, nil
	}

	stripped := lexer.Strip(string(content))

	if err := os.MkdirAll(filepath.Dir(job.outputPath), 0o755); err != nil {
		return strippedFile{}, stripperrors.NewOutputError(job.outputPath, err)
	}
	if err := os.WriteFile(job.outputPath, []byte(stripped), 0o644); err != nil {
		return strippedFile{}, stripperrors.NewOutputError(job.outputPath, err)
	}

	linesBefore := int64(strings.Count(string(content), "\n"))
	linesAfter := int64(strings.Count(stripped, "\n"))

	d.cache.Put(job.relativePath, cache.Entry{
		ContentHash:  contentHash,
		StrippedHash: cache.ContentHash([]byte(stripped)),
		BytesBefore:  int64(len(content)),
		BytesAfter:   int64(len(stripped)),
		LinesBefore:  linesBefore,
		LinesAfter:   linesAfter,
	})

	d.logger.Debug("stripped file", "path", job.relativePath, "bytes_before", len(content), "bytes_after", len(stripped))

	return strippedFile{
		delta: report.FileDelta{
			Project:     project,
			Path:        job.relativePath,
			BytesBefore: int64(len(content)),
			BytesAfter:  int64(len(stripped)),
		},
		lines: [2]int64{linesBefore, linesAfter},
	}, nil
}

func listProjectDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	return dirs, nil
}

func collectJobs(inputRoot, outputRoot string, include, exclude []string) ([]fileJob, error) {
	var jobs []fileJob
	err := filepath.WalkDir(inputRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(inputRoot, path)
		if err != nil {
			return err
		}
		if !matches(rel, include, exclude) {
			return nil
		}
		jobs = append(jobs, fileJob{
			inputPath:    path,
			relativePath: rel,
			outputPath:   filepath.Join(outputRoot, flatten(rel)),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// Flatten replaces path separators with '_' so every file in a project
// lands directly in <outputRoot>/<project>/.
func Flatten(rel string) string {
	return strings.ReplaceAll(rel, string(filepath.Separator), "_")
}

func flatten(rel string) string {
	return Flatten(rel)
}

func matches(rel string, include, exclude []string) bool {
	name := filepath.Base(rel)
	for _, pattern := range exclude {
		if ok, _ := filepath.Match(pattern, name); ok {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, pattern := range include {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// Watch runs Driver.Run once, then re-strips individual files as they
// change under cfg.InputRoot until ctx is cancelled. A single goroutine
// drives the event loop, so re-strips never overlap for the same path.
func (d *Driver) Watch(ctx context.Context, cfg config.Config) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return stripperrors.Wrap(stripperrors.ErrInputRead, "failed to start watcher", err)
	}
	defer watcher.Close()

	if err := addRecursive(watcher, cfg.InputRoot); err != nil {
		return stripperrors.NewInputError(cfg.InputRoot, err)
	}

	if _, err := d.Run(ctx, cfg); err != nil {
		d.logger.Warn("initial run before watch reported an error", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			d.handleWatchEvent(ctx, cfg, event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			d.logger.Warn("watcher error", "error", err)
		}
	}
}

func (d *Driver) handleWatchEvent(ctx context.Context, cfg config.Config, path string) {
	rel, err := filepath.Rel(cfg.InputRoot, path)
	if err != nil {
		return
	}
	parts := strings.SplitN(rel, string(filepath.Separator), 2)
	if len(parts) != 2 {
		return
	}
	project, relInProject := parts[0], parts[1]
	if !matches(relInProject, cfg.Include, cfg.Exclude) {
		return
	}

	job := fileJob{
		inputPath:    path,
		relativePath: rel,
		outputPath:   filepath.Join(cfg.OutputRoot, project, flatten(relInProject)),
	}
	if _, err := d.stripFile(job, project); err != nil {
		d.logger.Warn("failed to re-strip watched file", "path", rel, "error", err)
	}
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
