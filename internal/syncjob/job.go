// Package syncjob re-derives the release table from the spreadsheet, pushes
// it to the release API and cross-references recent Jira issues.
//
// One run is:
//  1. open the spreadsheet (local or s3://) and read the configured sheet
//  2. reconcile Category/Scope and assign identifiers
//  3. push the batch, or print it on a dry run
//  4. search Jira (read-only); failures here are logged and never affect
//     the push
package syncjob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/JonMunkholm/releaseboard/internal/config"
	"github.com/JonMunkholm/releaseboard/internal/core"
	"github.com/JonMunkholm/releaseboard/internal/jira"
	"github.com/JonMunkholm/releaseboard/internal/logging"
	"github.com/JonMunkholm/releaseboard/internal/releaseapi"
	"github.com/JonMunkholm/releaseboard/internal/sheet"
	"github.com/JonMunkholm/releaseboard/internal/source"
	"github.com/google/uuid"
)

// Pusher replaces the remote batch.
type Pusher interface {
	Push(ctx context.Context, rows []*core.Row) (*releaseapi.IngestResponse, error)
}

// IssueSearcher runs a bounded issue search.
type IssueSearcher interface {
	Search(ctx context.Context, opts jira.SearchOptions) ([]jira.Issue, error)
}

// Options wires a Job. Jira may be nil to skip the issue search.
type Options struct {
	Source    source.Opener
	Path      string
	Sheet     string
	Identity  core.AssignOptions
	Pusher    Pusher
	Jira      IssueSearcher
	JiraQuery jira.SearchOptions

	// DryRun writes the prepared payload to Out instead of pushing it.
	DryRun bool
	Out    io.Writer

	Logger *slog.Logger
}

// Job runs sync cycles.
type Job struct {
	opts   Options
	format sheet.Format
	logger *slog.Logger
}

// Result summarizes one cycle.
type Result struct {
	Rows    int
	BatchID string
	Issues  int

	// JiraErr is set when the issue search failed. It never fails the run.
	JiraErr error
}

// New validates opts and creates a Job.
func New(opts Options) (*Job, error) {
	if opts.Source == nil {
		return nil, errors.New("syncjob: source is required")
	}
	if opts.Pusher == nil && !opts.DryRun {
		return nil, errors.New("syncjob: pusher is required unless dry run")
	}
	format, err := sheet.FormatFromPath(opts.Path)
	if err != nil {
		return nil, err
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{opts: opts, format: format, logger: logger}, nil
}

// NewFromConfig builds a Job with the real source, push client and Jira
// client described by cfg.
func NewFromConfig(cfg *config.SyncConfig, skipJira, dryRun bool) (*Job, error) {
	fp, err := core.FingerprintByName(cfg.Identity.Fingerprint)
	if err != nil {
		return nil, err
	}

	opts := Options{
		Source:   source.NewRouter(cfg.S3),
		Path:     cfg.Source.Path,
		Sheet:    cfg.Source.Sheet,
		Identity: core.AssignOptions{Fingerprint: fp, SuffixFirst: cfg.Identity.SuffixFirst},
		Pusher:   releaseapi.NewClient(cfg.Push.URL, cfg.Push.APIKey, cfg.Push.Timeout),
		DryRun:   dryRun,
	}

	switch {
	case skipJira || !cfg.Jira.Enabled:
		slog.Info("jira search disabled")
	case !cfg.Jira.Configured():
		slog.Warn("jira search skipped: JIRA_BASE_URL, JIRA_EMAIL and JIRA_API_TOKEN are required")
	default:
		opts.Jira = jira.NewClient(jira.Options{
			BaseURL:  cfg.Jira.BaseURL,
			Email:    cfg.Jira.Email,
			APIToken: cfg.Jira.APIToken,
			Timeout:  cfg.Jira.Timeout,
		})
		opts.JiraQuery = jira.SearchOptions{
			Project:    cfg.Jira.Project,
			Days:       cfg.Jira.Days,
			RetryDays:  cfg.Jira.RetryDays,
			MaxResults: cfg.Jira.MaxResults,
		}
	}

	return New(opts)
}

// Run executes one cycle immediately, then every interval until ctx is
// done. A non-positive interval runs once and returns that cycle's error.
// In periodic mode failed cycles are logged and the schedule continues.
func (j *Job) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		_, err := j.RunOnce(ctx)
		return err
	}

	j.logger.Info("sync scheduler started", "interval", interval.String())
	j.runLogged(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("sync scheduler stopped")
			return nil
		case <-ticker.C:
			j.runLogged(ctx)
		}
	}
}

func (j *Job) runLogged(ctx context.Context) {
	if _, err := j.RunOnce(ctx); err != nil {
		j.logger.Error("sync cycle failed", "error", err)
	}
}

// RunOnce performs one sync cycle. The returned error reports a failed load
// or push; Jira problems are reported in Result.JiraErr.
func (j *Job) RunOnce(ctx context.Context) (Result, error) {
	var result Result
	log := j.runLogger(ctx, "run_id", uuid.NewString())
	start := time.Now()

	table, err := j.load(ctx)
	if err != nil {
		return result, err
	}
	core.PrepareTable(table, j.opts.Identity)
	result.Rows = len(table.Rows)

	j.logTable(log, table)
	log.Info("batch prepared", "rows", result.Rows, "source", j.opts.Path)

	pushErr := j.push(ctx, log, table.Rows, &result)

	if j.opts.Jira != nil {
		issues, err := j.opts.Jira.Search(ctx, j.opts.JiraQuery)
		if err != nil {
			result.JiraErr = err
			log.Warn("jira search failed", "error", err, "hint", hint(err))
		} else {
			result.Issues = len(issues)
			log.Info("jira issues read", "issues", result.Issues)
		}
	}

	log.Info("sync cycle finished",
		"rows", result.Rows,
		"issues", result.Issues,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, pushErr
}

func (j *Job) load(ctx context.Context) (*core.Table, error) {
	rc, err := j.opts.Source.Open(ctx, j.opts.Path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	table, err := sheet.Read(rc, j.format, j.opts.Sheet)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", j.opts.Path, err)
	}
	return table, nil
}

func (j *Job) push(ctx context.Context, log *slog.Logger, rows []*core.Row, result *Result) error {
	if j.opts.DryRun {
		enc := json.NewEncoder(j.opts.Out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(nonNil(rows)); err != nil {
			return fmt.Errorf("write dry run payload: %w", err)
		}
		log.Info("dry run: payload written, nothing pushed", "rows", len(rows))
		return nil
	}

	resp, err := j.opts.Pusher.Push(ctx, rows)
	if err != nil {
		log.Error("push failed", "error", err, "hint", hint(err))
		return err
	}
	result.BatchID = resp.BatchID
	log.Info("batch pushed", "rows", resp.Rows, "batch_id", resp.BatchID, "message", resp.Message)
	return nil
}

// logTable logs column order and the first row at debug level.
func (j *Job) logTable(log *slog.Logger, table *core.Table) {
	if !log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	for i, col := range table.Columns {
		log.Debug("column", "position", i+1, "name", col)
	}
	if len(table.Rows) > 0 {
		sample, _ := json.Marshal(table.Rows[0])
		log.Debug("first row", "row", string(sample))
	}
}

// hint returns the operator-facing rendition of err, or "" for errors
// without a catalog entry.
// runLogger tags a cycle's log lines. Without an injected logger the lines
// go through the process default, picking up context fields.
func (j *Job) runLogger(ctx context.Context, args ...any) *slog.Logger {
	if j.opts.Logger != nil {
		return j.opts.Logger.With(args...)
	}
	return logging.WithFields(ctx, args...)
}

func hint(err error) string {
	if !core.IsUserFacing(err) {
		return ""
	}
	return core.FormatUserError(err)
}

func nonNil(rows []*core.Row) []*core.Row {
	if rows == nil {
		return []*core.Row{}
	}
	return rows
}
