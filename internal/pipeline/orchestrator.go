package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"resume-tailor/internal/bundles"
	"resume-tailor/internal/generator"
	"resume-tailor/internal/shared/metrics"
	"resume-tailor/internal/shared/telemetry"
	"resume-tailor/internal/shared/util"
	"resume-tailor/resume/compile"
	"resume-tailor/resume/model"
	"resume-tailor/resume/render"
)

const (
	DefaultMaxInFlight    = 4
	DefaultJobTimeout     = 2 * time.Minute
	DefaultRequestTimeout = 3 * time.Minute
	DefaultGrace          = 2 * time.Second

	bundleTimeout = 30 * time.Second
)

var errJobTimeout = errors.New("job did not finish before the request deadline")

// Generator produces tailored content for one job.
type Generator interface {
	Generate(ctx context.Context, profile model.Profile, job model.JobPosting, prefs map[string]string) (model.TailoredContent, error)
}

// Renderer turns content into markup and an editable résumé.
type Renderer interface {
	Render(kind render.Kind, in render.Input) (render.Document, error)
	RenderDOCX(in render.Input) ([]byte, error)
}

// Compiler turns markup into a PDF, degrading to markup only.
type Compiler interface {
	Compile(ctx context.Context, markup, name string) compile.Result
}

// Bundler archives and stores job results.
type Bundler interface {
	Bundle(ctx context.Context, runID, owner string, results []bundles.JobResult) (bundles.ArtifactBundle, error)
}

// Options tunes the orchestrator. Zero values use the defaults above.
type Options struct {
	MaxInFlight        int
	JobTimeout         time.Duration
	RequestTimeout     time.Duration
	Grace              time.Duration
	FallbackUntailored bool
	// PageLimit returns the page budget for a region; 0 disables the check.
	PageLimit func(model.Region) int
	NewID     func() string
}

// Orchestrator fans a request out across its jobs and bundles the results.
type Orchestrator struct {
	gen      Generator
	renderer Renderer
	compiler Compiler
	bundler  Bundler
	opts     Options
}

// New builds an Orchestrator.
func New(gen Generator, renderer Renderer, compiler Compiler, bundler Bundler, opts Options) *Orchestrator {
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = DefaultMaxInFlight
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = DefaultJobTimeout
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Orchestrator{gen: gen, renderer: renderer, compiler: compiler, bundler: bundler, opts: opts}
}

// Run validates req, runs every job and returns the stored bundle. After
// validation the only error is the bundler's.
func (o *Orchestrator) Run(ctx context.Context, req model.GenerationRequest) (bundle bundles.ArtifactBundle, err error) {
	if err := model.ValidateRequest(req); err != nil {
		return bundles.ArtifactBundle{}, err
	}

	runID := o.opts.NewID()
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "pipeline.run",
		attribute.String("run_id", runID),
		attribute.Int("jobs", len(req.Jobs)),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	metrics.IncRunStarted()
	telemetry.Info("pipeline.run.start", map[string]any{
		"run_id":        runID,
		"jobs":          len(req.Jobs),
		"max_in_flight": o.opts.MaxInFlight,
		"profile_hash":  util.HashKey(req.Profile.Name)[:12],
	})

	runCtx, cancel := context.WithTimeout(ctx, o.opts.RequestTimeout)
	defer cancel()

	var (
		mu       sync.Mutex
		results  = make([]bundles.JobResult, len(req.Jobs))
		finished = make([]bool, len(req.Jobs))
	)
	sem := semaphore.NewWeighted(int64(o.opts.MaxInFlight))
	g, gctx := errgroup.WithContext(runCtx)
	for i, job := range req.Jobs {
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)
			res := o.runJob(gctx, runID, req, job)
			mu.Lock()
			results[i] = res
			finished[i] = true
			mu.Unlock()
			return nil
		})
	}

	waitDone := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-runCtx.Done():
		select {
		case <-waitDone:
		case <-time.After(o.opts.Grace):
			telemetry.Warn("pipeline.run.grace_exceeded", map[string]any{"run_id": runID})
		}
	}

	mu.Lock()
	final := make([]bundles.JobResult, len(req.Jobs))
	for i, job := range req.Jobs {
		if finished[i] {
			final[i] = results[i]
			continue
		}
		final[i] = timeoutResult(job)
		o.observe(runID, final[i])
	}
	mu.Unlock()

	// Late finishers still write into results; their PDFs go once all jobs stop.
	defer func() {
		go func() {
			<-waitDone
			mu.Lock()
			defer mu.Unlock()
			removeOutputs(results)
		}()
	}()

	bctx, bcancel := context.WithTimeout(context.WithoutCancel(ctx), bundleTimeout)
	defer bcancel()
	bundle, err = o.bundler.Bundle(bctx, runID, req.Profile.Name, final)
	if err != nil {
		telemetry.Error("pipeline.run.bundle_failed", map[string]any{
			"run_id": runID,
			"error":  err.Error(),
		})
		return bundles.ArtifactBundle{}, err
	}

	metrics.IncRunCompleted()
	telemetry.Info("pipeline.run.complete", map[string]any{
		"run_id":      runID,
		"bundle_id":   bundle.ID,
		"status":      string(bundle.Status),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return bundle, nil
}

func (o *Orchestrator) runJob(ctx context.Context, runID string, req model.GenerationRequest, job model.JobPosting) (res bundles.JobResult) {
	start := time.Now()
	region := job.ResolveRegion()
	res = bundles.JobResult{JobID: job.ID, Company: job.Company, Region: region}

	ctx, cancel := context.WithTimeout(ctx, o.opts.JobTimeout)
	defer cancel()
	ctx, span := telemetry.StartSpan(ctx, "pipeline.job",
		attribute.String("run_id", runID),
		attribute.String("job_id", job.ID),
		attribute.String("region", string(region)),
	)
	defer func() {
		res.Duration = time.Since(start)
		telemetry.EndSpan(span, res.Err)
		o.observe(runID, res)
	}()

	content, err := o.gen.Generate(ctx, req.Profile, job, req.Preferences)
	if err != nil {
		kind := errorKind(err)
		if !o.opts.FallbackUntailored || kind == bundles.ErrorTimeout {
			return failed(res, kind, err)
		}
		content = model.Untailored(req.Profile, job)
		res.Fallback = true
		res.Err = err
	}
	res.Content = &content

	in := render.Input{Profile: req.Profile, Job: job, Content: content, Region: region}
	stem := model.JobStem(job.ID)
	for _, kind := range []render.Kind{render.KindResume, render.KindCoverLetter} {
		doc, err := o.renderer.Render(kind, in)
		if err != nil {
			return failed(res, bundles.ErrorTemplate, err)
		}
		out := o.compiler.Compile(ctx, doc.Source, fmt.Sprintf("%s_%s_%s", runID, stem, kind))
		if kind == render.KindResume {
			out = o.checkPages(runID, job.ID, doc.Region, out)
		}
		res.Documents = append(res.Documents, bundles.DocumentResult{Kind: kind, Result: out})
	}
	if editable, err := o.renderer.RenderDOCX(in); err != nil {
		telemetry.Warn("pipeline.docx_failed", map[string]any{
			"run_id": runID,
			"job_id": job.ID,
			"error":  err.Error(),
		})
	} else {
		res.Editable = editable
	}
	res.Status = bundles.WorstStatus(res.Documents)
	return res
}

// checkPages flags a compiled résumé longer than its region allows.
func (o *Orchestrator) checkPages(runID, jobID string, region model.Region, out compile.Result) compile.Result {
	if o.opts.PageLimit == nil || !out.Status.Compiled() {
		return out
	}
	limit := o.opts.PageLimit(region)
	if limit <= 0 || out.Pages <= limit {
		return out
	}
	telemetry.Warn("pipeline.page_overflow", map[string]any{
		"run_id": runID,
		"job_id": jobID,
		"region": string(region),
		"pages":  out.Pages,
		"limit":  limit,
	})
	out.Warnings = append(append([]string(nil), out.Warnings...),
		fmt.Sprintf("résumé is %d pages; %s allows %d", out.Pages, region, limit))
	if out.Status == compile.StatusSucceeded {
		out.Status = compile.StatusCompiledWithWarnings
	}
	return out
}

func (o *Orchestrator) observe(runID string, res bundles.JobResult) {
	outcome := metrics.JobSucceeded
	switch {
	case res.ErrorKind == bundles.ErrorTimeout:
		outcome = metrics.JobTimedOut
	case res.Failed():
		outcome = metrics.JobFailed
	case res.Fallback || res.Status == bundles.JobMarkupOnly:
		outcome = metrics.JobDegraded
	}
	metrics.ObserveJob(outcome, float64(res.Duration.Milliseconds()))

	fields := map[string]any{
		"run_id":      runID,
		"job_id":      res.JobID,
		"status":      string(res.Status),
		"region":      string(res.Region),
		"duration_ms": res.Duration.Milliseconds(),
	}
	if res.Fallback {
		fields["fallback"] = true
	}
	if res.ErrorKind != "" {
		fields["error_kind"] = string(res.ErrorKind)
	}
	if res.Err != nil {
		fields["error"] = res.Err.Error()
	}
	telemetry.Info("pipeline.job.complete", fields)
}

func failed(res bundles.JobResult, kind bundles.ErrorKind, err error) bundles.JobResult {
	res.Status = bundles.JobFailed
	res.ErrorKind = kind
	res.Err = err
	res.Documents = nil
	return res
}

func timeoutResult(job model.JobPosting) bundles.JobResult {
	return bundles.JobResult{
		JobID:     job.ID,
		Company:   job.Company,
		Region:    job.ResolveRegion(),
		Status:    bundles.JobFailed,
		ErrorKind: bundles.ErrorTimeout,
		Err:       errJobTimeout,
	}
}

func errorKind(err error) bundles.ErrorKind {
	var genErr *generator.GenerationError
	switch {
	case errors.As(err, &genErr):
		switch genErr.Kind {
		case generator.KindTimeout:
			return bundles.ErrorTimeout
		case generator.KindInvalidResponse:
			return bundles.ErrorInvalidResponse
		default:
			return bundles.ErrorUnavailable
		}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return bundles.ErrorTimeout
	default:
		return bundles.ErrorInternal
	}
}

func removeOutputs(results []bundles.JobResult) {
	for _, res := range results {
		for _, doc := range res.Documents {
			if doc.Result.PDFPath == "" {
				continue
			}
			if err := os.Remove(doc.Result.PDFPath); err != nil && !os.IsNotExist(err) {
				telemetry.Warn("pipeline.output_cleanup", map[string]any{
					"path":  doc.Result.PDFPath,
					"error": err.Error(),
				})
			}
		}
	}
}
