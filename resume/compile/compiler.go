// Package compile turns rendered LaTeX into PDF by running an external
// toolchain, retrying once with the last job-specific block removed and
// degrading to markup only when that also fails.
package compile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"resume-tailor/internal/extract"
	"resume-tailor/internal/shared/metrics"
	"resume-tailor/internal/shared/telemetry"
	"resume-tailor/internal/shared/util"
	"resume-tailor/internal/shared/workdir"
)

const (
	sourceName = "doc.tex"
	outputName = "doc.pdf"
	logName    = "doc.log"

	defaultTimeout = 20 * time.Second
	maxOutputBytes = 64 << 10
	waitDelay      = 2 * time.Second
)

// DefaultCmd is the toolchain invocation; the source file name is appended.
var DefaultCmd = []string{"latexmk", "-pdf", "-interaction=nonstopmode", "-halt-on-error"}

// Options configures a Compiler.
type Options struct {
	Cmd       []string
	Timeout   time.Duration
	WorkRoot  string
	OutputDir string
}

// Compiler runs one toolchain invocation per attempt, each in its own
// scratch directory. It is safe for concurrent use.
type Compiler struct {
	cmd       []string
	timeout   time.Duration
	workRoot  string
	outputDir string
}

// New returns a Compiler with defaults applied to empty options.
func New(opts Options) *Compiler {
	c := &Compiler{
		cmd:       append([]string(nil), opts.Cmd...),
		timeout:   opts.Timeout,
		workRoot:  opts.WorkRoot,
		outputDir: opts.OutputDir,
	}
	if len(c.cmd) == 0 {
		c.cmd = append([]string(nil), DefaultCmd...)
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.outputDir == "" {
		c.outputDir = filepath.Join(os.TempDir(), "resume-tailor-out")
	}
	return c
}

// OutputDir is where compiled files are copied.
func (c *Compiler) OutputDir() string {
	return c.outputDir
}

// Command is the executable the compiler invokes.
func (c *Compiler) Command() string {
	return c.cmd[0]
}

// Compile compiles markup and copies the PDF to OutputDir()/<name>.pdf.
// It never fails; problems are reported through Result.Status.
func (c *Compiler) Compile(ctx context.Context, markup, name string) Result {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "compile.compile", attribute.String("document", name))

	res := Result{Status: StatusCompiling, Markup: markup}
	stem := util.FileStem(name, 0)
	if stem == "" {
		stem = "document"
	}

	first := c.attempt(ctx, markup, stem)
	res.Attempts = 1
	final := first

	if !first.ok && ctx.Err() == nil {
		if reduced, block, stripped := StripLastBlock(markup); stripped {
			metrics.IncCompileRetry()
			telemetry.Warn("compile.retry", map[string]any{
				"document":  name,
				"block":     block,
				"exit_code": first.exitCode,
				"timed_out": first.timedOut,
				"error":     errString(first.err),
			})
			res.Attempts = 2
			res.StrippedBlock = block
			final = c.attempt(ctx, reduced, stem)
		}
	}

	res.ExitCode = final.exitCode
	res.TimedOut = final.timedOut
	res.Warnings = final.warnings
	res.Duration = time.Since(start)

	if final.ok {
		res.PDFPath = final.pdfPath
		res.Pages = final.pages
		res.Status = StatusSucceeded
		if len(final.warnings) > 0 || res.StrippedBlock != "" {
			res.Status = StatusCompiledWithWarnings
		}
		if res.StrippedBlock != "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("compiled without block %q", res.StrippedBlock))
		}
		telemetry.EndSpan(span, nil)
		return res
	}

	res.Status = StatusMarkupOnly
	res.Log = final.log
	if res.Log == "" {
		res.Log = errString(final.err)
	}
	metrics.IncCompileFailed()
	telemetry.Warn("compile.degraded", map[string]any{
		"document":    name,
		"attempts":    res.Attempts,
		"exit_code":   res.ExitCode,
		"timed_out":   res.TimedOut,
		"duration_ms": res.Duration.Milliseconds(),
		"error":       errString(final.err),
	})
	telemetry.EndSpan(span, final.err)
	return res
}

type attemptResult struct {
	ok       bool
	pdfPath  string
	pages    int
	warnings []string
	log      string
	exitCode int
	timedOut bool
	err      error
}

func (c *Compiler) attempt(ctx context.Context, src, stem string) (out attemptResult) {
	started := time.Now()
	defer func() { metrics.ObserveCompileMs(float64(time.Since(started).Milliseconds())) }()

	dir, err := workdir.New(c.workRoot, "compile")
	if err != nil {
		out.err = err
		return out
	}
	defer dir.Close()

	if _, err := dir.WriteFile(sourceName, []byte(src)); err != nil {
		out.err = err
		return out
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var output cappedBuffer
	args := append(append([]string(nil), c.cmd[1:]...), sourceName)
	cmd := exec.CommandContext(runCtx, c.cmd[0], args...)
	cmd.Dir = dir.Path()
	cmd.Stdout = &output
	cmd.Stderr = &output
	cmd.WaitDelay = waitDelay

	runErr := cmd.Run()
	texLog := readLog(dir)
	if texLog == "" {
		texLog = output.String()
	}
	out.warnings = parseWarnings(texLog)
	out.log = excerpt(texLog)

	var exitErr *exec.ExitError
	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		out.timedOut = true
		out.exitCode = -1
		out.err = fmt.Errorf("compiler timed out after %s", c.timeout)
		return out
	case errors.As(runErr, &exitErr):
		out.exitCode = exitErr.ExitCode()
		out.err = fmt.Errorf("compiler exited with status %d", out.exitCode)
		return out
	case runErr != nil:
		out.exitCode = -1
		out.err = fmt.Errorf("run compiler: %w", runErr)
		return out
	}
	// A zero exit can still leave errors in the log under nonstopmode.
	if line, ok := firstError(texLog); ok {
		out.err = fmt.Errorf("compiler log reports an error: %s", line)
		return out
	}

	built, err := dir.Join(outputName)
	if err != nil {
		out.err = err
		return out
	}
	info, err := extract.InspectFile(built)
	if err != nil {
		out.err = err
		return out
	}
	dst, err := c.copyOut(built, stem)
	if err != nil {
		out.err = err
		return out
	}
	out.ok = true
	out.pdfPath = dst
	out.pages = info.Pages
	return out
}

func (c *Compiler) copyOut(src, stem string) (string, error) {
	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir output: %w", err)
	}
	dst := filepath.Join(c.outputDir, stem+".pdf")
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(c.outputDir, stem+".*.part")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("copy pdf: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return dst, nil
}

func readLog(dir *workdir.Dir) string {
	path, err := dir.Join(logName)
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

// cappedBuffer keeps the first maxOutputBytes of subprocess output.
type cappedBuffer struct {
	buf bytes.Buffer
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := maxOutputBytes - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
