package main

// Tailor a profile against a set of jobs without the HTTP server:
//   go run ./cmd/tailor -request request.json -out ./out

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"resume-tailor/internal/bootstrap"
	"resume-tailor/internal/bundles"
	"resume-tailor/internal/shared/config"
	"resume-tailor/resume/model"
)

func main() {
	requestPath := flag.String("request", "", "path to a generation request JSON file")
	outDir := flag.String("out", ".", "directory the bundle ZIP is written to")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path, bundle, err := run(ctx, config.Load(), *requestPath, *outDir)
	if err != nil {
		log.Fatalf("tailor: %v", err)
	}
	fmt.Printf("%s %s (%d jobs)\n", bundle.Status, path, len(bundle.Jobs))
	for _, job := range bundle.Jobs {
		line := fmt.Sprintf("  %-24s %s", job.JobID, job.Status)
		if job.Error != "" {
			line += ": " + job.Error
		}
		fmt.Println(line)
	}
}

func run(ctx context.Context, cfg config.Config, requestPath, outDir string) (string, bundles.ArtifactBundle, error) {
	if requestPath == "" {
		return "", bundles.ArtifactBundle{}, fmt.Errorf("-request is required")
	}
	req, err := readRequest(requestPath)
	if err != nil {
		return "", bundles.ArtifactBundle{}, err
	}

	// Local runs never touch the database.
	cfg.DatabaseURL = ""
	cfg.Env = "local"
	app, err := bootstrap.Build(ctx, cfg, bootstrap.Options{SkipRouter: true})
	if err != nil {
		return "", bundles.ArtifactBundle{}, fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	bundle, err := app.Orchestrator.Run(ctx, req)
	if err != nil {
		return "", bundles.ArtifactBundle{}, err
	}

	rc, _, err := app.Bundles.Open(ctx, bundle.ID)
	if err != nil {
		return "", bundles.ArtifactBundle{}, fmt.Errorf("open bundle: %w", err)
	}
	defer rc.Close()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", bundles.ArtifactBundle{}, fmt.Errorf("create out dir: %w", err)
	}
	dst := filepath.Join(outDir, bundle.FileName)
	f, err := os.Create(dst)
	if err != nil {
		return "", bundles.ArtifactBundle{}, fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(f, rc); err != nil {
		_ = f.Close()
		return "", bundles.ArtifactBundle{}, fmt.Errorf("write %s: %w", dst, err)
	}
	if err := f.Close(); err != nil {
		return "", bundles.ArtifactBundle{}, fmt.Errorf("close %s: %w", dst, err)
	}
	return dst, bundle, nil
}

func readRequest(path string) (model.GenerationRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.GenerationRequest{}, fmt.Errorf("read request: %w", err)
	}
	var req model.GenerationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return model.GenerationRequest{}, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}
