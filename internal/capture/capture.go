package capture

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/oshokin/intruder-sentry/internal/logger"
)

// Result describes the outcome of one capture request.
type Result struct {
	// Succeeded reports whether any backend produced an image.
	Succeeded bool
	// Path is the location of the captured image when Succeeded is true.
	Path string
	// Backend names the tool that produced the image.
	Backend string
}

// Backend is a single capture tool in the fallback chain.
type Backend struct {
	// Tool is the executable name looked up on PATH.
	Tool string
	// Args builds the tool's argument list for the given output path.
	Args func(outputPath string) []string
}

// DefaultBackends returns the capture chain in preference order:
// rpicam-still (Bookworm default), libcamera-still (legacy name),
// fswebcam (USB webcam fallback).
func DefaultBackends() []Backend {
	still := func(tool string, extra ...string) Backend {
		return Backend{
			Tool: tool,
			Args: func(outputPath string) []string {
				args := append([]string{}, extra...)
				return append(args,
					"-t", "500", "--immediate",
					"--width", "1280", "--height", "720",
					"-o", outputPath)
			},
		}
	}

	return []Backend{
		// -n: no preview (headless), --zsl: zero shutter lag.
		still("rpicam-still", "-n", "--zsl"),
		still("libcamera-still", "-n"),
		{
			Tool: "fswebcam",
			Args: func(outputPath string) []string {
				return []string{"-r", "1280x720", "--no-banner", outputPath}
			},
		},
	}
}

// Provider captures a still image through an ordered chain of CLI tools.
// Every attempt is bounded by a timeout so a hung camera tool cannot stall
// the detection loop for more than a couple of samples.
type Provider struct {
	// backends is the ordered tool chain.
	backends []Backend
	// timeout bounds a single tool invocation.
	timeout time.Duration

	// runTool and lookPath are indirected so tests can substitute fakes.
	runTool  func(ctx context.Context, tool string, args ...string) error
	lookPath func(tool string) (string, error)
}

// Option configures provider behaviour.
type Option func(*Provider)

// WithBackends replaces the default capture chain.
func WithBackends(backends []Backend) Option {
	return func(p *Provider) {
		if len(backends) > 0 {
			p.backends = backends
		}
	}
}

// NewProvider creates a provider with the default tool chain and the
// given per-attempt timeout.
func NewProvider(timeout time.Duration, opts ...Option) *Provider {
	p := &Provider{
		backends: DefaultBackends(),
		timeout:  timeout,
		runTool:  runQuiet,
		lookPath: exec.LookPath,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Capture tries each backend in order and stops at the first success.
// An attempt succeeds only if the tool exits cleanly AND the output file
// exists afterwards; exit code alone is not trusted. Returns a failed
// Result when every backend is absent or fails.
func (p *Provider) Capture(ctx context.Context, outputPath string) Result {
	for _, backend := range p.backends {
		if _, err := p.lookPath(backend.Tool); err != nil {
			continue
		}

		// Remove any stale file so the existence check below is meaningful.
		_ = os.Remove(outputPath)

		attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := p.runTool(attemptCtx, backend.Tool, backend.Args(outputPath)...)

		cancel()

		if err != nil {
			logger.DebugKV(ctx, "Capture tool failed",
				"tool", backend.Tool, "error", err)

			continue
		}

		if info, statErr := os.Stat(outputPath); statErr == nil && info.Mode().IsRegular() {
			logger.DebugKV(ctx, "Captured image",
				"tool", backend.Tool, "path", outputPath, "bytes", info.Size())

			return Result{Succeeded: true, Path: outputPath, Backend: backend.Tool}
		}

		logger.DebugKV(ctx, "Capture tool exited cleanly but produced no file",
			"tool", backend.Tool)
	}

	return Result{}
}

// runQuiet runs a CLI tool discarding its output, keeping the logs clean.
func runQuiet(ctx context.Context, tool string, args ...string) error {
	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil

	return cmd.Run()
}
