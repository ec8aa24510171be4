package monitor

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/oshokin/intruder-sentry/internal/api/httpapi"
	"github.com/oshokin/intruder-sentry/internal/capture"
	"github.com/oshokin/intruder-sentry/internal/config"
	"github.com/oshokin/intruder-sentry/internal/domain/detection"
	"github.com/oshokin/intruder-sentry/internal/logger"
	"github.com/oshokin/intruder-sentry/internal/notify"
	"github.com/oshokin/intruder-sentry/internal/sensor"
	"github.com/oshokin/intruder-sentry/internal/service/common"
)

// Options controls the monitor process and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// Debug forces debug-level logging regardless of configuration.
	Debug bool
}

// executableName is the binary name checked by the single-instance guard.
const executableName = "intruder-sentry"

// Run starts the monitor and blocks until the context is canceled.
// Only sensor acquisition failures are fatal; every per-cycle error
// (capture, dispatch, configuration) is contained within its tick.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, executableName)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	applyLogLevel(cfg.LogLevel, opts.Debug)

	actor, err := common.DetectActor()
	if err != nil {
		return fmt.Errorf("detect actor: %w", err)
	}

	if err = common.EnsureSingleInstance(os.Getpid(), executableName); err != nil {
		return err
	}

	// The sensor is the one resource the monitor cannot run without.
	source, err := sensor.Open(ctx, cfg.Sensor)
	if err != nil {
		return fmt.Errorf("initialise sensor: %w", err)
	}

	// Release the sensor handle on every exit path and confirm it in the
	// final log line, so a truncated journal still shows a clean shutdown.
	defer func() {
		if closeErr := source.Close(); closeErr != nil {
			logger.ErrorKV(ctx, "Error releasing sensor", "error", closeErr)
		}

		logger.Info(ctx, "Sensor released")
	}()

	dispatcher := newAlertDispatcher(
		cfg.SendPhoto,
		cfg.PhotoPath,
		capture.NewProvider(cfg.CaptureTimeout),
		notify.NewNotifier(cfg.WebhookURL),
	)

	engine := detection.NewEngine(cfg.ThresholdCM, cfg.Cooldown, dispatcher)
	track := newTracker(source.Name(), time.Now())

	startStatusServer(ctx, cfg.StatusAddress, track)

	logger.InfoKV(ctx, "Monitoring",
		"threshold_cm", cfg.ThresholdCM,
		"sample_interval", cfg.SampleInterval.String(),
		"cooldown", cfg.Cooldown.String(),
		"photo", photoState(cfg.SendPhoto),
		"host", actor.Hostname,
		"user", actor.Username,
	)

	runLoop(ctx, cfg.SampleInterval, source, engine, track)

	// Let the in-flight capture+notify finish; its context is already
	// canceled, so this is a short wait, not a full capture.
	dispatcher.Wait()

	logger.Info(ctx, "Stopped by user")

	return nil
}

// runLoop drives the engine once per sample interval until cancellation.
func runLoop(
	ctx context.Context,
	interval time.Duration,
	source sensor.RangeSource,
	engine *detection.Engine,
	track *tracker,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sample, err := source.Read(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}

				logger.WarnKV(ctx, "Sensor read failed", "error", err)

				continue
			}

			event := engine.Tick(ctx, sample, time.Now())
			track.RecordTick(sample, event)
		}
	}
}

// startStatusServer launches the optional HTTP status endpoint.
// Its failure is not fatal: the monitor keeps running without it.
func startStatusServer(ctx context.Context, address string, source httpapi.Source) {
	if address == "" {
		return
	}

	server := httpapi.NewServer(address, source)

	go func() {
		if err := server.Run(ctx); err != nil {
			logger.ErrorKV(ctx, "Status endpoint failed", "error", err)
		}
	}()
}

// applyLogLevel folds configuration and the debug flag into the logger.
func applyLogLevel(configured string, debug bool) {
	if debug {
		logger.SetLevel(zapcore.DebugLevel)

		return
	}

	if level, ok := logger.ParseLogLevel(configured); ok {
		logger.SetLevel(level)
	}
}

// photoState renders the banner's photo flag the way operators grep for it.
func photoState(enabled bool) string {
	if enabled {
		return "ON"
	}

	return "OFF"
}
