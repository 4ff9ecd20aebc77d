// Command demo wires the reference Chunk Source / Loader / Load
// Control implementations in internal/demo/chunksource to
// internal/source.Wrapper and drives it the way a renderer would:
// Prepare until ready, Enable the primary group, then poll ReadData
// and ContinueBuffering on a ticker. It exists to exercise the core
// module end to end against a live process you can point metrics and
// tracing at.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"hlssource/internal/app"
	"hlssource/internal/demo/chunksource"
	"hlssource/internal/domain"
	"hlssource/internal/domain/ports"
	"hlssource/internal/events"
	"hlssource/internal/events/mongosink"
	"hlssource/internal/metrics"
	"hlssource/internal/source"
	"hlssource/internal/telemetry"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Warn("metrics register failed", slog.String("error", err.Error()))
	}

	shutdownTracer, err := telemetry.Setup(context.Background(), telemetry.Config{
		Endpoint:    cfg.OTELEndpoint,
		SampleRate:  cfg.OTELSampleRate,
		ServiceName: "hlssource-demo",
	})
	if err != nil {
		logger.Warn("otel setup failed", slog.String("error", err.Error()))
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatcher := events.NewDispatcher(logger)
	defer dispatcher.Close()

	wsBridge := newWSEventBridge(logger)
	go wsBridge.run()
	defer wsBridge.Close()
	dispatcher.Add(wsBridge)

	if cfg.MongoURI != "" {
		connectCtx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
		client, err := mongosink.Connect(connectCtx, cfg.MongoURI)
		cancel()
		if err != nil {
			logger.Warn("mongo connect failed, continuing without audit sink", slog.String("error", err.Error()))
		} else {
			sink := mongosink.New(client, cfg.MongoDatabase, cfg.MongoCollection, logger)
			if err := sink.EnsureIndexes(rootCtx); err != nil {
				logger.Warn("mongo ensure indexes failed", slog.String("error", err.Error()))
			}
			dispatcher.Add(sink)
			logger.Info("load event audit sink enabled", slog.String("db", cfg.MongoDatabase))
		}
	}

	chunkSrc := chunksource.New(chunksource.Config{
		Renditions: []chunksource.Rendition{
			{Format: domain.Format{ID: "v0", MimeType: "video/avc", Bitrate: 800_000, Width: 640, Height: 360}},
			{Format: domain.Format{ID: "v1", MimeType: "video/avc", Bitrate: 2_800_000, Width: 1280, Height: 720}},
		},
		SegmentLength: domain.TimeUs(cfg.SegmentLengthUs),
		SegmentCount:  cfg.SegmentCount,
		BytesPerUs:    float64(cfg.SimBitrateBytesPS) / 1_000_000,
		Live:          cfg.Live,
	}, rate.Limit(cfg.SimBitrateBytesPS), int(cfg.SimBitrateBytesPS))

	loader := chunksource.NewLoader()
	loadControl := chunksource.NewLoadControl(domain.TimeUs(cfg.BufferAheadUs))

	src := source.New(source.Options{
		SourceID:        ports.SourceID(uuid.New().String()),
		ChunkSource:     chunkSrc,
		Loader:          loader,
		LoadControl:     loadControl,
		BufferSizeBytes: cfg.BufferSizeBytes,
		Events:          dispatcher,
		Logger:          logger,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/events", wsBridge.serveHTTP)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	traced := otelhttp.NewHandler(mux, "hlssource-demo",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/metrics" && r.URL.Path != "/healthz"
		}),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           traced,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info("demo http server started",
		slog.String("addr", cfg.HTTPAddr),
		slog.Int("segmentCount", cfg.SegmentCount),
		slog.Bool("live", cfg.Live),
	)

	driveCtx, cancelDrive := context.WithCancel(rootCtx)
	go driveSampleSource(driveCtx, src, cfg, logger)

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
		}
	}

	cancelDrive()
	src.Release()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("demo stopped")
}

// driveSampleSource plays the role the renderer thread plays in a real
// host: poll Prepare until ready, Enable the primary track group, then
// alternate ContinueBuffering and ReadData on a ticker, logging every
// FormatRead/SampleRead/EndOfStream transition.
func driveSampleSource(ctx context.Context, src *source.Wrapper, cfg app.Config, logger *slog.Logger) {
	ticker := time.NewTicker(cfg.PlaybackTick)
	defer ticker.Stop()

	var stream ports.TrackStream
	var positionUs domain.TimeUs

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if stream == nil {
			status, err := src.Prepare(0)
			if err != nil {
				logger.Error("prepare failed", slog.String("error", err.Error()))
				return
			}
			if status != domain.Ready {
				continue
			}
			primary := 0
			for i := 0; i < src.TrackGroupCount(); i++ {
				if src.TrackGroup(i).Adaptive {
					primary = i
					break
				}
			}
			s, err := src.Enable(primary, []int{0}, 0)
			if err != nil {
				logger.Error("enable failed", slog.String("error", err.Error()))
				return
			}
			stream = s
			logger.Info("enabled primary track group", slog.Int("group", primary))
			continue
		}

		src.ContinueBuffering(positionUs)

		if reset := stream.ReadReset(); reset != domain.NoReset {
			logger.Info("reset marker observed", slog.Int64("positionUs", int64(reset)))
		}

		var format domain.Format
		var sample domain.Sample
		result, err := stream.ReadData(&format, &sample)
		if err != nil {
			logger.Error("readdata error", slog.String("error", err.Error()))
			continue
		}
		switch result {
		case domain.FormatRead:
			logger.Debug("format read", slog.String("mime", format.MimeType), slog.Int("bitrate", format.Bitrate))
		case domain.SampleRead:
			positionUs = sample.TimeUs
			logger.Debug("sample read", slog.Int64("timeUs", int64(sample.TimeUs)), slog.Bool("decodeOnly", sample.DecodeOnly))
		case domain.EndOfStream:
			logger.Info("end of stream reached")
			return
		case domain.NothingRead:
		}
	}
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(strings.TrimSpace(formatRaw)) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
