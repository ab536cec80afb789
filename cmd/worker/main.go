package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/scancore/internal/config"
	"github.com/your-org/scancore/internal/models"
	"github.com/your-org/scancore/internal/observability"
	"github.com/your-org/scancore/internal/queue"
	"github.com/your-org/scancore/internal/scan/analyzer"
	"github.com/your-org/scancore/internal/scan/convert"
	"github.com/your-org/scancore/internal/scan/detect"
	"github.com/your-org/scancore/internal/scan/session"
	"github.com/your-org/scancore/internal/storage"
)

const workerCount = 4

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting scancore worker", "workers", workerCount)

	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := minioStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	sessions := session.NewController(cfg.Scan.DiagnosticRateLimit)
	sessions.OnChange(func(d session.Diagnostics) {
		observability.ActiveSessions.Set(boolToFloat(d.Lifecycle == "starting" || d.Bound))
	})

	emitter := &pipelineEmitter{db: db, minio: minioStore, producer: producer}

	// No neural-net detector SDK ships with this service; the detector is
	// an external collaborator by contract. This wires the deterministic
	// StaticBackend so the pipeline runs end to end, with production
	// deployments expected to supply a real detect.Backend.
	backend := detect.NewStaticBackend()
	pipeline := analyzer.New(cfg.Scan, backend, emitter, sessions)

	watchdog := session.NewWatchdog(sessions, cfg.Scan.WatchdogInterval, cfg.Scan.StallAfter, cfg.Scan.MaxStallMisses, func(sessionID int64) {
		slog.Warn("scan session failed", "session_id", sessionID)
		publishScanEvent(producer, models.ScanEvent{
			Type:      "session_failed",
			SessionID: sessionID,
			Timestamp: time.Now(),
			Reason:    "watchdog: no frames received",
		})
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go watchdog.Run(ctx)

	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	err = consumer.ConsumeFrames(ctx, "scan-workers", func(ctx context.Context, msg jetstream.Msg) error {
		var task models.FrameTask
		if err := json.Unmarshal(msg.Data(), &task); err != nil {
			slog.Error("unmarshal frame task", "error", err)
			return nil // don't retry on unmarshal errors
		}
		return processFrameTask(ctx, pipeline, minioStore, task)
	}, workerCount)
	if err != nil {
		slog.Error("start frame consumer", "error", err)
		os.Exit(1)
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		slog.Info("worker metrics listening", "addr", ":8082")
		if err := http.ListenAndServe(":8082", mux); err != nil {
			slog.Error("metrics server error", "error", err)
		}
	}()

	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if depth, err := producer.QueueDepth(ctx); err == nil {
					observability.QueueDepth.Set(float64(depth))
				}
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down worker...")
	cancel()
	time.Sleep(2 * time.Second)
	slog.Info("worker stopped")
}

// processFrameTask fetches the raw frame bytes MinIO holds under
// task.FrameRef, reconstitutes a planar YUV-420 convert.Frame, and runs it
// through the scan pipeline.
func processFrameTask(ctx context.Context, pipeline *analyzer.Analyzer, minioStore *storage.MinIOStore, task models.FrameTask) error {
	raw, err := minioStore.GetObject(ctx, task.FrameRef)
	if err != nil {
		return fmt.Errorf("fetch frame %s: %w", task.FrameRef, err)
	}

	frame, err := planarI420Frame(raw, task.Width, task.Height)
	if err != nil {
		slog.Warn("decode frame buffer", "error", err, "frame_id", task.FrameID)
		return nil // malformed frame; not retryable
	}

	isScanning := task.ScanMode != ""
	_, _, err = pipeline.ProcessFrame(ctx, task.SessionID, frame, task.Rotation, detect.Mode(task.ScanMode), isScanning, task.Timestamp)
	if err != nil {
		return fmt.Errorf("process frame %s: %w", task.FrameID, err)
	}
	return nil
}

// planarI420Frame slices a contiguous I420 buffer (Y plane followed by
// half-resolution U then V planes, no row padding) into a convert.Frame.
// This is the wire layout cmd/simulator writes to MinIO.
func planarI420Frame(raw []byte, width, height int) (convert.Frame, error) {
	if width <= 0 || height <= 0 {
		return convert.Frame{}, fmt.Errorf("invalid frame dimensions %dx%d", width, height)
	}
	ySize := width * height
	cw, ch := (width+1)/2, (height+1)/2
	cSize := cw * ch
	if len(raw) < ySize+2*cSize {
		return convert.Frame{}, fmt.Errorf("frame buffer too small: got %d bytes, want %d", len(raw), ySize+2*cSize)
	}

	return convert.Frame{
		Width:  width,
		Height: height,
		Y:      convert.Plane{Data: raw[:ySize], RowStride: width, PixelStride: 1},
		U:      convert.Plane{Data: raw[ySize : ySize+cSize], RowStride: cw, PixelStride: 1},
		V:      convert.Plane{Data: raw[ySize+cSize : ySize+2*cSize], RowStride: cw, PixelStride: 1},
	}, nil
}

func publishScanEvent(producer *queue.Producer, evt models.ScanEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		slog.Error("marshal scan event", "error", err)
		return
	}
	if err := producer.PublishEvent(context.Background(), fmt.Sprintf("%d", evt.SessionID), data); err != nil {
		slog.Error("publish scan event", "error", err)
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// pipelineEmitter implements analyzer.Emitter by persisting each committed
// RawDetection (frame + thumbnail to MinIO, row to Postgres) and publishing
// a lock ScanEvent for the API's websocket hub to pick up.
type pipelineEmitter struct {
	db       *storage.PostgresStore
	minio    *storage.MinIOStore
	producer *queue.Producer
}

func (e *pipelineEmitter) EmitRawDetection(ctx context.Context, sessionID int64, rd analyzer.RawDetection) error {
	frameKey := fmt.Sprintf("frames/%d/%s.jpg", sessionID, rd.CaptureID.String())
	thumbKey := fmt.Sprintf("thumbnails/%d/%s.jpg", sessionID, rd.CaptureID.String())

	if err := e.minio.PutObject(ctx, frameKey, rd.FullFrame, "image/jpeg"); err != nil {
		return fmt.Errorf("store full frame: %w", err)
	}
	if err := e.minio.PutObject(ctx, thumbKey, rd.Thumbnail, "image/jpeg"); err != nil {
		return fmt.Errorf("store thumbnail: %w", err)
	}

	item := &models.ScannedItem{
		SessionID:   sessionID,
		CaptureID:   rd.CaptureID,
		Label:       rd.Label,
		Category:    string(rd.Category),
		Confidence:  float32(rd.Confidence),
		CaptureType: string(rd.CaptureType),
		Sharpness:   rd.Sharpness,
		BBox:        [4]float64{rd.Box.Left, rd.Box.Top, rd.Box.Right, rd.Box.Bottom},
		FrameKey:    frameKey,
		ThumbnailKey: thumbKey,
	}
	if err := e.db.CreateScannedItem(ctx, item); err != nil {
		return fmt.Errorf("persist scanned item: %w", err)
	}

	observability.CandidatesConfirmed.WithLabelValues(fmt.Sprintf("%d", sessionID)).Inc()
	if rd.CaptureType == analyzer.CaptureTracking {
		observability.LocksCommitted.WithLabelValues(fmt.Sprintf("%d", sessionID)).Inc()
	}

	publishScanEvent(e.producer, models.ScanEvent{
		Type:      "lock",
		SessionID: sessionID,
		Timestamp: time.Now(),
		CaptureID: rd.CaptureID.String(),
	})
	return nil
}
