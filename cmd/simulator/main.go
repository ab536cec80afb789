// Command simulator feeds synthetic camera frames into the scan pipeline
// for local development and load generation, standing in for the mobile
// client + camera hardware. It reuses the same NATS control-subject
// subscription and per-stream bookkeeping idiom as a live frame relay,
// generating frames instead of relaying them from a camera source.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/your-org/scancore/internal/config"
	"github.com/your-org/scancore/internal/models"
	"github.com/your-org/scancore/internal/observability"
	"github.com/your-org/scancore/internal/queue"
	"github.com/your-org/scancore/internal/storage"
)

// controlCommand mirrors the ingestor's stream-control message shape,
// generalized from stream ids to scan session ids.
type controlCommand struct {
	Action    string `json:"action"` // start | stop
	SessionID int64  `json:"session_id"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Rotation  int    `json:"rotation"`
	ScanMode  string `json:"scan_mode"`
	FPS       int    `json:"fps"`
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting scancore simulator")

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
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	feeder := newFeeder(minioStore, producer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	nc, err := nats.Connect(cfg.NATS.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		slog.Error("connect to nats for control", "error", err)
		os.Exit(1)
	}
	defer nc.Close()

	_, err = nc.Subscribe("stream.control", func(msg *nats.Msg) {
		var cmd controlCommand
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			slog.Error("parse control command", "error", err)
			return
		}
		slog.Info("received control command", "action", cmd.Action, "session_id", cmd.SessionID)

		switch cmd.Action {
		case "start":
			feeder.start(ctx, cmd)
		case "stop":
			feeder.stop(cmd.SessionID)
		}
	})
	if err != nil {
		slog.Error("subscribe to control", "error", err)
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down simulator...")
	cancel()
	feeder.stopAll()
	time.Sleep(time.Second)
	slog.Info("simulator stopped")
}

// feeder manages one synthetic frame-generation goroutine per active scan
// session, mirroring the ingestor's per-stream manager.
type feeder struct {
	minio    *storage.MinIOStore
	producer *queue.Producer

	mu     sync.Mutex
	cancel map[int64]context.CancelFunc
}

func newFeeder(minio *storage.MinIOStore, producer *queue.Producer) *feeder {
	return &feeder{minio: minio, producer: producer, cancel: map[int64]context.CancelFunc{}}
}

func (f *feeder) start(parent context.Context, cmd controlCommand) {
	f.mu.Lock()
	if _, running := f.cancel[cmd.SessionID]; running {
		f.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(parent)
	f.cancel[cmd.SessionID] = cancel
	f.mu.Unlock()

	fps := cmd.FPS
	if fps <= 0 {
		fps = 15
	}
	go f.run(ctx, cmd, fps)
}

func (f *feeder) stop(sessionID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cancel, ok := f.cancel[sessionID]; ok {
		cancel()
		delete(f.cancel, sessionID)
	}
}

func (f *feeder) stopAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, cancel := range f.cancel {
		cancel()
		delete(f.cancel, id)
	}
}

func (f *feeder) run(ctx context.Context, cmd controlCommand, fps int) {
	width, height := cmd.Width, cmd.Height
	if width <= 0 {
		width = 640
	}
	if height <= 0 {
		height = 480
	}

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	frame := syntheticI420(width, height)

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			frameID := uuid.New()
			key := fmt.Sprintf("raw-frames/%d/%s.yuv", cmd.SessionID, frameID.String())

			if err := f.minio.PutObject(ctx, key, frame, "application/octet-stream"); err != nil {
				slog.Warn("store synthetic frame", "error", err)
				continue
			}

			task := models.FrameTask{
				SessionID: cmd.SessionID,
				FrameID:   frameID,
				Timestamp: now,
				FrameRef:  key,
				Width:     width,
				Height:    height,
				Rotation:  cmd.Rotation,
				ScanMode:  cmd.ScanMode,
			}
			if err := f.producer.PublishFrame(ctx, fmt.Sprintf("%d", cmd.SessionID), task); err != nil {
				slog.Warn("publish frame task", "error", err)
			}
		}
	}
}

// syntheticI420 builds a flat mid-gray I420 buffer: Y plane followed by
// half-resolution U and V planes, matching cmd/worker's expected layout.
func syntheticI420(width, height int) []byte {
	cw, ch := (width+1)/2, (height+1)/2
	buf := make([]byte, width*height+2*cw*ch)
	for i := 0; i < width*height; i++ {
		buf[i] = 128
	}
	for i := width * height; i < len(buf); i++ {
		buf[i] = 128
	}
	return buf
}
