package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/your-org/scancore/internal/config"
	"github.com/your-org/scancore/internal/models"
)

// PostgresStore is the persistence layer for committed scan items and the
// pricing cache's overflow/audit copy. The in-process pricing cache
// (internal/pricing/cache) is authoritative for request-path lookups and
// the pricing services do not call the pricing-cache methods below, so
// cached entries do not survive a restart. Committed ScannedItems are
// written here by cmd/worker and survive the scan worker process.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Scanned items ---

// CreateScannedItem persists a committed RawDetection once a scan has
// locked and the detection has been consumed into an item record.
func (s *PostgresStore) CreateScannedItem(ctx context.Context, item *models.ScannedItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO scanned_items
			(id, session_id, capture_id, label, category, confidence, capture_type,
			 sharpness, bbox_left, bbox_top, bbox_right, bbox_bottom, frame_key, thumbnail_key)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		 RETURNING created_at`,
		item.ID, item.SessionID, item.CaptureID, item.Label, item.Category, item.Confidence,
		item.CaptureType, item.Sharpness, item.BBox[0], item.BBox[1], item.BBox[2], item.BBox[3],
		item.FrameKey, item.ThumbnailKey,
	).Scan(&item.CreatedAt)
	if err != nil {
		return fmt.Errorf("create scanned item: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetScannedItem(ctx context.Context, id uuid.UUID) (*models.ScannedItem, error) {
	item := &models.ScannedItem{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, session_id, capture_id, label, category, confidence, capture_type,
		        sharpness, bbox_left, bbox_top, bbox_right, bbox_bottom, frame_key, thumbnail_key, created_at
		 FROM scanned_items WHERE id = $1`, id,
	).Scan(&item.ID, &item.SessionID, &item.CaptureID, &item.Label, &item.Category, &item.Confidence,
		&item.CaptureType, &item.Sharpness, &item.BBox[0], &item.BBox[1], &item.BBox[2], &item.BBox[3],
		&item.FrameKey, &item.ThumbnailKey, &item.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get scanned item: %w", err)
	}
	return item, nil
}

// ListScannedItems returns every item committed during sessionID, newest first.
func (s *PostgresStore) ListScannedItems(ctx context.Context, sessionID int64) ([]models.ScannedItem, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, capture_id, label, category, confidence, capture_type,
		        sharpness, bbox_left, bbox_top, bbox_right, bbox_bottom, frame_key, thumbnail_key, created_at
		 FROM scanned_items WHERE session_id = $1 ORDER BY created_at DESC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list scanned items: %w", err)
	}
	defer rows.Close()

	var items []models.ScannedItem
	for rows.Next() {
		var item models.ScannedItem
		if err := rows.Scan(&item.ID, &item.SessionID, &item.CaptureID, &item.Label, &item.Category, &item.Confidence,
			&item.CaptureType, &item.Sharpness, &item.BBox[0], &item.BBox[1], &item.BBox[2], &item.BBox[3],
			&item.FrameKey, &item.ThumbnailKey, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan scanned item: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

// --- Pricing cache overflow ---

// UpsertPricingCacheEntry writes (or refreshes) the Postgres-side copy of
// a cached pricing result, keyed the same way as the in-process cache.
func (s *PostgresStore) UpsertPricingCacheEntry(ctx context.Context, e *models.PricingCacheEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pricing_cache_entries (key, version, payload, expires_at, created_at)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (key) DO UPDATE SET
		   version = EXCLUDED.version, payload = EXCLUDED.payload,
		   expires_at = EXCLUDED.expires_at, created_at = EXCLUDED.created_at`,
		e.Key, e.Version, e.Payload, e.ExpiresAt, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert pricing cache entry: %w", err)
	}
	return nil
}

// GetPricingCacheEntry reads the Postgres-side overflow copy. A missing
// or expired row is not an error; it is a
// nil return.
func (s *PostgresStore) GetPricingCacheEntry(ctx context.Context, key string) (*models.PricingCacheEntry, error) {
	e := &models.PricingCacheEntry{}
	err := s.pool.QueryRow(ctx,
		`SELECT key, version, payload, expires_at, created_at FROM pricing_cache_entries WHERE key = $1`, key,
	).Scan(&e.Key, &e.Version, &e.Payload, &e.ExpiresAt, &e.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get pricing cache entry: %w", err)
	}
	if time.Now().After(e.ExpiresAt) {
		return nil, nil
	}
	return e, nil
}

// DeleteExpiredPricingCacheEntries sweeps stale rows, mirroring the
// in-process cache's janitor.
func (s *PostgresStore) DeleteExpiredPricingCacheEntries(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM pricing_cache_entries WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired pricing cache entries: %w", err)
	}
	return tag.RowsAffected(), nil
}
