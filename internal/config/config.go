package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the single immutable configuration record for the whole
// process, loaded once at startup from YAML and overridden by
// SCAN_*/PRICING_* environment variables.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	NATS         NATSConfig         `yaml:"nats"`
	MinIO        MinIOConfig        `yaml:"minio"`
	Scan         ScanConfig         `yaml:"scan"`
	Pricing      PricingConfig      `yaml:"pricing"`
	Logging      LoggingConfig      `yaml:"logging"`
}

type ServerConfig struct {
	Port    int      `yaml:"port"`
	APIKeys []string `yaml:"api_keys"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// ScanConfig carries every threshold the scan pipeline needs,
// injected once at construction so no component reads a global.
type ScanConfig struct {
	// Motion Estimator
	LumaSampleStep  int     `yaml:"luma_sample_step"`
	MotionDefault   float64 `yaml:"motion_default"`
	PollLowMs       int     `yaml:"poll_low_ms"`
	PollMidMs       int     `yaml:"poll_mid_ms"`
	PollHighMs      int     `yaml:"poll_high_ms"`
	MotionLowBand   float64 `yaml:"motion_low_band"`
	MotionMidBand   float64 `yaml:"motion_mid_band"`

	// Sharpness Estimator
	SharpnessCropSize int     `yaml:"sharpness_crop_size"`
	BlurThreshold     float64 `yaml:"blur_threshold"`

	// Object Tracker
	MinMatchScore      float64 `yaml:"min_match_score"`
	MaxFrameGap        int     `yaml:"max_frame_gap"`
	MinConfidence      float64 `yaml:"min_confidence"`
	MinBoxArea         float64 `yaml:"min_box_area"`
	ExpiryFrames       int     `yaml:"expiry_frames"`
	MinFramesToConfirm int     `yaml:"min_frames_to_confirm"`
	SmoothingAlpha     float64 `yaml:"smoothing_alpha"`

	// Scan-Guidance Manager
	RoiCenterX         float64       `yaml:"roi_center_x"`
	RoiCenterY         float64       `yaml:"roi_center_y"`
	RoiWidth           float64       `yaml:"roi_width"`
	RoiHeight          float64       `yaml:"roi_height"`
	MinArea            float64       `yaml:"min_area"`
	MaxArea            float64       `yaml:"max_area"`
	MaxCenterDistance  float64       `yaml:"max_center_distance"`
	StabilityThreshold float64       `yaml:"stability_threshold"`
	MinSharpness       float64       `yaml:"min_sharpness"`
	LockDwell          time.Duration `yaml:"lock_dwell"`

	// Detection Router
	ObjectDetectionIntervalMs int `yaml:"object_detection_interval_ms"`
	BarcodeIntervalMs         int `yaml:"barcode_interval_ms"`
	DocumentTextIntervalMs    int `yaml:"document_text_interval_ms"`

	// Frame Analyzer
	ThumbnailMaxSide int `yaml:"thumbnail_max_side"`

	// Session Controller / watchdog
	WatchdogInterval    time.Duration `yaml:"watchdog_interval"`
	StallAfter          time.Duration `yaml:"stall_after"`
	MaxStallMisses      int           `yaml:"max_stall_misses"`
	DiagnosticRateLimit time.Duration `yaml:"diagnostic_rate_limit"`
}

// PricingConfig carries every threshold the pricing core needs.
type PricingConfig struct {
	Enabled            bool          `yaml:"enabled"`
	FallbackToV3       bool          `yaml:"fallback_to_v3"`
	AINormalization    bool          `yaml:"ai_normalization"`
	NoiseRatioTrigger  float64       `yaml:"noise_ratio_trigger"`
	AdapterTimeout     time.Duration `yaml:"adapter_timeout"`
	OverallTimeout     time.Duration `yaml:"overall_timeout"`
	CacheTTL           time.Duration `yaml:"cache_ttl"`
	CacheJanitorPeriod time.Duration `yaml:"cache_janitor_period"`
	TimeWindowDays     int           `yaml:"time_window_days"`
	Adapters           []string      `yaml:"adapters"`
	CatalogDir         string        `yaml:"catalog_dir"`
	AccessoryPatterns  []string      `yaml:"accessory_patterns"`
	BundlePatterns     []string      `yaml:"bundle_patterns"`
	ClusterEndpoint    string        `yaml:"cluster_endpoint"`
	ClusterAPIKey      string        `yaml:"cluster_api_key"`
	ClusterModel       string        `yaml:"cluster_model"`
	V3Endpoint         string        `yaml:"v3_endpoint"`
	V3APIKey           string        `yaml:"v3_api_key"`
	V3Model            string        `yaml:"v3_model"`
	PromptVersion      string        `yaml:"prompt_version"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}

	s := &cfg.Scan
	if s.LumaSampleStep == 0 {
		s.LumaSampleStep = 8
	}
	if s.MotionDefault == 0 {
		s.MotionDefault = 0.2
	}
	if s.PollLowMs == 0 {
		s.PollLowMs = 600
	}
	if s.PollMidMs == 0 {
		s.PollMidMs = 500
	}
	if s.PollHighMs == 0 {
		s.PollHighMs = 400
	}
	if s.MotionLowBand == 0 {
		s.MotionLowBand = 0.1
	}
	if s.MotionMidBand == 0 {
		s.MotionMidBand = 0.5
	}
	if s.SharpnessCropSize == 0 {
		s.SharpnessCropSize = 128
	}
	if s.BlurThreshold == 0 {
		s.BlurThreshold = 100.0
	}
	if s.MinMatchScore == 0 {
		s.MinMatchScore = 0.2
	}
	if s.MaxFrameGap == 0 {
		s.MaxFrameGap = 8
	}
	if s.MinConfidence == 0 {
		s.MinConfidence = 0.5
	}
	if s.MinBoxArea == 0 {
		s.MinBoxArea = 0.01
	}
	if s.ExpiryFrames == 0 {
		s.ExpiryFrames = 10
	}
	if s.MinFramesToConfirm == 0 {
		s.MinFramesToConfirm = 3
	}
	if s.SmoothingAlpha == 0 {
		s.SmoothingAlpha = 0.3
	}
	if s.RoiWidth == 0 {
		s.RoiCenterX = 0.5
		s.RoiCenterY = 0.5
		s.RoiWidth = 0.7
		s.RoiHeight = 0.55
	}
	if s.MinArea == 0 {
		s.MinArea = 0.05
	}
	if s.MaxArea == 0 {
		s.MaxArea = 0.85
	}
	if s.MaxCenterDistance == 0 {
		s.MaxCenterDistance = 0.3
	}
	if s.StabilityThreshold == 0 {
		s.StabilityThreshold = 0.4
	}
	if s.MinSharpness == 0 {
		s.MinSharpness = s.BlurThreshold
	}
	if s.LockDwell == 0 {
		s.LockDwell = 300 * time.Millisecond
	}
	if s.ObjectDetectionIntervalMs == 0 {
		s.ObjectDetectionIntervalMs = 150
	}
	if s.BarcodeIntervalMs == 0 {
		s.BarcodeIntervalMs = 200
	}
	if s.DocumentTextIntervalMs == 0 {
		s.DocumentTextIntervalMs = 400
	}
	if s.ThumbnailMaxSide == 0 {
		s.ThumbnailMaxSide = 512
	}
	if s.WatchdogInterval == 0 {
		s.WatchdogInterval = 2 * time.Second
	}
	if s.StallAfter == 0 {
		s.StallAfter = 2 * time.Second
	}
	if s.MaxStallMisses == 0 {
		s.MaxStallMisses = 3
	}
	if s.DiagnosticRateLimit == 0 {
		s.DiagnosticRateLimit = time.Second
	}

	p := &cfg.Pricing
	if p.AdapterTimeout == 0 {
		p.AdapterTimeout = 5 * time.Second
	}
	if p.OverallTimeout == 0 {
		p.OverallTimeout = 20 * time.Second
	}
	if p.CacheTTL == 0 {
		p.CacheTTL = 24 * time.Hour
	}
	if p.CacheJanitorPeriod == 0 {
		p.CacheJanitorPeriod = 5 * time.Minute
	}
	if p.TimeWindowDays == 0 {
		p.TimeWindowDays = 30
	}
	if p.NoiseRatioTrigger == 0 {
		p.NoiseRatioTrigger = 0.3
	}
	if p.CatalogDir == "" {
		p.CatalogDir = "configs/catalog"
	}
	if p.PromptVersion == "" {
		p.PromptVersion = "v1"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SCAN_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SCAN_API_KEYS"); v != "" {
		cfg.Server.APIKeys = strings.Split(v, ",")
	}
	if v := os.Getenv("SCAN_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("SCAN_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("SCAN_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("SCAN_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("SCAN_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("SCAN_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("SCAN_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("SCAN_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("SCAN_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("SCAN_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("PRICING_ENABLED"); v != "" {
		cfg.Pricing.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("PRICING_FALLBACK_TO_V3"); v != "" {
		cfg.Pricing.FallbackToV3 = v == "true" || v == "1"
	}
	if v := os.Getenv("PRICING_CLUSTER_API_KEY"); v != "" {
		cfg.Pricing.ClusterAPIKey = v
	}
	if v := os.Getenv("PRICING_V3_API_KEY"); v != "" {
		cfg.Pricing.V3APIKey = v
	}
}
