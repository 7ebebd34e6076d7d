// Package trickplay implements the three-stage trick-play pipeline: thumbnail
// extraction from an HLS asset, image-tile manifest composition with master
// playlist merge, and CDN cache invalidation. Stages communicate only through
// message payloads and S3 side effects; every operation is safe to re-run
// under at-least-once delivery.
package trickplay

import (
	"fmt"
	"os"
	"strconv"
)

// Profile describes one thumbnail resolution variant.
type Profile struct {
	Width     int
	Height    int
	Suffix    string // key suffix, e.g. "_small"
	Bandwidth int    // advertised HLS bandwidth in bits/s
}

// Resolution returns the WxH string used in manifests and filenames.
func (p Profile) Resolution() string {
	return fmt.Sprintf("%dx%d", p.Width, p.Height)
}

// ManifestFilename returns the per-resolution tile manifest name,
// e.g. "thumbs_320x180.m3u8".
func (p Profile) ManifestFilename() string {
	return fmt.Sprintf("thumbs_%s.m3u8", p.Resolution())
}

// Config is the pipeline configuration, read from environment variables with
// the same surface as the original deployment.
type Config struct {
	Bucket         string
	DistributionID string

	Interval int    // seconds between sampled frames
	Format   string // thumbnail image format, "jpg" or "png"

	SmallWidth     int
	SmallHeight    int
	SmallBandwidth int
	BigWidth       int
	BigHeight      int
	BigBandwidth   int

	ThumbsFolder string

	ManifestQueueURL     string
	InvalidationQueueURL string

	SlackEnabled    bool
	SlackWebhookURL string
	EventBusName    string
}

// LoadConfig reads configuration from the environment, applying defaults for
// everything except the bucket and distribution id.
func LoadConfig() Config {
	return Config{
		Bucket:         os.Getenv("AWS_S3_BUCKET"),
		DistributionID: os.Getenv("AWS_CLOUDFRONT_DISTRIBUTION_ID"),

		Interval: envInt("THUMBNAIL_INTERVAL", 10),
		Format:   envOr("THUMBNAIL_FORMAT", "jpg"),

		SmallWidth:     envInt("THUMBNAIL_WIDTH", 320),
		SmallHeight:    envInt("THUMBNAIL_HEIGHT", 180),
		SmallBandwidth: envInt("THUMBNAIL_SMALL_BANDWIDTH", 16460),
		BigWidth:       envInt("THUMBNAIL_BIG_WIDTH", 640),
		BigHeight:      envInt("THUMBNAIL_BIG_HEIGHT", 360),
		BigBandwidth:   envInt("THUMBNAIL_BIG_BANDWIDTH", 32920),

		ThumbsFolder: envOr("THUMBNAILS_FOLDER", "thumbs"),

		ManifestQueueURL:     os.Getenv("SQS_MANIFEST_QUEUE_URL"),
		InvalidationQueueURL: os.Getenv("SQS_CACHE_INVALIDATION_QUEUE_URL"),

		SlackEnabled:    os.Getenv("ENABLE_SLACK_NOTIFICATIONS") == "true",
		SlackWebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
		EventBusName:    os.Getenv("EVENT_BUS_NAME"),
	}
}

// SmallProfile returns the low-resolution thumbnail profile.
func (c Config) SmallProfile() Profile {
	return Profile{Width: c.SmallWidth, Height: c.SmallHeight, Suffix: "_small", Bandwidth: c.SmallBandwidth}
}

// BigProfile returns the high-resolution thumbnail profile.
func (c Config) BigProfile() Profile {
	return Profile{Width: c.BigWidth, Height: c.BigHeight, Suffix: "_big", Bandwidth: c.BigBandwidth}
}

// Profiles returns both resolution profiles in processing order.
func (c Config) Profiles() []Profile {
	return []Profile{c.SmallProfile(), c.BigProfile()}
}

// Validate checks that required configuration is present. The distribution id
// is only required by the invalidation stage, which checks it at call time.
func (c Config) Validate() error {
	if c.Bucket == "" {
		return Errorf(KindConfig, "validate config", "AWS_S3_BUCKET is required")
	}
	if c.Interval <= 0 {
		return Errorf(KindConfig, "validate config", "THUMBNAIL_INTERVAL must be positive, got %d", c.Interval)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
