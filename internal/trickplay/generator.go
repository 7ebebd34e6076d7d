package trickplay

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mediaops/trickplay-pipeline/internal/s3util"
)

// Generator is the thumbnail extraction stage. It samples frames from an HLS
// asset at two resolutions and uploads them to S3 under deterministic keys,
// so re-running the same job overwrites rather than duplicates.
type Generator struct {
	S3      s3util.Client
	Sampler FrameSampler
	Cfg     Config
}

// NewGenerator wires an extraction stage.
func NewGenerator(client s3util.Client, sampler FrameSampler, cfg Config) *Generator {
	return &Generator{S3: client, Sampler: sampler, Cfg: cfg}
}

// Generate extracts trick-play thumbnails for one asset and returns the
// ordered uploaded key lists per resolution. All work happens in a scoped
// temp workspace removed on return, so no partial extraction survives the
// invocation. No retries happen at this layer; any failure aborts the call
// and redelivery policy belongs to the caller.
func (g *Generator) Generate(ctx context.Context, hlsURL, mediaKey, bucket, mediaPath string) (small, big []string, err error) {
	workDir, err := os.MkdirTemp("", "trickplay-*")
	if err != nil {
		return nil, nil, E(KindStorage, "create workspace", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			log.Warn().Err(rmErr).Str("dir", workDir).Msg("Failed to remove workspace")
		}
	}()

	log.Info().
		Str("mediaKey", mediaKey).
		Str("hlsUrl", hlsURL).
		Str("mediaPath", mediaPath).
		Msg("Starting thumbnail generation")

	playlistKey, err := KeyFromStorageURL(hlsURL)
	if err != nil {
		return nil, nil, err
	}
	if err := s3util.DownloadToFile(ctx, g.S3, bucket, playlistKey, filepath.Join(workDir, "manifest.m3u8")); err != nil {
		return nil, nil, E(KindStorage, "download master playlist", err)
	}

	// The two profiles run sequentially; each gets its own output directory.
	small, err = g.generateProfile(ctx, hlsURL, mediaKey, bucket, mediaPath, workDir, g.Cfg.SmallProfile())
	if err != nil {
		return nil, nil, err
	}
	big, err = g.generateProfile(ctx, hlsURL, mediaKey, bucket, mediaPath, workDir, g.Cfg.BigProfile())
	if err != nil {
		return nil, nil, err
	}

	log.Info().
		Str("mediaKey", mediaKey).
		Int("smallCount", len(small)).
		Int("bigCount", len(big)).
		Msg("Thumbnail generation completed")

	return small, big, nil
}

// generateProfile samples one resolution and uploads the frames in lexical
// (chronological) order, returning the uploaded keys.
func (g *Generator) generateProfile(ctx context.Context, hlsURL, mediaKey, bucket, mediaPath, workDir string, p Profile) ([]string, error) {
	outDir := filepath.Join(workDir, strings.TrimPrefix(p.Suffix, "_"))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, E(KindStorage, "create frame directory", err)
	}

	frames, err := g.Sampler.Sample(ctx, SampleRequest{
		SourceURL:       hlsURL,
		Width:           p.Width,
		Height:          p.Height,
		IntervalSeconds: g.Cfg.Interval,
		OutputDir:       outDir,
		NamePattern:     mediaKey + p.Suffix + ".%05d." + g.Cfg.Format,
	})
	if err != nil {
		return nil, E(KindSampler, "sample "+p.Resolution(), err)
	}

	folder := mediaPath + g.Cfg.ThumbsFolder + "/"
	contentType := "image/" + g.Cfg.Format

	keys := make([]string, 0, len(frames))
	for _, frame := range frames {
		key := folder + filepath.Base(frame)
		if err := s3util.UploadPublicFile(ctx, g.S3, bucket, key, frame, contentType); err != nil {
			return nil, E(KindStorage, "upload thumbnail", err)
		}
		keys = append(keys, key)
		log.Debug().Str("mediaKey", mediaKey).Str("key", key).Msg("Thumbnail uploaded")
	}

	log.Info().
		Str("mediaKey", mediaKey).
		Str("resolution", p.Resolution()).
		Int("count", len(keys)).
		Msg("Resolution thumbnails generated and uploaded")

	return keys, nil
}
