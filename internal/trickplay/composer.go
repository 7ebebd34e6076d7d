package trickplay

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
	"github.com/rs/zerolog/log"

	"github.com/mediaops/trickplay-pipeline/internal/s3util"
)

// playlistContentType is the MIME type for uploaded m3u8 documents.
const playlistContentType = "application/vnd.apple.mpegurl"

// maxMergeAttempts bounds the conditional-write retry loop for the master
// playlist merge.
const maxMergeAttempts = 3

// Composer is the manifest stage: it writes one image-tile playlist per
// non-empty resolution and splices a reference to each into the asset's
// master playlist.
type Composer struct {
	S3  s3util.Client
	Cfg Config
}

// NewComposer wires a manifest stage.
func NewComposer(client s3util.Client, cfg Config) *Composer {
	return &Composer{S3: client, Cfg: cfg}
}

// Compose builds and uploads tile manifests for every non-empty thumbnail
// list and merges each into the master playlist, returning a status message
// per resolution processed. Resolutions with no thumbnails are skipped
// entirely: no manifest written, no merge attempted.
func (c *Composer) Compose(ctx context.Context, bucket, mediaPath, hlsURL string, small, big []string) (map[string]string, error) {
	log.Info().
		Str("mediaPath", mediaPath).
		Int("smallCount", len(small)).
		Int("bigCount", len(big)).
		Msg("Creating manifests")

	results := make(map[string]string)

	if len(small) > 0 {
		status, err := c.composeProfile(ctx, bucket, mediaPath, hlsURL, small, c.Cfg.SmallProfile())
		if err != nil {
			return nil, E(KindManifest, "compose small manifest", err)
		}
		results["small"] = status
	}

	if len(big) > 0 {
		status, err := c.composeProfile(ctx, bucket, mediaPath, hlsURL, big, c.Cfg.BigProfile())
		if err != nil {
			return nil, E(KindManifest, "compose big manifest", err)
		}
		results["big"] = status
	}

	log.Info().Str("mediaPath", mediaPath).Int("resolutions", len(results)).Msg("Manifests created")
	return results, nil
}

// composeProfile writes one resolution's tile manifest and merges its
// reference into the master playlist.
func (c *Composer) composeProfile(ctx context.Context, bucket, mediaPath, hlsURL string, thumbnails []string, p Profile) (string, error) {
	relPrefix := RelativeThumbPrefix(mediaPath, c.Cfg.ThumbsFolder)
	doc := BuildManifest(thumbnails, p.Resolution(), c.Cfg.Interval, relPrefix)

	filename := p.ManifestFilename()
	manifestKey := mediaPath + filename

	if err := s3util.PutPublicString(ctx, c.S3, bucket, manifestKey, doc, playlistContentType, ""); err != nil {
		return "", E(KindStorage, "upload tile manifest", err)
	}

	if err := c.mergeMasterPlaylist(ctx, bucket, hlsURL, filename, p); err != nil {
		return "", err
	}

	log.Info().
		Str("mediaPath", mediaPath).
		Str("resolution", p.Resolution()).
		Str("manifestKey", manifestKey).
		Msg("Manifest created")

	return fmt.Sprintf("Created %s for %s", filename, p.Resolution()), nil
}

// mergeMasterPlaylist splices the image-stream reference into the master
// playlist with an optimistic conditional write: the read captures the
// object's ETag and the write sends If-Match, so two concurrent composers
// for the same asset cannot silently drop each other's insertion. On a
// precondition failure the merge re-reads and retries; the already-merged
// check runs on every attempt, keeping redelivery idempotent.
func (c *Composer) mergeMasterPlaylist(ctx context.Context, bucket, hlsURL, manifestFilename string, p Profile) error {
	playlistKey, err := KeyFromStorageURL(hlsURL)
	if err != nil {
		return err
	}

	for attempt := 1; attempt <= maxMergeAttempts; attempt++ {
		body, etag, err := s3util.GetObjectString(ctx, c.S3, bucket, playlistKey)
		if err != nil {
			return E(KindStorage, "read master playlist", err)
		}

		line := ImageStreamLine(p.Bandwidth, p.Resolution(), manifestFilename)
		merged, changed := MergeImageStream(body, manifestFilename, line)
		if !changed {
			log.Info().
				Str("playlistKey", playlistKey).
				Str("resolution", p.Resolution()).
				Msg("Playlist already updated")
			return nil
		}

		err = s3util.PutPublicString(ctx, c.S3, bucket, playlistKey, merged, playlistContentType, etag)
		if err == nil {
			log.Info().
				Str("playlistKey", playlistKey).
				Str("resolution", p.Resolution()).
				Msg("Playlist updated")
			return nil
		}
		if !isPreconditionFailed(err) {
			return E(KindStorage, "write master playlist", err)
		}

		log.Warn().
			Str("playlistKey", playlistKey).
			Int("attempt", attempt).
			Msg("Master playlist changed concurrently, retrying merge")
	}

	return Errorf(KindStorage, "merge master playlist",
		"conditional write lost the race %d times for %s", maxMergeAttempts, playlistKey)
}

// isPreconditionFailed reports whether err is S3 rejecting a conditional
// write because the object changed since its ETag was read.
func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed"
}
