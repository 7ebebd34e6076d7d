package trickplay

import (
	"path"
	"strings"
)

// SchemaVersion is stamped on every stage-boundary message. Consumers accept
// the current version and (for compatibility with in-flight messages) an
// empty field.
const SchemaVersion = "1"

// TranscodeCompleteDetail is the EventBridge detail of a MediaConvert
// JOB_COMPLETE notification, reduced to the fields the pipeline reads.
type TranscodeCompleteDetail struct {
	EventType          string              `json:"eventType"`
	MediaKey           string              `json:"mediaKey"`
	MediaPath          string              `json:"mediaKeyId"` // storage path prefix, trailing-slash-terminated
	OutputGroupDetails []OutputGroupDetail `json:"outputGroupDetails"`
}

// OutputGroupDetail mirrors one MediaConvert output group.
type OutputGroupDetail struct {
	OutputDetails []OutputDetail `json:"outputDetails"`
}

// OutputDetail mirrors one MediaConvert output.
type OutputDetail struct {
	OutputFilePaths []string `json:"outputFilePaths"`
}

// Validate checks the fields the extractor requires.
func (d TranscodeCompleteDetail) Validate() error {
	if d.MediaKey == "" || d.MediaPath == "" {
		return Errorf(KindValidation, "validate transcode event", "missing required fields: mediaKey, mediaKeyId")
	}
	return nil
}

// HLSURL scans the nested output path lists for the master playlist URL.
func (d TranscodeCompleteDetail) HLSURL() (string, bool) {
	for _, group := range d.OutputGroupDetails {
		for _, output := range group.OutputDetails {
			for _, p := range output.OutputFilePaths {
				if strings.Contains(p, "m3u8") {
					return p, true
				}
			}
		}
	}
	return "", false
}

// ManifestRequest is the Extractor → Composer message.
type ManifestRequest struct {
	SchemaVersion   string   `json:"schemaVersion"`
	MediaKey        string   `json:"mediaKey"`
	MediaPath       string   `json:"mediaPath"`
	HLSURL          string   `json:"hlsUrl"`
	SmallThumbnails []string `json:"smallThumbnails"`
	BigThumbnails   []string `json:"bigThumbnails"`
	RequestID       string   `json:"requestId,omitempty"`
}

// Validate rejects messages missing required fields or carrying an unknown
// schema version.
func (m ManifestRequest) Validate() error {
	if err := checkVersion(m.SchemaVersion); err != nil {
		return err
	}
	if m.MediaKey == "" || m.MediaPath == "" || m.HLSURL == "" {
		return Errorf(KindValidation, "validate manifest request", "missing required fields: mediaKey, mediaPath, hlsUrl")
	}
	return nil
}

// InvalidationMessage is the Composer → Invalidator message.
type InvalidationMessage struct {
	SchemaVersion     string   `json:"schemaVersion"`
	MediaKey          string   `json:"mediaKey"`
	MediaPath         string   `json:"mediaPath"`
	PathsToInvalidate []string `json:"pathsToInvalidate"`
	RequestID         string   `json:"requestId,omitempty"`
}

// Validate rejects messages missing required fields or carrying an unknown
// schema version. An empty path list is valid; the invalidator treats it as
// a no-op.
func (m InvalidationMessage) Validate() error {
	if err := checkVersion(m.SchemaVersion); err != nil {
		return err
	}
	if m.MediaKey == "" || m.MediaPath == "" {
		return Errorf(KindValidation, "validate invalidation message", "missing required fields: mediaKey, mediaPath")
	}
	return nil
}

func checkVersion(v string) error {
	if v != "" && v != SchemaVersion {
		return Errorf(KindValidation, "validate message", "unsupported schemaVersion %q", v)
	}
	return nil
}

// KeyFromStorageURL converts an s3:// URL to the object key within its
// bucket. A bare key passes through unchanged.
func KeyFromStorageURL(url string) (string, error) {
	if !strings.HasPrefix(url, "s3://") {
		return strings.TrimPrefix(url, "/"), nil
	}
	rest := strings.TrimPrefix(url, "s3://")
	_, key, found := strings.Cut(rest, "/")
	if !found || key == "" {
		return "", Errorf(KindValidation, "parse storage url", "no object key in %q", url)
	}
	return key, nil
}

// RelativeThumbPrefix returns the manifest-relative path prefix to the
// thumbnails folder. Assets transcoded into an hls/ subfolder keep their
// thumbnails one level up, so references climb out of it.
func RelativeThumbPrefix(mediaPath, thumbsFolder string) string {
	if strings.Contains(mediaPath, "hls/") {
		return "../" + thumbsFolder + "/"
	}
	return thumbsFolder + "/"
}

// InvalidationPaths builds the CDN path set for one asset: the master
// playlist, both resolution manifests, and a wildcard over the thumbnails
// folder. The master playlist name is derived from the job's hlsUrl, falling
// back to the conventional play.m3u8 when the URL is absent.
func InvalidationPaths(mediaPath, hlsURL string, cfg Config) []string {
	master := "play.m3u8"
	if hlsURL != "" {
		if key, err := KeyFromStorageURL(hlsURL); err == nil {
			master = path.Base(key)
		}
	}
	paths := []string{"/" + mediaPath + master}
	for _, p := range cfg.Profiles() {
		paths = append(paths, "/"+mediaPath+p.ManifestFilename())
	}
	paths = append(paths, "/"+mediaPath+cfg.ThumbsFolder+"/*")
	return paths
}
