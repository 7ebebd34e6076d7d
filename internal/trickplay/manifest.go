package trickplay

import (
	"fmt"
	"path"
	"strings"
)

// Playlist directives recognised by the merge.
const (
	tagStreamInf      = "#EXT-X-STREAM-INF"
	tagEndList        = "#EXT-X-ENDLIST"
	tagImageStreamInf = "#EXT-X-IMAGE-STREAM-INF"
)

// BuildManifest renders the image-tile playlist for one resolution: fixed
// header, one EXTINF/EXT-X-TILES/reference block per thumbnail in input
// order, EXT-X-ENDLIST footer. Output is deterministic — identical input
// yields byte-identical output.
func BuildManifest(thumbnails []string, resolution string, interval int, relPrefix string) string {
	lines := []string{
		"#EXTM3U",
		fmt.Sprintf("#EXT-X-TARGETDURATION:%d", interval),
		"#EXT-X-VERSION:7",
		"#EXT-X-MEDIA-SEQUENCE:1",
		"#EXT-X-PLAYLIST-TYPE:VOD",
		"#EXT-X-IMAGES-ONLY",
		"",
	}

	for _, key := range thumbnails {
		name := path.Base(key)
		lines = append(lines,
			fmt.Sprintf("#EXTINF:%d.000,", interval),
			fmt.Sprintf("#EXT-X-TILES:RESOLUTION=%s,LAYOUT=1x1,DURATION=%d.000", resolution, interval),
			relPrefix+name,
			"",
		)
	}

	lines = append(lines, tagEndList)
	return strings.Join(lines, "\n")
}

// ImageStreamLine renders the master playlist reference to a tile manifest.
func ImageStreamLine(bandwidth int, resolution, uri string) string {
	return fmt.Sprintf("%s:BANDWIDTH=%d,RESOLUTION=%s,CODECS=\"jpeg\",URI=%q\n",
		tagImageStreamInf, bandwidth, resolution, uri)
}

// MergeImageStream splices an image-stream reference into a master playlist.
// When the playlist already mentions manifestFilename the merge is treated as
// applied and the playlist is returned unchanged (changed=false) — this is
// what makes redelivered compose messages safe. Otherwise the line lands
// immediately before the first adaptive-bitrate stream directive, or before
// the end-of-list marker when no stream directive exists.
func MergeImageStream(playlist, manifestFilename, line string) (merged string, changed bool) {
	if strings.Contains(playlist, manifestFilename) {
		return playlist, false
	}
	if strings.Contains(playlist, tagStreamInf) {
		return strings.Replace(playlist, tagStreamInf, line+tagStreamInf, 1), true
	}
	return strings.Replace(playlist, tagEndList, line+tagEndList, 1), true
}
