package trickplay

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// SampleRequest describes one frame-sampling run.
type SampleRequest struct {
	SourceURL       string
	Width           int
	Height          int
	IntervalSeconds int
	OutputDir       string
	// NamePattern is the output filename pattern with a %05d sequence
	// placeholder, e.g. "video1_small.%05d.jpg".
	NamePattern string
}

// FrameSampler abstracts the external frame-extraction tool: one finite,
// non-restartable run per call, emitting an ordered sequence of still-image
// files into the requested directory.
type FrameSampler interface {
	Sample(ctx context.Context, req SampleRequest) ([]string, error)
}

// FFmpegSampler runs ffmpeg with a select filter that keeps at most one
// frame per interval.
type FFmpegSampler struct {
	// Binary overrides the ffmpeg path; empty means look it up on PATH.
	Binary string
}

// NewFFmpegSampler returns a sampler that resolves ffmpeg from PATH.
func NewFFmpegSampler() *FFmpegSampler {
	return &FFmpegSampler{}
}

// intervalSelectFilter builds the ffmpeg select expression that latches on
// the first frame of each interval and suppresses the rest, so exactly one
// frame per interval is emitted regardless of scene-change heuristics.
func intervalSelectFilter(intervalSeconds int) string {
	return fmt.Sprintf(
		"select='if(not(floor(mod(t,%d)))*lt(ld(1),1),"+
			"st(1,1)+st(2,n)+st(3,t));if(eq(ld(1),1)*lt(n,ld(2)+1),1,if(trunc(t-ld(3)),st(1,0)))'",
		intervalSeconds,
	)
}

// sampleArgs assembles the ffmpeg argument list for one run. -vsync 0
// prevents frame duplication at the output rate.
func sampleArgs(req SampleRequest) []string {
	return []string{
		"-i", req.SourceURL,
		"-vf", intervalSelectFilter(req.IntervalSeconds),
		"-vsync", "0",
		"-s", fmt.Sprintf("%dx%d", req.Width, req.Height),
		filepath.Join(req.OutputDir, req.NamePattern),
	}
}

// Sample runs ffmpeg once and returns the produced image paths in lexical
// order. Zero-padded sequence numbers in the name pattern make lexical order
// chronological. A non-zero exit raises a sampler error carrying the
// captured diagnostic output.
func (s *FFmpegSampler) Sample(ctx context.Context, req SampleRequest) ([]string, error) {
	binary := s.Binary
	if binary == "" {
		path, err := exec.LookPath("ffmpeg")
		if err != nil {
			return nil, E(KindSampler, "locate ffmpeg", err)
		}
		binary = path
	}

	log.Info().
		Str("source", req.SourceURL).
		Str("resolution", fmt.Sprintf("%dx%d", req.Width, req.Height)).
		Int("interval", req.IntervalSeconds).
		Msg("Running ffmpeg frame sampler")

	cmd := exec.CommandContext(ctx, binary, sampleArgs(req)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, Errorf(KindSampler, "run ffmpeg", "%v\nOutput: %s", err, string(output))
	}

	frames, err := collectFrames(req.OutputDir, filepath.Ext(req.NamePattern))
	if err != nil {
		return nil, E(KindSampler, "collect frames", err)
	}

	log.Debug().Int("frames", len(frames)).Str("dir", req.OutputDir).Msg("Frame sampling complete")
	return frames, nil
}

// collectFrames lists produced image files in lexical order.
func collectFrames(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame directory: %w", err)
	}

	var frames []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ext) {
			continue
		}
		frames = append(frames, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(frames)
	return frames, nil
}
