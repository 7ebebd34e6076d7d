package trickplay

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestIntervalSelectFilter(t *testing.T) {
	got := intervalSelectFilter(10)
	want := "select='if(not(floor(mod(t,10)))*lt(ld(1),1)," +
		"st(1,1)+st(2,n)+st(3,t));if(eq(ld(1),1)*lt(n,ld(2)+1),1,if(trunc(t-ld(3)),st(1,0)))'"
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
}

func TestSampleArgs(t *testing.T) {
	req := SampleRequest{
		SourceURL:       "https://cdn.example.com/content/v1/play.m3u8",
		Width:           320,
		Height:          180,
		IntervalSeconds: 10,
		OutputDir:       "/tmp/work/small",
		NamePattern:     "v1_small.%05d.jpg",
	}

	got := sampleArgs(req)
	want := []string{
		"-i", "https://cdn.example.com/content/v1/play.m3u8",
		"-vf", intervalSelectFilter(10),
		"-vsync", "0",
		"-s", "320x180",
		filepath.Join("/tmp/work/small", "v1_small.%05d.jpg"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v\nwant %v", got, want)
	}
}

func TestCollectFrames(t *testing.T) {
	dir := t.TempDir()
	// Created out of order; collection must come back sorted.
	for _, name := range []string{"v1_small.00002.jpg", "v1_small.00001.jpg", "v1_small.00010.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// Non-matching entries are skipped.
	if err := os.WriteFile(filepath.Join(dir, "ffmpeg.log"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.jpg"), 0o755); err != nil {
		t.Fatal(err)
	}

	frames, err := collectFrames(dir, ".jpg")
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		filepath.Join(dir, "v1_small.00001.jpg"),
		filepath.Join(dir, "v1_small.00002.jpg"),
		filepath.Join(dir, "v1_small.00010.jpg"),
	}
	if !reflect.DeepEqual(frames, want) {
		t.Errorf("got %v\nwant %v", frames, want)
	}
}

func TestCollectFrames_MissingDir(t *testing.T) {
	if _, err := collectFrames(filepath.Join(t.TempDir(), "absent"), ".jpg"); err == nil {
		t.Error("expected error for missing directory")
	}
}
