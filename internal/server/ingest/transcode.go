package ingest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/trackvault/internal/filex"
)

// Transcoder converts arbitrary audio/video bytes to mp3.
type Transcoder interface {
	Transcode(ctx context.Context, in []byte) ([]byte, error)
}

// FFmpeg shells out to an ffmpeg binary. Input and output go through temp
// files in TempDir; both are removed before Transcode returns.
type FFmpeg struct {
	Path    string
	Bitrate int
	TempDir string
}

func (f *FFmpeg) args(in, out string) []string {
	bitrate := f.Bitrate
	if bitrate <= 0 {
		bitrate = 128
	}
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", in,
		"-vn", "-codec:a", "libmp3lame", "-b:a", strconv.Itoa(bitrate) + "k", "-f", "mp3",
		out,
	}
}

func (f *FFmpeg) Transcode(ctx context.Context, in []byte) ([]byte, error) {
	dir, err := filex.EnsureDir(f.TempDir)
	if err != nil {
		return nil, err
	}

	inPath, err := filex.WriteTemp(dir, "ingest-in-*", in)
	if err != nil {
		return nil, err
	}
	defer filex.Remove(inPath)

	outPath, err := filex.ReserveTemp(dir, "ingest-out-*.mp3")
	if err != nil {
		return nil, err
	}
	defer filex.Remove(outPath)

	path := f.Path
	if path == "" {
		path = "ffmpeg"
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, f.args(inPath, outPath)...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("ffmpeg: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}

	out, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read transcoded output: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output")
	}
	return out, nil
}
