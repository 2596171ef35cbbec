// Package transcoder normalizes arbitrary input audio to a canonical mp3,
// per spec §6.4. Adapted from the teacher's server/wav/convert.go
// (ffmpeg via os/exec, temp-file-then-rename to dodge ffmpeg's
// can't-edit-in-place restriction), swapping its WAV/pcm_s16le target for
// the mp3/192k/44.1k/mono target §6.4 specifies.
package transcoder

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	bitrate    = "192k"
	sampleRate = "44100"
)

// ToCanonicalMP3 converts inputPath to a 192kbps/44.1kHz/mono mp3 file,
// returning the output path. The caller owns cleanup of both paths.
func ToCanonicalMP3(ctx context.Context, inputPath string) (string, error) {
	if _, err := os.Stat(inputPath); err != nil {
		return "", fmt.Errorf("input file does not exist: %w", err)
	}

	ext := filepath.Ext(inputPath)
	outputFile := strings.TrimSuffix(inputPath, ext) + "_canonical.mp3"

	tmpFile := filepath.Join(filepath.Dir(outputFile), "tmp_"+filepath.Base(outputFile))
	defer os.Remove(tmpFile)

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-i", inputPath,
		"-b:a", bitrate,
		"-ar", sampleRate,
		"-ac", "1",
		tmpFile,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg transcode failed: %w, output: %s", err, output)
	}

	if err := os.Rename(tmpFile, outputFile); err != nil {
		return "", fmt.Errorf("renaming transcoded file: %w", err)
	}
	return outputFile, nil
}

// Duration returns the duration in seconds of any audio file via ffprobe.
func Duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration query failed: %w", err)
	}
	return strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
}
