package meta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/franz/tunedex/internal/util"
)

// FFprobeInfo is the subset of ffprobe's JSON output read here
type FFprobeInfo struct {
	Format *FFprobeFormat `json:"format"`
}

// FFprobeFormat represents container format metadata
type FFprobeFormat struct {
	Filename   string            `json:"filename"`
	FormatName string            `json:"format_name"`
	Duration   string            `json:"duration"`
	Tags       map[string]string `json:"tags"`
}

// ProbeFunc runs ffprobe (or a stand-in) against a path on the OS filesystem
type ProbeFunc func(ctx context.Context, path string) (*FFprobeInfo, error)

// RunFFprobe executes ffprobe and parses the JSON output
func RunFFprobe(ctx context.Context, path string) (*FFprobeInfo, error) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return nil, util.ErrNotFound
	}

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("ffprobe failed: %s", string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("ffprobe execution failed: %w", err)
	}

	return parseFFprobe(output)
}

func parseFFprobe(output []byte) (*FFprobeInfo, error) {
	var info FFprobeInfo
	if err := json.Unmarshal(output, &info); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if info.Format == nil {
		return nil, fmt.Errorf("ffprobe output has no format section")
	}
	return &info, nil
}

// CheckFFprobeAvailable checks if ffprobe is available in PATH
func CheckFFprobeAvailable() bool {
	_, err := exec.LookPath("ffprobe")
	return err == nil
}

// Duration returns the container duration in seconds, if ffprobe reported one
func (i *FFprobeInfo) Duration() *float64 {
	if i == nil || i.Format == nil {
		return nil
	}
	d, err := strconv.ParseFloat(i.Format.Duration, 64)
	if err != nil || d <= 0 {
		return nil
	}
	return &d
}

// tags maps ffprobe's format tags onto Tags. Keys vary in case between
// containers, and track numbers may arrive as "3/12".
func (i *FFprobeInfo) tags() *Tags {
	get := func(keys ...string) string {
		for _, want := range keys {
			for k, v := range i.Format.Tags {
				if strings.EqualFold(k, want) && strings.TrimSpace(v) != "" {
					return strings.TrimSpace(v)
				}
			}
		}
		return ""
	}

	t := &Tags{
		Title:       get("title"),
		Artist:      get("artist"),
		AlbumArtist: get("album_artist", "albumartist"),
		Album:       get("album"),
		Genre:       get("genre"),
		Year:        get("date", "year"),
		Track:       get("track", "tracknumber"),
		TrackTotal:  get("tracktotal", "totaltracks"),
		Duration:    i.Duration(),
	}

	if num, total, ok := strings.Cut(t.Track, "/"); ok {
		t.Track = num
		if t.TrackTotal == "" {
			t.TrackTotal = total
		}
	}
	if len(t.Year) > 4 {
		t.Year = t.Year[:4]
	}

	return t
}
