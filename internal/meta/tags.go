package meta

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/dhowden/tag"
	"github.com/franz/tunedex/internal/util"
	flac "github.com/go-flac/go-flac"
	"github.com/spf13/afero"
)

// Tags is the raw tag data read from an audio file. Numeric fields are kept
// as text; the extractor decides what parses.
type Tags struct {
	Title       string
	Artist      string
	AlbumArtist string
	Album       string
	Genre       string
	Track       string
	TrackTotal  string
	Year        string
	Duration    *float64 // seconds
	Picture     *Picture
}

// Picture is an embedded cover image
type Picture struct {
	MIMEType string
	Ext      string
	Data     []byte
}

// TagReader reads tags from an audio file. Unreadable or malformed input
// fails with an error wrapping util.ErrTagRead.
type TagReader interface {
	ReadTags(ctx context.Context, path string) (*Tags, error)
}

// FileTagReader reads tags with dhowden/tag. FLAC durations come from the
// STREAMINFO block; other durations, and tags for containers dhowden/tag
// cannot parse, come from Probe when it is set.
type FileTagReader struct {
	fs    afero.Fs
	probe ProbeFunc
}

// NewFileTagReader creates a tag reader over fs. probe may be nil.
func NewFileTagReader(fs afero.Fs, probe ProbeFunc) *FileTagReader {
	return &FileTagReader{fs: fs, probe: probe}
}

// ReadTags implements TagReader
func (r *FileTagReader) ReadTags(ctx context.Context, path string) (t *Tags, err error) {
	f, err := r.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrTagRead, err)
	}
	defer f.Close()

	// dhowden/tag indexes into frame data without bounds checks in places
	defer func() {
		if p := recover(); p != nil {
			t, err = nil, fmt.Errorf("%w: %s: malformed tag data: %v", util.ErrTagRead, path, p)
		}
	}()

	m, err := tag.ReadFrom(f)
	if err != nil {
		if r.probe != nil {
			if info, perr := r.probe(ctx, path); perr == nil {
				return info.tags(), nil
			}
		}
		return nil, fmt.Errorf("%w: %s: %v", util.ErrTagRead, path, err)
	}

	t = tagsFromMetadata(m)

	if m.FileType() == tag.FLAC {
		if _, err := f.Seek(0, io.SeekStart); err == nil {
			t.Duration = flacDuration(f)
		}
	}
	if t.Duration == nil && r.probe != nil {
		if info, err := r.probe(ctx, path); err == nil {
			t.Duration = info.Duration()
		}
	}

	return t, nil
}

func tagsFromMetadata(m tag.Metadata) *Tags {
	t := &Tags{
		Title:       m.Title(),
		Artist:      m.Artist(),
		AlbumArtist: m.AlbumArtist(),
		Album:       m.Album(),
		Genre:       m.Genre(),
	}

	track, total := m.Track()
	if track > 0 {
		t.Track = strconv.Itoa(track)
	}
	if total > 0 {
		t.TrackTotal = strconv.Itoa(total)
	}
	if year := m.Year(); year > 0 {
		t.Year = strconv.Itoa(year)
	}

	if p := m.Picture(); p != nil && len(p.Data) > 0 {
		t.Picture = &Picture{MIMEType: p.MIMEType, Ext: p.Ext, Data: p.Data}
	}

	return t
}

// flacDuration computes seconds from STREAMINFO, or nil if unknown
func flacDuration(r io.Reader) *float64 {
	f, err := flac.ParseMetadata(r)
	if err != nil {
		return nil
	}
	info, err := f.GetStreamInfo()
	if err != nil || info.SampleRate <= 0 || info.SampleCount <= 0 {
		return nil
	}
	d := float64(info.SampleCount) / float64(info.SampleRate)
	return &d
}
