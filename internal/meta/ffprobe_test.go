package meta

import "testing"

func TestParseFFprobeTags(t *testing.T) {
	output := []byte(`{
		"format": {
			"filename": "/music/a.wma",
			"format_name": "asf",
			"duration": "215.040000",
			"tags": {
				"Title": "Airbag",
				"ARTIST": "Radiohead",
				"album_artist": "Radiohead",
				"album": "OK Computer",
				"genre": "Rock",
				"date": "1997-05-21",
				"track": "1/12"
			}
		}
	}`)

	info, err := parseFFprobe(output)
	if err != nil {
		t.Fatalf("parseFFprobe failed: %v", err)
	}

	tags := info.tags()
	checks := []struct {
		field, got, expected string
	}{
		{"Title", tags.Title, "Airbag"},
		{"Artist", tags.Artist, "Radiohead"},
		{"AlbumArtist", tags.AlbumArtist, "Radiohead"},
		{"Album", tags.Album, "OK Computer"},
		{"Genre", tags.Genre, "Rock"},
		{"Year", tags.Year, "1997"},
		{"Track", tags.Track, "1"},
		{"TrackTotal", tags.TrackTotal, "12"},
	}
	for _, c := range checks {
		if c.got != c.expected {
			t.Errorf("%s = %q, expected %q", c.field, c.got, c.expected)
		}
	}

	if tags.Duration == nil || *tags.Duration != 215.04 {
		t.Errorf("Duration = %v, expected 215.04", tags.Duration)
	}
}

func TestFFprobeDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration string
		valid    bool
	}{
		{"seconds", "12.5", true},
		{"not available", "N/A", false},
		{"empty", "", false},
		{"zero", "0.000000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := &FFprobeInfo{Format: &FFprobeFormat{Duration: tt.duration}}
			if got := info.Duration(); (got != nil) != tt.valid {
				t.Errorf("Duration(%q) = %v, expected valid=%v", tt.duration, got, tt.valid)
			}
		})
	}

	if _, err := parseFFprobe([]byte(`{}`)); err == nil {
		t.Error("expected an error for output without a format section")
	}
}
