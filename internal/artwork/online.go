package artwork

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/franz/tunedex/internal/store"
	"github.com/franz/tunedex/internal/util"
	"github.com/gosimple/unidecode"
)

const (
	// MusicBrainzURL is the MusicBrainz web service base URL
	MusicBrainzURL = "https://musicbrainz.org/ws/2"

	// CoverArtURL is the Cover Art Archive base URL
	CoverArtURL = "https://coverartarchive.org"

	// RateLimit is the minimum spacing between MusicBrainz requests
	RateLimit = 1 * time.Second

	// MinScore is the lowest search score accepted as a match
	MinScore = 80

	maxImageBytes = 10 << 20
)

// OnlineSource fetches artwork for free-text search keywords
type OnlineSource interface {
	Fetch(ctx context.Context, keywords string) ([]byte, error)
}

// Keywords derives search keywords from a directory path: its basename,
// transliterated to ASCII with separators turned into spaces.
func Keywords(dir string) string {
	base := unidecode.Unidecode(filepath.Base(filepath.Clean(dir)))
	base = strings.NewReplacer("_", " ", ".", " ").Replace(base)
	return strings.Join(strings.Fields(base), " ")
}

// MusicBrainzSource searches MusicBrainz for a release matching the
// keywords and downloads its front cover from the Cover Art Archive.
// Keyword lookups, including misses, are cached in the store.
type MusicBrainzSource struct {
	httpClient  *http.Client
	userAgent   string
	baseURL     string
	coverArtURL string
	rateLimiter *time.Ticker
	retry       *util.RetryConfig
	store       *store.Store
}

// MusicBrainzConfig configures a MusicBrainzSource. Zero values select the
// public services and defaults.
type MusicBrainzConfig struct {
	UserAgent   string
	BaseURL     string
	CoverArtURL string
	RateLimit   time.Duration
	Retry       *util.RetryConfig
	Store       *store.Store // optional lookup cache
	HTTPClient  *http.Client
}

// NewMusicBrainzSource creates a rate-limited MusicBrainz client
func NewMusicBrainzSource(cfg *MusicBrainzConfig) *MusicBrainzSource {
	c := &MusicBrainzSource{
		httpClient:  cfg.HTTPClient,
		userAgent:   cfg.UserAgent,
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		coverArtURL: strings.TrimSuffix(cfg.CoverArtURL, "/"),
		retry:       cfg.Retry,
		store:       cfg.Store,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.baseURL == "" {
		c.baseURL = MusicBrainzURL
	}
	if c.coverArtURL == "" {
		c.coverArtURL = CoverArtURL
	}
	rate := cfg.RateLimit
	if rate <= 0 {
		rate = RateLimit
	}
	c.rateLimiter = time.NewTicker(rate)
	return c
}

// Close releases resources used by the client
func (c *MusicBrainzSource) Close() {
	if c.rateLimiter != nil {
		c.rateLimiter.Stop()
	}
}

type releaseSearchResult struct {
	Releases []release `json:"releases"`
	Count    int       `json:"count"`
}

type release struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Score        int            `json:"score"`
	ArtistCredit []artistCredit `json:"artist-credit"`
}

type artistCredit struct {
	Name string `json:"name"`
}

// Fetch implements OnlineSource. Every failure, including "no match",
// wraps util.ErrExternalFetch.
func (c *MusicBrainzSource) Fetch(ctx context.Context, keywords string) ([]byte, error) {
	key := strings.ToLower(strings.TrimSpace(keywords))
	if key == "" {
		return nil, fmt.Errorf("%w: empty keywords", util.ErrExternalFetch)
	}

	mbid, cached, err := c.cachedRelease(key)
	if err != nil {
		util.WarnLog("Artwork lookup cache read failed: %v", err)
	}

	if !cached {
		mbid, err = util.RetryWithBackoff(ctx, c.retry, func() (string, error) {
			return c.searchRelease(ctx, keywords)
		}, "musicbrainz release search")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", util.ErrExternalFetch, err)
		}
		if c.store != nil {
			if err := c.store.PutArtworkLookup(key, mbid); err != nil {
				util.WarnLog("Failed to cache artwork lookup for '%s': %v", keywords, err)
			}
		}
	}

	if mbid == "" {
		return nil, fmt.Errorf("%w: no release matches '%s'", util.ErrExternalFetch, keywords)
	}

	data, err := util.RetryWithBackoff(ctx, c.retry, func() ([]byte, error) {
		return c.fetchFrontCover(ctx, mbid)
	}, "cover art download")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrExternalFetch, err)
	}

	return data, nil
}

func (c *MusicBrainzSource) cachedRelease(key string) (mbid string, ok bool, err error) {
	if c.store == nil {
		return "", false, nil
	}
	lookup, err := c.store.GetArtworkLookup(key)
	if err != nil || lookup == nil {
		return "", false, err
	}
	util.DebugLog("Artwork lookup cache hit: '%s' -> '%s'", key, lookup.ReleaseMBID)
	return lookup.ReleaseMBID, true, nil
}

// searchRelease returns the best release MBID, or "" when nothing scores
// at least MinScore
func (c *MusicBrainzSource) searchRelease(ctx context.Context, keywords string) (string, error) {
	if err := c.waitForRateLimit(ctx); err != nil {
		return "", err
	}

	urlStr := fmt.Sprintf("%s/release/?query=%s&fmt=json&limit=5", c.baseURL, url.QueryEscape(escapeQuery(keywords)))
	util.DebugLog("MusicBrainz API: searching release '%s'", keywords)

	resp, err := c.get(ctx, urlStr, "application/json")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result releaseSearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	for _, r := range result.Releases {
		if r.Score >= MinScore && r.ID != "" {
			util.DebugLog("MusicBrainz: '%s' -> '%s' (score: %d, MBID: %s)", keywords, r.Title, r.Score, r.ID)
			return r.ID, nil
		}
	}

	util.DebugLog("MusicBrainz: no confident release for '%s'", keywords)
	return "", nil
}

func (c *MusicBrainzSource) fetchFrontCover(ctx context.Context, mbid string) ([]byte, error) {
	urlStr := fmt.Sprintf("%s/release/%s/front-500", c.coverArtURL, mbid)

	resp, err := c.get(ctx, urlStr, "image/*")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image from %s", urlStr)
	}
	return data, nil
}

// get performs a GET and returns the response only for 200 OK; other
// statuses become a *util.StatusError so retry can classify them.
func (c *MusicBrainzSource) get(ctx context.Context, urlStr, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &util.StatusError{StatusCode: resp.StatusCode, URL: urlStr}
	}
	return resp, nil
}

// waitForRateLimit blocks until the next tick (1 req/sec for MusicBrainz)
func (c *MusicBrainzSource) waitForRateLimit(ctx context.Context) error {
	select {
	case <-c.rateLimiter.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// escapeQuery escapes Lucene syntax characters in a search term
func escapeQuery(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`+-&|!(){}[]^"~*?:\/`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
