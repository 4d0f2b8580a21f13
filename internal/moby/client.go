package moby

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"moby-metaserver/internal/cache"
	"moby-metaserver/internal/metrics"
	"moby-metaserver/pkg/logging/logging"
)

const maxResponseSize = 16 * 1024 * 1024

type client struct {
	cfg        Config
	httpClient *http.Client
	store      cache.Store
	logger     *zap.Logger

	// collapses concurrent misses on one key into a single upstream call
	inflight singleflight.Group
}

type queryParam struct {
	name, value string
}

func (c *client) Platforms(ctx context.Context) ([]Platform, error) {
	const op = "platforms"

	raw, err := c.cached(ctx, op, cache.PlatformsKey(), func(ctx context.Context) ([]byte, error) {
		body, err := c.get(ctx, op, "/platforms")
		if err != nil {
			return nil, err
		}
		return field(op, body, "platforms", gjson.Result.IsArray)
	})
	if err != nil {
		return nil, err
	}

	out := []Platform{}
	gjson.ParseBytes(raw).ForEach(func(_, p gjson.Result) bool {
		out = append(out, Platform{
			ID:   int(p.Get("platform_id").Int()),
			Name: p.Get("platform_name").String(),
		})
		return true
	})
	return out, nil
}

func (c *client) FindTitle(ctx context.Context, title, platformID string) ([]GameSummary, error) {
	const op = "find_title"

	params := []queryParam{{"title", title}}
	if platformID != "" {
		params = append(params, queryParam{"platform", platformID})
	}

	raw, err := c.cached(ctx, op, cache.FindTitleKey(title, platformID), func(ctx context.Context) ([]byte, error) {
		body, err := c.get(ctx, op, "/games", params...)
		if err != nil {
			return nil, err
		}
		return field(op, body, "games", gjson.Result.IsArray)
	})
	if err != nil {
		return nil, err
	}

	out := []GameSummary{}
	gjson.ParseBytes(raw).ForEach(func(_, g gjson.Result) bool {
		out = append(out, GameSummary{
			MobyID: int(g.Get("game_id").Int()),
			Title:  g.Get("title").String(),
			Date:   releaseDate(g, platformID),
		})
		return true
	})
	return out, nil
}

func (c *client) GetGame(ctx context.Context, gameID string) (GameRecord, error) {
	const op = "get_game"

	raw, err := c.cached(ctx, op, cache.GameKey(gameID), func(ctx context.Context) ([]byte, error) {
		return c.getRecord(ctx, op, "/games/"+url.PathEscape(gameID))
	})
	if err != nil {
		return nil, err
	}
	return GameRecord(bytes.Clone(raw)), nil
}

func (c *client) GetGameForPlatform(ctx context.Context, gameID, platformID string) (GameRecord, error) {
	const op = "get_game_platform"

	p := "/games/" + url.PathEscape(gameID)
	if platformID != "" {
		p += "/platforms/" + url.PathEscape(platformID)
	}

	raw, err := c.cached(ctx, op, cache.GamePlatformKey(gameID, platformID), func(ctx context.Context) ([]byte, error) {
		return c.getRecord(ctx, op, p)
	})
	if err != nil {
		return nil, err
	}
	return GameRecord(bytes.Clone(raw)), nil
}

// Covers returns the raw cover_groups array for a game on one platform.
func (c *client) Covers(ctx context.Context, gameID, platformID string) ([]byte, error) {
	const op = "covers"

	if platformID == "" {
		return nil, &UpstreamError{Op: op, Err: errors.New("platform is required for cover art")}
	}

	p := "/games/" + url.PathEscape(gameID) + "/platforms/" + url.PathEscape(platformID) + "/covers"
	raw, err := c.cached(ctx, op, cache.CoversKey(gameID, platformID), func(ctx context.Context) ([]byte, error) {
		body, err := c.get(ctx, op, p)
		if err != nil {
			return nil, err
		}
		return field(op, body, "cover_groups", gjson.Result.IsArray)
	})
	if err != nil {
		return nil, err
	}
	return bytes.Clone(raw), nil
}

func (c *client) CoverImage(ctx context.Context, gameID, platformID string) (Image, error) {
	const op = "cover_image"

	groups, err := c.Covers(ctx, gameID, platformID)
	if err != nil {
		return Image{}, err
	}

	imageURL := frontCoverURL(gjson.ParseBytes(groups))
	if imageURL == "" {
		return Image{}, &UpstreamError{Op: op, Err: fmt.Errorf("no cover art: %w", ErrMissingField)}
	}
	ext := imageExt(imageURL)

	data, err := c.cached(ctx, op, cache.CoverImageKey(gameID, platformID, ext), func(ctx context.Context) ([]byte, error) {
		return c.fetch(ctx, op, imageURL)
	})
	if err != nil {
		return Image{}, err
	}
	return Image{Data: bytes.Clone(data), ContentType: mime.TypeByExtension(ext)}, nil
}

// cached runs the lookup pipeline for one key: check the store, return a
// hit, otherwise fetch, store and return. Store failures only cost the next
// lookup a refetch, so they are logged and swallowed.
//
// The shared fetch runs detached from any one caller's cancellation; each
// caller stops waiting on its own ctx. fetch stays bounded by
// UpstreamTimeout.
func (c *client) cached(
	ctx context.Context,
	op, key string,
	fetch func(ctx context.Context) ([]byte, error),
) ([]byte, error) {
	logger := logging.L(ctx).With(zap.String("op", op), zap.String("cache_key", key))

	if err := cache.ValidateKey(key); err != nil {
		logger.Warn("uncacheable key, bypassing cache", zap.Error(err))
		return fetch(ctx)
	}

	if raw, ok := c.lookup(ctx, logger, key); ok {
		return raw, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := c.inflight.DoChan(key, func() (any, error) {
		// A fetch that finished between lookup and DoChan has already stored.
		// Load alone keeps the miss from being counted twice.
		if raw, ok := c.load(flightCtx, logger, key); ok {
			return raw, nil
		}
		raw, err := fetch(flightCtx)
		if err != nil {
			return nil, err
		}
		if err := c.store.Store(flightCtx, key, raw); err != nil {
			logger.Warn("cache store failed", zap.Error(err))
		}
		return raw, nil
	})

	select {
	case <-ctx.Done():
		logger.Debug("caller gave up on upstream fetch", zap.Error(ctx.Err()))
		return nil, &UpstreamError{Op: op, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			logger.Debug("joined in-flight upstream fetch")
		}
		return res.Val.([]byte), nil
	}
}

// lookup returns a usable cached entry. Corrupt structured entries are
// treated as misses so the refetch overwrites them.
func (c *client) lookup(ctx context.Context, logger *zap.Logger, key string) ([]byte, bool) {
	ok, err := c.store.Exists(ctx, key)
	if err != nil {
		logger.Warn("cache exists failed, treating as miss", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return c.load(ctx, logger, key)
}

func (c *client) load(ctx context.Context, logger *zap.Logger, key string) ([]byte, bool) {
	raw, err := c.store.Load(ctx, key)
	switch {
	case errors.Is(err, cache.ErrNotFound):
		return nil, false
	case err != nil:
		logger.Warn("cache load failed, treating as miss", zap.Error(err))
		return nil, false
	}

	if cache.IsStructured(key) && !gjson.ValidBytes(raw) {
		logger.Warn("corrupt cache entry, refetching",
			zap.Error(&cache.DecodeError{Key: key, Err: errors.New("invalid JSON")}),
		)
		return nil, false
	}
	return raw, true
}

// getRecord fetches a single game object and checks it carries game_id.
func (c *client) getRecord(ctx context.Context, op, p string) ([]byte, error) {
	body, err := c.get(ctx, op, p)
	if err != nil {
		return nil, err
	}
	if _, err := field(op, body, "game_id", gjson.Result.Exists); err != nil {
		return nil, err
	}
	return body, nil
}

// get issues an authenticated GET against the API and validates the JSON.
func (c *client) get(ctx context.Context, op, p string, params ...queryParam) ([]byte, error) {
	body, err := c.fetch(ctx, op, c.apiURL(p, params...))
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, &UpstreamError{Op: op, Err: errors.New("response is not valid JSON")}
	}
	return body, nil
}

// apiURL appends the API key first, then params in the given order.
func (c *client) apiURL(p string, params ...queryParam) string {
	var b strings.Builder
	b.WriteString(c.cfg.BaseURL)
	b.WriteString(p)
	b.WriteString("?api_key=")
	b.WriteString(escape(c.cfg.APIKey))
	for _, qp := range params {
		b.WriteString("&")
		b.WriteString(qp.name)
		b.WriteString("=")
		b.WriteString(escape(qp.value))
	}
	return b.String()
}

// fetch GETs rawURL and returns the body of a 200 response.
func (c *client) fetch(parentCtx context.Context, op, rawURL string) ([]byte, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(parentCtx, c.cfg.UpstreamTimeout)
	defer cancel()

	doOnce := func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build HTTP request: %w", err)
		}
		req.Header.Set("Accept", "application/json, image/*")
		return c.httpClient.Do(req)
	}

	body, status, err := c.roundTrip(ctx, op, doOnce)
	metrics.UpstreamLatencySeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(op, "error").Inc()
		c.logger.Error("upstream request failed",
			zap.String("op", op),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, &UpstreamError{Op: op, Status: status, Err: err}
	}

	metrics.UpstreamRequestsTotal.WithLabelValues(op, "ok").Inc()
	c.logger.Info("upstream request completed",
		zap.String("op", op),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)),
	)
	return body, nil
}

func (c *client) roundTrip(
	ctx context.Context,
	op string,
	doOnce func(ctx context.Context) (*http.Response, error),
) ([]byte, int, error) {
	resp, err := c.doWithRetry(ctx, op, doOnce)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("unexpected status: %s", truncate(string(body), 200))
	}
	return body, resp.StatusCode, nil
}

// field returns the raw JSON of name in body when check accepts it.
func field(op string, body []byte, name string, check func(gjson.Result) bool) ([]byte, error) {
	r := gjson.GetBytes(body, name)
	if !check(r) {
		return nil, &UpstreamError{Op: op, Err: fmt.Errorf("%w: %s", ErrMissingField, name)}
	}
	return []byte(r.Raw), nil
}

// releaseDate picks the first release date on platformID, or the earliest
// listed platform when no platform filter is set.
func releaseDate(game gjson.Result, platformID string) string {
	platforms := game.Get("platforms").Array()
	for _, p := range platforms {
		if platformID == "" || p.Get("platform_id").String() == platformID {
			return p.Get("first_release_date").String()
		}
	}
	return ""
}

// frontCoverURL prefers a scan of the front cover and falls back to the
// first image listed.
func frontCoverURL(groups gjson.Result) string {
	var first string
	for _, g := range groups.Array() {
		for _, cv := range g.Get("covers").Array() {
			img := cv.Get("image").String()
			if img == "" {
				continue
			}
			if strings.EqualFold(cv.Get("scan_of").String(), "Front Cover") {
				return img
			}
			if first == "" {
				first = img
			}
		}
	}
	return first
}

// imageExt maps an image URL to one of the binary cache suffixes.
func imageExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".jpg"
	}
	ext := strings.ToLower(path.Ext(u.Path))
	for _, s := range cache.ImageSuffixes {
		if ext == s {
			return ext
		}
	}
	return ".jpg"
}

// escape percent-encodes a query value, spaces included.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// truncate limits string length for logging
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
