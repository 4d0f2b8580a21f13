package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"moby-metaserver/internal/cache"
	"moby-metaserver/internal/moby"
	"moby-metaserver/pkg/logging/logging"
)

const (
	StatusOK      = "Ok"
	StatusError   = "Error"
	StatusInvalid = "Invalid request"
	StatusUnknown = "Unknown"
)

// MetadataHandler holds dependencies for the launcher-facing endpoints.
type MetadataHandler struct {
	Client moby.Client
	Cache  cache.Store
	Page   IndexRenderer
}

func NewMetadataHandler(client moby.Client, store cache.Store, index IndexRenderer) *MetadataHandler {
	return &MetadataHandler{
		Client: client,
		Cache:  store,
		Page:   index,
	}
}

// envelope is the result/status pair every JSON response starts with.
type envelope struct {
	Result int    `json:"result"`
	Status string `json:"status"`
}

type purgeResponse struct {
	envelope
	Removed []string `json:"removed"`
}

type platformsResponse struct {
	envelope
	Platforms []moby.Platform `json:"platforms"`
}

type platformIDResponse struct {
	envelope
	PlatformID int `json:"platform_id"`
}

type findResponse struct {
	envelope
	Title      string             `json:"title"`
	PlatformID int                `json:"platform_id"`
	Games      []moby.GameSummary `json:"games"`
}

type getDataResponse struct {
	envelope
	MobyID int `json:"moby_id"`
	moby.Metadata
}

// Index handles GET /.
func (h *MetadataHandler) Index(w http.ResponseWriter, r *http.Request) {
	html, err := h.Page.Render()
	if err != nil {
		logging.L(r.Context()).Error("index_render_error", zap.Error(err))
		http.Error(w, "index unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

// Purge handles GET /purge. Entries that could not be removed are logged
// and left out of the count; a partial purge still reports Ok.
func (h *MetadataHandler) Purge(w http.ResponseWriter, r *http.Request) {
	res := h.Cache.Purge(r.Context())

	resp := purgeResponse{
		envelope: envelope{Result: res.Count(), Status: StatusOK},
		Removed:  res.Removed,
	}
	if resp.Removed == nil {
		resp.Removed = []string{}
	}
	if res.Err != nil {
		logging.L(r.Context()).Warn("purge_partial", zap.Int("removed", res.Count()), zap.Error(res.Err))
	}
	h.writeJSON(w, resp)
}

// Platforms handles GET /platforms.
func (h *MetadataHandler) Platforms(w http.ResponseWriter, r *http.Request) {
	resp := platformsResponse{
		envelope:  envelope{Status: StatusUnknown},
		Platforms: []moby.Platform{},
	}

	platforms, err := h.Client.Platforms(r.Context())
	if err != nil {
		logging.L(r.Context()).Warn("platforms_error", zap.Error(err))
		resp.Status = StatusError
		h.writeJSON(w, resp)
		return
	}

	resp.Result = len(platforms)
	resp.Status = StatusOK
	resp.Platforms = platforms
	h.writeJSON(w, resp)
}

// PlatformID handles GET /platformid?platform=<name>.
func (h *MetadataHandler) PlatformID(w http.ResponseWriter, r *http.Request) {
	resp := platformIDResponse{
		envelope:   envelope{Status: StatusUnknown},
		PlatformID: -1,
	}

	name, ok := param(r, "platform")
	if !ok {
		resp.Status = StatusInvalid
		h.writeJSON(w, resp)
		return
	}

	id, found, err := h.resolvePlatform(r.Context(), name)
	if err != nil {
		logging.L(r.Context()).Warn("platformid_error", zap.String("platform", name), zap.Error(err))
		resp.Status = StatusError
		h.writeJSON(w, resp)
		return
	}

	resp.Status = StatusOK
	if found {
		resp.Result = 1
		resp.PlatformID = id
	}
	h.writeJSON(w, resp)
}

// Find handles GET /find?title=<title>[&platform=<name>].
func (h *MetadataHandler) Find(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.L(ctx)
	start := time.Now()

	resp := findResponse{
		envelope:   envelope{Status: StatusUnknown},
		PlatformID: -1,
		Games:      []moby.GameSummary{},
	}

	title, ok := param(r, "title")
	if !ok {
		resp.Status = StatusInvalid
		h.writeJSON(w, resp)
		return
	}
	resp.Title = title

	platformID := h.platformFilter(ctx, r)
	if platformID >= 0 {
		resp.PlatformID = platformID
	}

	games, err := h.Client.FindTitle(ctx, title, filterString(platformID))
	if err != nil {
		logger.Warn("find_error", zap.String("title", title), zap.Error(err))
		resp.Status = StatusError
		h.writeJSON(w, resp)
		return
	}

	resp.Result = len(games)
	resp.Status = StatusOK
	resp.Games = games

	logger.Info("find",
		zap.String("title", title),
		zap.Int("platform_id", resp.PlatformID),
		zap.Int("results", len(games)),
		zap.Duration("total_latency_ms", time.Since(start)),
	)
	h.writeJSON(w, resp)
}

// GetData handles GET /getdata?moby_id=<id>[&platform=<name>].
func (h *MetadataHandler) GetData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.L(ctx)

	resp := getDataResponse{envelope: envelope{Status: StatusUnknown}}

	gameID, ok := gameIDParam(r)
	if !ok {
		resp.Status = StatusInvalid
		h.writeJSON(w, resp)
		return
	}
	resp.MobyID = gameID
	id := strconv.Itoa(gameID)

	game, err := h.Client.GetGame(ctx, id)
	if err != nil {
		logger.Warn("getdata_error", zap.Int("moby_id", gameID), zap.Error(err))
		resp.Status = StatusError
		h.writeJSON(w, resp)
		return
	}

	// Without a platform the global record stands in for both.
	onPlatform := game
	if platformID := h.platformFilter(ctx, r); platformID >= 0 {
		onPlatform, err = h.Client.GetGameForPlatform(ctx, id, filterString(platformID))
		if err != nil {
			logger.Warn("getdata_platform_error",
				zap.Int("moby_id", gameID),
				zap.Int("platform_id", platformID),
				zap.Error(err),
			)
			resp.Status = StatusError
			h.writeJSON(w, resp)
			return
		}
	}

	resp.Metadata = moby.BuildMetadata(game, onPlatform)
	resp.Result = 1
	resp.Status = StatusOK
	h.writeJSON(w, resp)
}

// Cover handles GET /cover?moby_id=<id>&platform=<name> and answers with
// the image itself.
func (h *MetadataHandler) Cover(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	gameID, ok := gameIDParam(r)
	platformID := h.platformFilter(ctx, r)
	if !ok || platformID < 0 {
		h.writeJSONStatus(w, http.StatusBadRequest, envelope{Status: StatusInvalid})
		return
	}

	img, err := h.Client.CoverImage(ctx, strconv.Itoa(gameID), filterString(platformID))
	if err != nil {
		logging.L(ctx).Warn("cover_error", zap.Int("moby_id", gameID), zap.Error(err))
		h.writeJSONStatus(w, http.StatusNotFound, envelope{Status: StatusError})
		return
	}

	if img.ContentType != "" {
		w.Header().Set("Content-Type", img.ContentType)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	_, _ = w.Write(img.Data)
}

// resolvePlatform matches name against the catalogue, ignoring case.
func (h *MetadataHandler) resolvePlatform(ctx context.Context, name string) (int, bool, error) {
	platforms, err := h.Client.Platforms(ctx)
	if err != nil {
		return 0, false, err
	}
	for _, p := range platforms {
		if strings.EqualFold(p.Name, name) {
			return p.ID, true, nil
		}
	}
	return 0, false, nil
}

// platformFilter resolves the optional platform parameter, or -1 when it is
// absent or matches nothing. Lookup failures also leave the filter unset.
func (h *MetadataHandler) platformFilter(ctx context.Context, r *http.Request) int {
	name, ok := param(r, "platform")
	if !ok {
		return -1
	}
	id, found, err := h.resolvePlatform(ctx, name)
	if err != nil {
		logging.L(ctx).Warn("platform_resolve_error", zap.String("platform", name), zap.Error(err))
		return -1
	}
	if !found {
		return -1
	}
	return id
}

func filterString(platformID int) string {
	if platformID < 0 {
		return ""
	}
	return strconv.Itoa(platformID)
}

func param(r *http.Request, name string) (string, bool) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	return v, v != ""
}

func gameIDParam(r *http.Request) (int, bool) {
	v, ok := param(r, "moby_id")
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(v)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// writeJSON is a small helper to send JSON responses consistently.
func (h *MetadataHandler) writeJSON(w http.ResponseWriter, v any) {
	h.writeJSONStatus(w, http.StatusOK, v)
}

func (h *MetadataHandler) writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
