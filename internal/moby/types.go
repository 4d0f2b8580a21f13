package moby

import (
	"context"
	"errors"
	"fmt"
)

// Platform is one entry of the upstream platform catalogue.
type Platform struct {
	ID   int    `json:"platform_id"`
	Name string `json:"platform_name"`
}

// GameSummary is the per-title search result handed to launchers.
type GameSummary struct {
	MobyID int    `json:"moby_id"`
	Title  string `json:"title"`
	Date   string `json:"date"`
}

// GameRecord is an undecoded upstream game object, either the global
// record or the one scoped to a platform. Read it with the extract helpers.
type GameRecord []byte

// Image is a binary payload with the content type implied by its suffix.
type Image struct {
	Data        []byte
	ContentType string
}

// ErrMissingField means a 200 response lacked the field the call exists for.
var ErrMissingField = errors.New("response missing expected field")

// UpstreamError covers every way a lookup can fail to produce data:
// transport failure, a non-200 status, or a malformed response.
type UpstreamError struct {
	Op     string
	Status int // 0 when no response arrived
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("mobyclient: %s: upstream %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("mobyclient: %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Client is the cache-fronted view of the game database.
type Client interface {
	Platforms(ctx context.Context) ([]Platform, error)
	// FindTitle searches by title; an empty platformID searches all platforms.
	FindTitle(ctx context.Context, title, platformID string) ([]GameSummary, error)
	GetGame(ctx context.Context, gameID string) (GameRecord, error)
	// GetGameForPlatform falls back to the global record when platformID is empty.
	GetGameForPlatform(ctx context.Context, gameID, platformID string) (GameRecord, error)
	// Covers returns the raw cover_groups JSON array for a game on a platform.
	Covers(ctx context.Context, gameID, platformID string) ([]byte, error)
	// CoverImage returns the front cover art of a game on a platform.
	CoverImage(ctx context.Context, gameID, platformID string) (Image, error)
}
