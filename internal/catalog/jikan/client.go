// Package jikan implements catalog.Client against the Jikan v4 REST API.
package jikan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/malcrawl/internal/catalog"
	collyfetcher "github.com/JakeFAU/malcrawl/internal/fetcher/colly"
	"github.com/JakeFAU/malcrawl/internal/metrics"
)

// DefaultBaseURL is the public Jikan v4 endpoint.
const DefaultBaseURL = "https://api.jikan.moe/v4"

// Fetcher performs a single upstream request.
type Fetcher interface {
	Fetch(ctx context.Context, request collyfetcher.Request) (collyfetcher.Response, error)
}

// Client talks to Jikan. It performs no waiting or counting of its own; the
// resolver and orchestrator own the request discipline.
type Client struct {
	baseURL string
	fetcher Fetcher
	logger  *zap.Logger
}

var _ catalog.Client = (*Client)(nil)

// New creates a Client. An empty baseURL selects DefaultBaseURL.
func New(baseURL string, fetcher Fetcher, logger *zap.Logger) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		fetcher: fetcher,
		logger:  logger,
	}
}

type characterEnvelope struct {
	Data struct {
		MalID     int    `json:"mal_id"`
		URL       string `json:"url"`
		Name      string `json:"name"`
		Favorites int    `json:"favorites"`
		Anime     []struct {
			Role  string  `json:"role"`
			Anime workRef `json:"anime"`
		} `json:"anime"`
		Manga []struct {
			Role  string  `json:"role"`
			Manga workRef `json:"manga"`
		} `json:"manga"`
	} `json:"data"`
}

type workRef struct {
	MalID int    `json:"mal_id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

type statisticsEnvelope struct {
	Data struct {
		Total int `json:"total"`
	} `json:"data"`
}

type detailEnvelope struct {
	Data struct {
		Title   string  `json:"title"`
		Type    *string `json:"type"`
		Source  *string `json:"source"`
		Members int     `json:"members"`
	} `json:"data"`
}

// Character fetches /characters/{id}/full.
func (c *Client) Character(ctx context.Context, id int) (catalog.Character, error) {
	var env characterEnvelope
	if err := c.getJSON(ctx, "character", metrics.KindCharacter, id, fmt.Sprintf("/characters/%d/full", id), &env); err != nil {
		return catalog.Character{}, err
	}

	ch := catalog.Character{
		ID:        env.Data.MalID,
		Name:      env.Data.Name,
		URL:       env.Data.URL,
		Favorites: env.Data.Favorites,
		Anime:     make([]catalog.RelatedWorkRef, 0, len(env.Data.Anime)),
		Manga:     make([]catalog.RelatedWorkRef, 0, len(env.Data.Manga)),
	}
	for _, a := range env.Data.Anime {
		ch.Anime = append(ch.Anime, catalog.RelatedWorkRef{ID: a.Anime.MalID, URL: a.Anime.URL, Kind: catalog.KindAnime})
	}
	for _, m := range env.Data.Manga {
		ch.Manga = append(ch.Manga, catalog.RelatedWorkRef{ID: m.Manga.MalID, URL: m.Manga.URL, Kind: catalog.KindManga})
	}
	return ch, nil
}

// Popularity fetches the audience total from /{kind}/{id}/statistics.
func (c *Client) Popularity(ctx context.Context, ref catalog.RelatedWorkRef) (int, error) {
	var env statisticsEnvelope
	path := fmt.Sprintf("/%s/%d/statistics", ref.Kind, ref.ID)
	if err := c.getJSON(ctx, ref.Kind.String()+" statistics", ref.Kind.String(), ref.ID, path, &env); err != nil {
		return 0, err
	}
	return env.Data.Total, nil
}

// Detail fetches /{kind}/{id}. Source is dropped for manga, which has none.
func (c *Client) Detail(ctx context.Context, ref catalog.RelatedWorkRef) (catalog.WorkDetail, error) {
	var env detailEnvelope
	path := fmt.Sprintf("/%s/%d", ref.Kind, ref.ID)
	if err := c.getJSON(ctx, ref.Kind.String()+" detail", ref.Kind.String(), ref.ID, path, &env); err != nil {
		return catalog.WorkDetail{}, err
	}
	detail := catalog.WorkDetail{
		Title:   env.Data.Title,
		Type:    deref(env.Data.Type),
		Members: env.Data.Members,
	}
	if ref.Kind == catalog.KindAnime {
		detail.Source = deref(env.Data.Source)
	}
	return detail, nil
}

func (c *Client) getJSON(ctx context.Context, op, metricKind string, id int, path string, dest any) error {
	resp, err := c.fetcher.Fetch(ctx, collyfetcher.Request{
		URL:     c.baseURL + path,
		Headers: http.Header{"Accept": {"application/json"}},
	})
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s %d: %w", op, id, ctx.Err())
		}
		return c.fail(metricKind, &catalog.UpstreamError{Kind: catalog.ErrKindTransport, Op: op, ID: id, Err: err})
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail(metricKind, &catalog.UpstreamError{
			Kind:   catalog.KindForStatus(resp.StatusCode),
			Op:     op,
			ID:     id,
			Status: resp.StatusCode,
		})
	}
	if err := json.Unmarshal(resp.Body, dest); err != nil {
		return c.fail(metricKind, &catalog.UpstreamError{Kind: catalog.ErrKindDecode, Op: op, ID: id, Err: err})
	}
	return nil
}

func (c *Client) fail(metricKind string, err *catalog.UpstreamError) error {
	metrics.ObserveFailure(metricKind, err.Kind.String())
	c.logger.Debug("upstream call failed",
		zap.String("op", err.Op),
		zap.Int("id", err.ID),
		zap.Stringer("class", err.Kind),
		zap.Int("status", err.Status),
		zap.Error(err.Err),
	)
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
