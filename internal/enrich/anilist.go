package enrich

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

// DefaultEndpoint is the public AniList GraphQL endpoint.
const DefaultEndpoint = "https://graphql.anilist.co"

const characterQuery = `
query ($id: Int) {
  Character(id: $id) {
    description
    gender
    dateOfBirth {
      year
      month
      day
    }
    age
    bloodType
  }
}
`

// Fetcher performs a single upstream request.
type Fetcher interface {
	Fetch(ctx context.Context, request collyfetcher.Request) (collyfetcher.Response, error)
}

// FuzzyDate is an AniList date whose parts may each be unknown.
type FuzzyDate struct {
	Year  *int `json:"year"`
	Month *int `json:"month"`
	Day   *int `json:"day"`
}

// Profile is the demographic data AniList holds for a character.
type Profile struct {
	Description *string   `json:"description"`
	Gender      *string   `json:"gender"`
	DateOfBirth FuzzyDate `json:"dateOfBirth"`
	Age         *string   `json:"age"`
	BloodType   *string   `json:"bloodType"`
}

// AniList queries character profiles by the id MyAnimeList and AniList share.
type AniList struct {
	endpoint string
	fetcher  Fetcher
	logger   *zap.Logger
}

// NewAniList creates a client. An empty endpoint selects DefaultEndpoint.
func NewAniList(endpoint string, fetcher Fetcher, logger *zap.Logger) *AniList {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultEndpoint
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AniList{endpoint: endpoint, fetcher: fetcher, logger: logger}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]int `json:"variables"`
}

type characterResponse struct {
	Data struct {
		Character *Profile `json:"Character"`
	} `json:"data"`
}

// Character returns the profile for id, or nil when AniList has no such character.
func (a *AniList) Character(ctx context.Context, id int) (*Profile, error) {
	const op = "anilist character"
	body, err := json.Marshal(graphQLRequest{Query: characterQuery, Variables: map[string]int{"id": id}})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	metrics.ObserveRequest(metrics.KindAniList)
	resp, err := a.fetcher.Fetch(ctx, collyfetcher.Request{
		Method: http.MethodPost,
		URL:    a.endpoint,
		Body:   body,
		Headers: http.Header{
			"Content-Type": {"application/json"},
			"Accept":       {"application/json"},
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s %d: %w", op, id, ctx.Err())
		}
		return nil, a.fail(&catalog.UpstreamError{Kind: catalog.ErrKindTransport, Op: op, ID: id, Err: err})
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, a.fail(&catalog.UpstreamError{
			Kind:   catalog.KindForStatus(resp.StatusCode),
			Op:     op,
			ID:     id,
			Status: resp.StatusCode,
		})
	}
	var decoded characterResponse
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return nil, a.fail(&catalog.UpstreamError{Kind: catalog.ErrKindDecode, Op: op, ID: id, Err: err})
	}
	return decoded.Data.Character, nil
}

func (a *AniList) fail(err *catalog.UpstreamError) error {
	metrics.ObserveFailure(metrics.KindAniList, err.Kind.String())
	a.logger.Debug("anilist call failed",
		zap.Int("id", err.ID),
		zap.Stringer("class", err.Kind),
		zap.Int("status", err.Status),
		zap.Error(err.Err),
	)
	return err
}
