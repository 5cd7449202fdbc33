package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"ludotheque-admin/internal/store"
)

// GroupementResolver resolves the intercommunal groupings a commune belongs
// to. The evaluation service consumes it for COMMUNE/groupement conditions.
type GroupementResolver interface {
	GroupementsDeCommune(ctx context.Context, communeID string) ([]string, error)
}

// communeResponse is the commune reference API payload (geo.api.gouv.fr
// schema: codeEpci is the commune's intercommunal grouping).
type communeResponse struct {
	Code     string `json:"code"`
	Nom      string `json:"nom"`
	CodeEpci string `json:"codeEpci"`
}

// GeoClient commune reference API client, redis-cached: grouping membership
// changes once a year at most, so lookups are served from cache almost always.
type GeoClient struct {
	httpClient *resty.Client
	kv         store.KV
	cacheTTL   time.Duration
	logger     *zap.Logger
}

func NewGeoClient(baseURL string, cacheTTL time.Duration, kv store.KV, logger *zap.Logger) *GeoClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Accept", "application/json")

	return &GeoClient{
		httpClient: client,
		kv:         kv,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

var _ GroupementResolver = (*GeoClient)(nil)

// GroupementsDeCommune returns the grouping identifiers of a commune.
func (c *GeoClient) GroupementsDeCommune(ctx context.Context, communeID string) ([]string, error) {
	if communeID == "" {
		return nil, fmt.Errorf("commune_id is required")
	}

	cacheKey := "geo:commune:" + communeID
	if c.kv != nil {
		if cached, err := c.kv.Get(ctx, cacheKey); err == nil {
			var groupements []string
			if jsonErr := json.Unmarshal([]byte(cached), &groupements); jsonErr == nil {
				return groupements, nil
			}
		}
	}

	var commune communeResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("fields", "codeEpci").
		SetResult(&commune).
		Get("/communes/" + communeID)
	if err != nil {
		return nil, fmt.Errorf("geo API call failed for commune %s: %w", communeID, err)
	}
	if resp.StatusCode() == 404 {
		// Unknown commune code: no grouping, not an error.
		return []string{}, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("geo API returned status %d for commune %s", resp.StatusCode(), communeID)
	}

	groupements := []string{}
	if commune.CodeEpci != "" {
		groupements = append(groupements, commune.CodeEpci)
	}

	if c.kv != nil {
		if payload, jsonErr := json.Marshal(groupements); jsonErr == nil {
			if setErr := c.kv.Set(ctx, cacheKey, string(payload), c.cacheTTL); setErr != nil {
				c.logger.Warn("failed to cache commune groupements",
					zap.String("commune_id", communeID), zap.Error(setErr))
			}
		}
	}

	return groupements, nil
}
