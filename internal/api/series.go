package api

import (
	"context"
	"fmt"
	"net/url"
)

// ListSeries fetches the series list, optionally filtered by category.
func (c *Client) ListSeries(ctx context.Context, category string) (*SeriesListResponse, error) {
	query := url.Values{}
	if category != "" {
		query.Set("category", category)
	}

	var resp SeriesListResponse
	if err := c.get(ctx, "/series", query, &resp); err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	return &resp, nil
}

// GetSeries fetches a series by ticker.
func (c *Client) GetSeries(ctx context.Context, seriesTicker string) (*Series, error) {
	var resp seriesResponse
	if err := c.get(ctx, "/series/"+seriesTicker, nil, &resp); err != nil {
		return nil, fmt.Errorf("get series %s: %w", seriesTicker, err)
	}
	return &resp.Series, nil
}
