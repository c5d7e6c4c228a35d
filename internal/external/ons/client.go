package ons

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/briefkit/econdata/backend/internal/store"
	"github.com/briefkit/econdata/backend/pkg/httputil"
	"github.com/briefkit/econdata/backend/pkg/logger"
)

// Client fetches UK economic time series from the ONS API.
type Client struct {
	httpClient *httputil.Client
	baseURL    string
	logger     *logger.Logger
}

// NewClient creates a new ONS API client.
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     log.WithField("module", "ons"),
	}
}

// TimeseriesResponse is the ONS timeseries payload. Observations arrive
// grouped by cadence; a series usually populates only one group.
type TimeseriesResponse struct {
	Description Description   `json:"description"`
	Months      []PeriodEntry `json:"months"`
	Quarters    []PeriodEntry `json:"quarters"`
	Years       []PeriodEntry `json:"years"`
}

// Description holds series-level metadata from the ONS payload.
type Description struct {
	Title         string `json:"title"`
	DatasetID     string `json:"datasetId"`
	SeriesID      string `json:"seriesId"`
	Unit          string `json:"unit"`
	MeasureOfUnit string `json:"measureOfUnit"`
}

// PeriodEntry is one observation. The period label lives in whichever
// of date/time/period the payload filled in.
type PeriodEntry struct {
	Date   string `json:"date"`
	Time   string `json:"time"`
	Period string `json:"period"`
	Value  string `json:"value"`
}

// Label returns the period label for this entry.
func (e PeriodEntry) Label() string {
	if e.Date != "" {
		return e.Date
	}
	if e.Time != "" {
		return e.Time
	}
	return e.Period
}

// FetchTimeseries calls the ONS API for a series/dataset combination.
// timeFilter is an optional ONS time expression (e.g. "2019", "latest").
func (c *Client) FetchTimeseries(ctx context.Context, seriesID, datasetID, timeFilter string) (*TimeseriesResponse, error) {
	endpoint := fmt.Sprintf("%s/timeseries/%s/dataset/%s/data",
		c.baseURL, url.PathEscape(seriesID), url.PathEscape(datasetID))
	if timeFilter != "" {
		endpoint += "?time=" + url.QueryEscape(timeFilter)
	}

	resp, err := c.httpClient.Get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch ons timeseries %s/%s: %w", seriesID, datasetID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("ons timeseries %s/%s: unexpected status %d", seriesID, datasetID, resp.StatusCode)
	}

	var payload TimeseriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode ons timeseries %s/%s: %w", seriesID, datasetID, err)
	}

	return &payload, nil
}

// BuildRecords transforms an ONS payload into DB-ready records. Entries
// without a period label are dropped; malformed values become null.
func BuildRecords(payload *TimeseriesResponse, datasetID, seriesID string) []store.ONSRecord {
	datasetLabel := payload.Description.DatasetID
	if datasetLabel == "" {
		datasetLabel = datasetID
	}
	seriesLabel := payload.Description.SeriesID
	if seriesLabel == "" {
		seriesLabel = seriesID
	}

	groups := []struct {
		dimension string
		entries   []PeriodEntry
	}{
		{"months", payload.Months},
		{"quarters", payload.Quarters},
		{"years", payload.Years},
	}

	var records []store.ONSRecord
	for _, group := range groups {
		for _, entry := range group.entries {
			label := entry.Label()
			if label == "" {
				continue
			}

			records = append(records, store.ONSRecord{
				DatasetID:   datasetLabel,
				SeriesID:    seriesLabel,
				Title:       payload.Description.Title,
				PeriodLabel: label,
				Value:       normalizeValue(entry.Value),
				Unit:        payload.Description.Unit,
				Measure:     payload.Description.MeasureOfUnit,
				Dimension:   group.dimension,
				Metadata: map[string]interface{}{
					"source": "ONS",
				},
			})
		}
	}

	return records
}

func normalizeValue(raw string) *float64 {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return nil
	}
	return &value
}
