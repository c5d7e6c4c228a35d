package oecd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/briefkit/econdata/backend/internal/contracts"
	"github.com/briefkit/econdata/backend/internal/store"
	"github.com/briefkit/econdata/backend/pkg/httputil"
	"github.com/briefkit/econdata/backend/pkg/logger"
)

// Client fetches OECD statistics via the SDMX-JSON API.
type Client struct {
	httpClient *httputil.Client
	baseURL    string
	logger     *logger.Logger
}

// NewClient creates a new OECD SDMX-JSON client.
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     log.WithField("module", "oecd"),
	}
}

// Response is the subset of the SDMX-JSON payload we consume.
type Response struct {
	Structure Structure `json:"structure"`
	DataSets  []DataSet `json:"dataSets"`
}

// Structure carries the dimension dictionaries that decode the
// position-encoded series and observation keys.
type Structure struct {
	Dimensions Dimensions `json:"dimensions"`
}

// Dimensions groups series-level and observation-level dimensions.
type Dimensions struct {
	Series      []Dimension `json:"series"`
	Observation []Dimension `json:"observation"`
}

// Dimension is one SDMX dimension and its value dictionary.
type Dimension struct {
	ID     string           `json:"id"`
	Values []DimensionValue `json:"values"`
}

// DimensionValue is one entry in a dimension dictionary.
type DimensionValue struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DataSet maps position-encoded series keys ("0:1:0:0") to their
// observations.
type DataSet struct {
	Series map[string]SeriesContent `json:"series"`
}

// SeriesContent maps time-dimension indexes to observation tuples. The
// first tuple element is the value.
type SeriesContent struct {
	Observations map[string][]interface{} `json:"observations"`
}

// FetchDataset calls the OECD API for one series key within a dataset.
// The series key joins location, subject, measure and frequency with
// dots, in the dataset's dimension order.
func (c *Client) FetchDataset(ctx context.Context, identity contracts.ProviderIdentity) (*Response, error) {
	seriesKey := buildSeriesKey(identity)
	endpoint := fmt.Sprintf("%s/%s/%s/all",
		c.baseURL, url.PathEscape(identity.DatasetCode), url.PathEscape(seriesKey))

	resp, err := c.httpClient.Get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch oecd dataset %s key %s: %w", identity.DatasetCode, seriesKey, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("oecd dataset %s key %s: unexpected status %d", identity.DatasetCode, seriesKey, resp.StatusCode)
	}

	var payload Response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode oecd dataset %s: %w", identity.DatasetCode, err)
	}

	return &payload, nil
}

func buildSeriesKey(identity contracts.ProviderIdentity) string {
	parts := []string{identity.Location, identity.Subject, identity.Measure, identity.Frequency}
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, ".")
}

// BuildRecords decodes a payload into DB-ready records. Series keys are
// colon-joined indexes into the series dimensions; observation keys are
// indexes into the TIME_PERIOD dimension.
func BuildRecords(payload *Response, datasetCode string) []store.OECDRecord {
	timePeriods := timePeriodLookup(payload.Structure.Dimensions.Observation)
	seriesDims := payload.Structure.Dimensions.Series

	var records []store.OECDRecord
	for _, dataSet := range payload.DataSets {
		for seriesKey, content := range dataSet.Series {
			dims := decodeSeriesKey(seriesKey, seriesDims)

			for obsKey, tuple := range content.Observations {
				label, ok := timePeriods[obsKey]
				if !ok {
					continue
				}

				records = append(records, store.OECDRecord{
					DatasetCode: datasetCode,
					Location:    dims["LOCATION"],
					Subject:     dims["SUBJECT"],
					Measure:     dims["MEASURE"],
					Frequency:   dims["FREQUENCY"],
					PeriodLabel: label,
					Value:       observationValue(tuple),
					Metadata: map[string]interface{}{
						"source": "OECD",
					},
				})
			}
		}
	}

	return records
}

// timePeriodLookup maps observation-key indexes to period labels.
func timePeriodLookup(observationDims []Dimension) map[string]string {
	lookup := make(map[string]string)
	for _, dim := range observationDims {
		if dim.ID != "TIME_PERIOD" {
			continue
		}
		for i, value := range dim.Values {
			lookup[strconv.Itoa(i)] = value.ID
		}
	}
	return lookup
}

// decodeSeriesKey resolves "0:1:0:0" into dimension-id -> value-id.
func decodeSeriesKey(key string, seriesDims []Dimension) map[string]string {
	dims := make(map[string]string)
	for i, part := range strings.Split(key, ":") {
		if i >= len(seriesDims) {
			break
		}
		index, err := strconv.Atoi(part)
		if err != nil || index < 0 || index >= len(seriesDims[i].Values) {
			continue
		}
		dims[seriesDims[i].ID] = seriesDims[i].Values[index].ID
	}
	return dims
}

func observationValue(tuple []interface{}) *float64 {
	if len(tuple) == 0 {
		return nil
	}
	switch v := tuple[0].(type) {
	case float64:
		return &v
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil
		}
		return &f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}
