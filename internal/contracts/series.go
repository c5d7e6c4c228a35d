package contracts

import "time"

// Provider identifies the upstream statistical agency.
type Provider string

const (
	ProviderONS  Provider = "ONS"
	ProviderOECD Provider = "OECD"
)

// ProviderIdentity is the provider-native series identity. ONS and OECD
// records use different fields; the registry resolves a config into this
// tagged shape once, so downstream code never inspects raw metadata.
type ProviderIdentity struct {
	Provider Provider

	// ONS
	DatasetID string
	SeriesID  string

	// OECD
	DatasetCode string
	Location    string
	Subject     string
	Measure     string
	Frequency   string
}

// SeriesConfig is a registry record describing one configured series.
type SeriesConfig struct {
	Slug        string
	Provider    Provider
	Identity    ProviderIdentity
	Frequency   string // M, Q, A
	Unit        string
	Description string
	TimeFilter  string
	Metadata    map[string]interface{}
	UpdatedAt   *time.Time
}

// SourceSeriesID returns the provider-native identifier callers use to
// select this series (ONS series id, OECD subject).
func (c *SeriesConfig) SourceSeriesID() string {
	if c.Provider == ProviderOECD {
		return c.Identity.Subject
	}
	return c.Identity.SeriesID
}

// RawObservation is one stored observation as returned by the
// observation store. Value may be a float64, int64, string, json.Number
// or nil; the pack builder coerces it.
type RawObservation struct {
	PeriodLabel string
	Value       interface{}
}

// SeriesSelection identifies one requested series in a pack build.
type SeriesSelection struct {
	Source         string `json:"source"`
	SourceSeriesID string `json:"source_series_id"`
	DatasetID      string `json:"dataset_id,omitempty"`
	Alias          string `json:"alias,omitempty"`
}
