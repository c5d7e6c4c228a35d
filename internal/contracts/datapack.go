package contracts

// QualityStatus is the traffic-light trust signal for a series or pack.
type QualityStatus string

const (
	StatusGreen QualityStatus = "green"
	StatusAmber QualityStatus = "amber"
	StatusRed   QualityStatus = "red"
)

// DerivedStats holds computed statistics for one series. Pointer fields
// distinguish "insufficient data" (nil, omitted from JSON) from zero.
type DerivedStats struct {
	LatestPeriod *string  `json:"latest_period,omitempty"`
	LatestValue  *float64 `json:"latest_value,omitempty"`
	MoMChange    *float64 `json:"mom_change,omitempty"`
	YoYChange    *float64 `json:"yoy_change,omitempty"`
	Rolling3MAvg *float64 `json:"rolling_3m_avg,omitempty"`
	Rolling12M   *float64 `json:"rolling_12m_avg,omitempty"`
	Min          *float64 `json:"min,omitempty"`
	Max          *float64 `json:"max,omitempty"`
}

// QualityCheck is one named pass/fail check in a quality verdict.
type QualityCheck struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

// PackObservation is one display observation inside a series payload.
type PackObservation struct {
	PeriodStart string   `json:"period_start"`
	Value       *float64 `json:"value"`
}

// Provenance records when data was pulled and last ingested. Excluded
// from the pack content hash.
type Provenance struct {
	PulledAt   string  `json:"pulled_at"`
	IngestedAt *string `json:"ingested_at"`
}

// SeriesPayload is the per-series slice of a data pack.
type SeriesPayload struct {
	SeriesKey      string            `json:"series_key"`
	SeriesID       string            `json:"series_id"`
	Source         string            `json:"source"`
	SourceSeriesID string            `json:"source_series_id"`
	Name           string            `json:"name"`
	Unit           string            `json:"unit"`
	Frequency      string            `json:"frequency"`
	LatestPeriod   *string           `json:"latest_period"`
	Observations   []PackObservation `json:"observations"`
	Derived        DerivedStats      `json:"derived"`
	Provenance     Provenance        `json:"provenance"`
	QualityStatus  QualityStatus     `json:"quality_status"`
	QualityChecks  []QualityCheck    `json:"quality_checks"`
}

// PackQuality is the aggregate quality block of a data pack.
type PackQuality struct {
	Status QualityStatus  `json:"status"`
	Checks []QualityCheck `json:"checks"`
}

// DataPack is the normalized, quality-annotated bundle of series slices
// assembled for one briefing request. Plain nested structure, directly
// JSON-serializable.
type DataPack struct {
	Topic           string          `json:"topic"`
	AsOf            string          `json:"as_of"`
	LookbackPeriods int             `json:"lookback_periods"`
	Series          []SeriesPayload `json:"series"`
	Quality         PackQuality     `json:"quality"`
	DataLimitations []string        `json:"data_limitations"`
	DataPackHash    string          `json:"data_pack_hash"`
}

// PackOptions holds caller options for a pack build.
type PackOptions struct {
	AsOf            string `json:"as_of,omitempty"`
	LookbackPeriods int    `json:"lookback_periods,omitempty"`
	Workers         int    `json:"-"`
}
