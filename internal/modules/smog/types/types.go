package types

import "time"

// TargetPostCode selects the one school station shown by the dashboard.
const TargetPostCode = "59-600"

type School struct {
	City     string `json:"city"`
	Street   string `json:"street"`
	Name     string `json:"name"`
	PostCode string `json:"post_code"`
}

type Measurements struct {
	TemperatureAvg float64 `json:"temperature_avg"`
	HumidityAvg    float64 `json:"humidity_avg"`
	PressureAvg    float64 `json:"pressure_avg"`
	PM10Avg        float64 `json:"pm10_avg"`
	PM25Avg        float64 `json:"pm25_avg"`
}

// StationRecord is one school's aggregated reading for the current period.
// The timestamp is kept exactly as the upstream sent it.
type StationRecord struct {
	School    School       `json:"school"`
	Data      Measurements `json:"data"`
	Timestamp string       `json:"timestamp"`
}

// Outcome values stored in the fetch journal.
const (
	OutcomeLoaded   = "loaded"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

type FetchAttempt struct {
	ID         int64     `json:"id"`
	StartedAt  time.Time `json:"startedAt"`
	DurationMs int64     `json:"durationMs"`
	Outcome    string    `json:"outcome"`
	Error      *string   `json:"error,omitempty"`
	PostCode   string    `json:"postCode"`
	SchoolName *string   `json:"schoolName,omitempty"`
	MeasuredAt *string   `json:"measuredAt,omitempty"`
}

// StationMessage is the MQTT payload published for every loaded record.
type StationMessage struct {
	PostCode    string    `json:"post_code"`
	School      string    `json:"school"`
	City        string    `json:"city"`
	Street      string    `json:"street"`
	Temperature float64   `json:"temperature_c"`
	Humidity    float64   `json:"humidity_pct"`
	Pressure    float64   `json:"pressure_hpa"`
	PM10        float64   `json:"pm10"`
	PM25        float64   `json:"pm25"`
	Timestamp   string    `json:"timestamp"`
	FetchedAt   time.Time `json:"fetched_at"`
}

func NewStationMessage(rec StationRecord, fetchedAt time.Time) StationMessage {
	return StationMessage{
		PostCode:    rec.School.PostCode,
		School:      rec.School.Name,
		City:        rec.School.City,
		Street:      rec.School.Street,
		Temperature: rec.Data.TemperatureAvg,
		Humidity:    rec.Data.HumidityAvg,
		Pressure:    rec.Data.PressureAvg,
		PM10:        rec.Data.PM10Avg,
		PM25:        rec.Data.PM25Avg,
		Timestamp:   rec.Timestamp,
		FetchedAt:   fetchedAt.UTC(),
	}
}
