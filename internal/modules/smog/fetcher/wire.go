package fetcher

import (
	"errors"
	"fmt"

	"smogdash/internal/modules/smog/types"
)

// Wire shapes use pointers so a missing field can be told apart from zero.

type wireResponse struct {
	SmogData *[]wireNode `json:"smog_data"`
}

type wireNode struct {
	School    *wireSchool `json:"school"`
	Data      *wireData   `json:"data"`
	Timestamp *string     `json:"timestamp"`
}

type wireSchool struct {
	City     *string `json:"city"`
	Street   *string `json:"street"`
	Name     *string `json:"name"`
	PostCode *string `json:"post_code"`
}

type wireData struct {
	TemperatureAvg *float64 `json:"temperature_avg"`
	HumidityAvg    *float64 `json:"humidity_avg"`
	PressureAvg    *float64 `json:"pressure_avg"`
	PM10Avg        *float64 `json:"pm10_avg"`
	PM25Avg        *float64 `json:"pm25_avg"`
}

func (n wireNode) toRecord() (*types.StationRecord, error) {
	var missing []error
	str := func(field string, v *string) string {
		if v == nil {
			missing = append(missing, fmt.Errorf("missing %s", field))
			return ""
		}
		return *v
	}
	num := func(field string, v *float64) float64 {
		if v == nil {
			missing = append(missing, fmt.Errorf("missing %s", field))
			return 0
		}
		return *v
	}

	rec := &types.StationRecord{}
	rec.School.City = str("school.city", n.School.City)
	rec.School.Street = str("school.street", n.School.Street)
	rec.School.Name = str("school.name", n.School.Name)
	rec.School.PostCode = str("school.post_code", n.School.PostCode)

	if n.Data == nil {
		missing = append(missing, errors.New("missing data"))
	} else {
		rec.Data.TemperatureAvg = num("data.temperature_avg", n.Data.TemperatureAvg)
		rec.Data.HumidityAvg = num("data.humidity_avg", n.Data.HumidityAvg)
		rec.Data.PressureAvg = num("data.pressure_avg", n.Data.PressureAvg)
		rec.Data.PM10Avg = num("data.pm10_avg", n.Data.PM10Avg)
		rec.Data.PM25Avg = num("data.pm25_avg", n.Data.PM25Avg)
	}
	rec.Timestamp = str("timestamp", n.Timestamp)

	if len(missing) > 0 {
		return nil, errors.Join(missing...)
	}
	return rec, nil
}
