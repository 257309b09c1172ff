package views

import (
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"smogdash/internal/modules/smog/state"
	"smogdash/internal/modules/smog/types"
)

// StationView is the view model shared by the HTML and text renderers.
// Metric fields are preformatted so templates stay logic free.
type StationView struct {
	Kind      string
	PostCode  string
	UpdatedAt time.Time

	City   string
	Street string
	School string

	Temperature string
	Humidity    string
	Pressure    string
	PM10        string
	PM25        string
	Timestamp   string
}

func (v StationView) IsLoading() bool  { return v.Kind == state.KindLoading.String() }
func (v StationView) IsLoaded() bool   { return v.Kind == state.KindLoaded.String() }
func (v StationView) IsNotFound() bool { return v.Kind == state.KindNotFound.String() }
func (v StationView) IsError() bool    { return v.Kind == state.KindError.String() }

// NewStationView maps a ViewState onto exactly one layout. The error cause
// is never copied into the view.
func NewStationView(vs state.ViewState) StationView {
	v := StationView{
		Kind:      vs.Kind.String(),
		PostCode:  types.TargetPostCode,
		UpdatedAt: vs.UpdatedAt,
	}
	if vs.Kind != state.KindLoaded || vs.Record == nil {
		if vs.Kind == state.KindLoaded {
			v.Kind = state.KindNotFound.String()
		}
		return v
	}

	rec := vs.Record
	v.City = rec.School.City
	v.Street = rec.School.Street
	v.School = rec.School.Name
	v.Temperature = FormatTemperature(rec.Data.TemperatureAvg)
	v.Humidity = FormatHumidity(rec.Data.HumidityAvg)
	v.Pressure = FormatPressure(rec.Data.PressureAvg)
	v.PM10 = FormatParticulate(rec.Data.PM10Avg)
	v.PM25 = FormatParticulate(rec.Data.PM25Avg)
	v.Timestamp = rec.Timestamp
	return v
}

func FormatTemperature(v float64) string {
	return toFixed(v, 1) + "°C"
}

func FormatHumidity(v float64) string {
	return toFixed(v, 0) + "%"
}

func FormatPressure(v float64) string {
	return toFixed(v, 0) + " hPa"
}

func FormatParticulate(v float64) string {
	return toFixed(v, 2)
}

// toFixed formats v with the given number of decimals. An exact tie rounds
// away from zero: 54.5 becomes "55" and -2.5 becomes "-3".
func toFixed(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', decimals, 64)
	}
	if v == 0 {
		v = 0 // drop the sign of -0
	}

	const prec = 256
	scaled := new(big.Float).SetPrec(prec).SetFloat64(math.Abs(v))
	scaled.Mul(scaled, new(big.Float).SetPrec(prec).SetFloat64(math.Pow10(decimals)))
	whole, _ := scaled.Int(nil)
	frac := new(big.Float).SetPrec(prec).Sub(scaled, new(big.Float).SetPrec(prec).SetInt(whole))
	if frac.Cmp(big.NewFloat(0.5)) != 0 {
		return strconv.FormatFloat(v, 'f', decimals, 64)
	}

	digits := whole.Add(whole, big.NewInt(1)).String()
	if decimals > 0 {
		if len(digits) <= decimals {
			digits = strings.Repeat("0", decimals-len(digits)+1) + digits
		}
		digits = digits[:len(digits)-decimals] + "." + digits[len(digits)-decimals:]
	}
	if v < 0 {
		digits = "-" + digits
	}
	return digits
}
