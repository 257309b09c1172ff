package views

import (
	"time"

	"smogdash/internal/modules/smog/state"
	"smogdash/internal/modules/smog/types"
)

// User facing messages for the layouts without a station card.
const (
	MessageLoading  = "Loading weather data..."
	MessageError    = "Error loading weather data"
	MessageNotFound = "No readings for station " + types.TargetPostCode
)

// StationDocument is the JSON form of the view state served by the API and
// printed by the CLI.
type StationDocument struct {
	State     string               `json:"state"`
	Record    *types.StationRecord `json:"record,omitempty"`
	Message   string               `json:"message,omitempty"`
	UpdatedAt *time.Time           `json:"updatedAt,omitempty"`
}

func NewStationDocument(vs state.ViewState) StationDocument {
	doc := StationDocument{State: vs.Kind.String()}
	if !vs.UpdatedAt.IsZero() {
		t := vs.UpdatedAt.UTC()
		doc.UpdatedAt = &t
	}
	switch vs.Kind {
	case state.KindLoaded:
		if vs.Record == nil {
			doc.State = state.KindNotFound.String()
			doc.Message = MessageNotFound
			break
		}
		rec := *vs.Record
		doc.Record = &rec
	case state.KindNotFound:
		doc.Message = MessageNotFound
	case state.KindError:
		doc.Message = MessageError
	default:
		doc.Message = MessageLoading
	}
	return doc
}
