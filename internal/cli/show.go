package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"smogdash/internal/config"
	smog "smogdash/internal/modules/smog"
	"smogdash/internal/modules/smog/scheduler"
	"smogdash/internal/modules/smog/state"
	"smogdash/internal/modules/smog/views"
)

const (
	outputText = "text"
	outputJSON = "json"
)

// ErrStationUnavailable is returned by Show after printing the error layout.
var ErrStationUnavailable = errors.New("station data unavailable")

func validateOutput(output string) error {
	switch output {
	case outputText, outputJSON:
		return nil
	default:
		return fmt.Errorf("invalid --output %q (allowed: text, json)", output)
	}
}

// Show runs a single refresh and prints the resulting state to w. The
// NotFound layout is a normal result; the Error layout returns
// ErrStationUnavailable after it has been printed.
func Show(ctx context.Context, w io.Writer, cfg config.Config, output string, logger *slog.Logger) error {
	if err := validateOutput(output); err != nil {
		return err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := views.LoadTemplates(); err != nil {
		return err
	}

	f, err := smog.NewFetcher(cfg, logger)
	if err != nil {
		return err
	}
	store := state.NewStore(nil)
	scheduler.New(f, store, scheduler.WithLogger(logger)).Refresh(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}

	vs := store.Current()
	switch output {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(views.NewStationDocument(vs)); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
	default:
		if err := views.RenderText(w, views.NewStationView(vs)); err != nil {
			return fmt.Errorf("write text: %w", err)
		}
	}

	if vs.Kind == state.KindError {
		return ErrStationUnavailable
	}
	return nil
}
