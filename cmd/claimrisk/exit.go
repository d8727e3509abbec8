package main

import (
	"errors"
	"os"

	"github.com/rs/zerolog"

	"github.com/gyeh/claimrisk/internal/artifact"
	"github.com/gyeh/claimrisk/internal/claims"
	"github.com/gyeh/claimrisk/internal/edi"
	"github.com/gyeh/claimrisk/internal/exitcode"
	"github.com/gyeh/claimrisk/internal/pipeline"
)

// exitCodeFor maps a pipeline failure to the process exit code.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, edi.ErrNotImplemented):
		return exitcode.NotImplemented
	case errors.Is(err, claims.ErrMissingDenialColumn), errors.Is(err, artifact.ErrSchemaVersion):
		return exitcode.ValidationError
	}

	var pe *pipeline.PhaseError
	if errors.As(err, &pe) {
		switch pe.Phase {
		case pipeline.PhaseConfig, pipeline.PhaseLabel:
			return exitcode.ValidationError
		case pipeline.PhaseLoad, pipeline.PhaseWrite, pipeline.PhaseSave, pipeline.PhaseSink:
			return exitcode.IOError
		}
	}
	return exitcode.ModelError
}

func fail(log zerolog.Logger, err error, msg string) {
	logFailure(log, err, msg)
	os.Exit(exitCodeFor(err))
}

// logFailure writes one error event, tagged with the phase when there is one.
func logFailure(log zerolog.Logger, err error, msg string) {
	ev := log.Error()
	var pe *pipeline.PhaseError
	if errors.As(err, &pe) {
		ev = ev.Err(pe.Err).Str("phase", pe.Phase)
	} else {
		ev = ev.Err(err)
	}
	ev.Msg(msg)
}
