package telemetry

import (
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// New builds a zerolog.Logger writing to out at the given level ("debug",
// "info", "warn", "error"; unrecognized or empty defaults to "info").
func New(out io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// PhaseEntered logs a phase transition at debug level, mirroring
// smilemakc-mbflow's chained Err/Msg call style.
func PhaseEntered(l *zerolog.Logger, phase string, cursor uuid.UUID) {
	if l == nil {
		return
	}
	l.Debug().Str("phase", phase).Str("uid", cursor.String()).Msg("phase entered")
}

// EngineFailed logs a tick failure at error level with the {kind, phase,
// uid} fields mirroring the execution API's error envelope (§7).
func EngineFailed(l *zerolog.Logger, phase string, cursor uuid.UUID, kind string, err error) {
	if l == nil {
		return
	}
	l.Error().Str("phase", phase).Str("uid", cursor.String()).Str("kind", kind).Err(err).Msg("tick failed")
}

// CommitSucceeded logs a successful patch commit at debug level.
func CommitSucceeded(l *zerolog.Logger, graphID string, version uint64) {
	if l == nil {
		return
	}
	l.Debug().Str("graph_id", graphID).Uint64("version", version).Msg("patch committed")
}

// CommitFailed logs a failed commit (typically VersionConflict) at error
// level.
func CommitFailed(l *zerolog.Logger, graphID string, kind string, err error) {
	if l == nil {
		return
	}
	l.Error().Str("graph_id", graphID).Str("kind", kind).Err(err).Msg("patch commit failed")
}

// ProvisioningDecision logs a single provisioner's accept/decline outcome
// at debug level.
func ProvisioningDecision(l *zerolog.Logger, provisioner string, requirement string, accepted bool) {
	if l == nil {
		return
	}
	l.Debug().Str("provisioner", provisioner).Str("requirement", requirement).Bool("accepted", accepted).Msg("provisioning decision")
}
