package telemetry

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestPhaseEnteredWritesDebugRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "debug")

	PhaseEntered(&logger, "INIT", uuid.Nil)

	out := buf.String()
	if !strings.Contains(out, `"phase":"INIT"`) {
		t.Errorf("output = %q, want phase field", out)
	}
}

func TestEngineFailedWritesErrorRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info")

	EngineFailed(&logger, "POSTREQS", uuid.Nil, "UnresolvableHard", errTest{})

	out := buf.String()
	if !strings.Contains(out, `"kind":"UnresolvableHard"`) {
		t.Errorf("output = %q, want kind field", out)
	}
}

func TestNilLoggerIsNoop(t *testing.T) {
	PhaseEntered(nil, "INIT", uuid.Nil)
	EngineFailed(nil, "INIT", uuid.Nil, "Internal", errTest{})
	CommitSucceeded(nil, "g1", 1)
	CommitFailed(nil, "g1", "VersionConflict", errTest{})
	ProvisioningDecision(nil, "graph", "req", true)
}

type errTest struct{}

func (errTest) Error() string { return "boom" }
