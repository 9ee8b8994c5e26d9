package vm

// Phase is one of the seven ordered stages of a tick (§4.6). Each phase's
// string value is also its dispatch task name.
type Phase string

const (
	PhaseInit        Phase = "INIT"
	PhasePlanning    Phase = "PLANNING"
	PhasePrereqs     Phase = "PREREQS"
	PhaseEffects     Phase = "EFFECTS"
	PhaseJournal     Phase = "JOURNAL"
	PhaseBookkeeping Phase = "BOOKKEEPING"
	PhasePostreqs    Phase = "POSTREQS"
)

// Phases lists every phase in execution order.
var Phases = []Phase{
	PhaseInit, PhasePlanning, PhasePrereqs, PhaseEffects,
	PhaseJournal, PhaseBookkeeping, PhasePostreqs,
}
