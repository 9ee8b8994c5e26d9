package api

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/derekmerck/storytangl/pkg/effect"
	"github.com/derekmerck/storytangl/pkg/graph"
	"github.com/derekmerck/storytangl/pkg/journal"
	"github.com/derekmerck/storytangl/pkg/storage"
	"github.com/derekmerck/storytangl/pkg/tangerr"
	"github.com/derekmerck/storytangl/pkg/template"
	"github.com/derekmerck/storytangl/pkg/vm"
	"github.com/derekmerck/storytangl/pkg/world"
)

// WorldLoader resolves a world id to the compiled graph a new story starts
// from; the api package does not know how worlds are laid out on disk.
type WorldLoader func(worldID string) (*graph.Graph, error)

// Server holds the engine and repository a call to Execute dispatches
// against, plus the single in-memory session per loaded graph id (the
// Graph's single-executor-owner invariant of §5).
type Server struct {
	Engine *vm.Engine
	Repo   storage.Repository
	Worlds WorldLoader

	mu       sync.Mutex
	sessions map[string]*graph.Graph
}

// NewServer constructs a Server over engine/repo. worlds resolves
// create_story's world_id argument; it may be nil if create_story is
// never called.
func NewServer(engine *vm.Engine, repo storage.Repository, worlds WorldLoader) *Server {
	return &Server{Engine: engine, Repo: repo, Worlds: worlds, sessions: map[string]*graph.Graph{}}
}

// Execute dispatches one of the §6 execution API operations. Callers
// supply a user/session identifier separately, outside this call, per
// §6 "Execution API".
func (s *Server) Execute(ctx context.Context, graphID string, operation string, args map[string]any) (any, error) {
	switch operation {
	case "create_story":
		worldID, _ := args["world_id"].(string)
		return s.createStory(ctx, worldID)
	case "load_story":
		return s.loadStory(ctx, graphID)
	case "step_story":
		var choiceID *uuid.UUID
		if raw, ok := args["choice_id"].(string); ok && raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, tangerr.Wrap(tangerr.NotFound, "choice_id", err)
			}
			choiceID = &id
		}
		return s.stepStory(ctx, graphID, choiceID)
	case "get_status":
		return s.getStatus(graphID)
	case "get_journal_entry":
		index, _ := args["index"].(int)
		return s.getJournalEntry(ctx, graphID, uint64(index))
	default:
		return nil, tangerr.New(tangerr.UnknownOperation, operation)
	}
}

// StatusResult is get_status's response shape.
type StatusResult struct {
	GraphID   string `json:"graph_id"`
	CursorID  string `json:"cursor_id,omitempty"`
	Label     string `json:"label,omitempty"`
	Version   uint64 `json:"version"`
	Tick      uint64 `json:"tick"`
}

// StepResult is step_story's response shape.
type StepResult struct {
	Journal []journal.Fragment `json:"journal"`
	Version uint64             `json:"version"`
}

func (s *Server) createStory(ctx context.Context, worldID string) (*StatusResult, error) {
	if s.Worlds == nil {
		return nil, tangerr.New(tangerr.NotFound, "no world loader configured")
	}
	g, err := s.Worlds(worldID)
	if err != nil {
		return nil, err
	}

	graphID := uuid.New().String()
	data, err := storage.MarshalSnapshotCompact(g)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.SaveSnapshot(ctx, graphID, g.Version, data); err != nil {
		return nil, tangerr.Wrap(tangerr.NotFound, "persistence unavailable", err)
	}

	s.mu.Lock()
	s.sessions[graphID] = g
	s.mu.Unlock()

	return s.statusOf(graphID, g), nil
}

func (s *Server) loadStory(ctx context.Context, graphID string) (*StatusResult, error) {
	s.mu.Lock()
	if g, ok := s.sessions[graphID]; ok {
		s.mu.Unlock()
		return s.statusOf(graphID, g), nil
	}
	s.mu.Unlock()

	_, data, ok, err := s.Repo.LoadLatestSnapshot(ctx, graphID)
	if err != nil {
		return nil, tangerr.Wrap(tangerr.NotFound, "persistence unavailable", err)
	}
	if !ok {
		return nil, tangerr.New(tangerr.NotFound, graphID)
	}
	g, err := storage.UnmarshalSnapshot(data)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[graphID] = g
	s.mu.Unlock()

	return s.statusOf(graphID, g), nil
}

func (s *Server) stepStory(ctx context.Context, graphID string, choiceID *uuid.UUID) (*StepResult, error) {
	s.mu.Lock()
	g, ok := s.sessions[graphID]
	s.mu.Unlock()
	if !ok {
		return nil, tangerr.New(tangerr.NotFound, graphID)
	}

	baseVersion := g.Version
	patch, frags, err := s.Engine.Step(ctx, g, choiceID, deriveRngSeed(graphID, g.Tick))
	if err != nil {
		return nil, err
	}
	// Step already applied patch to g via its internal Effect Buffer
	// commit (§4.5); persisting here only needs to append the record and
	// checkpoint the now-advanced state.
	if err := s.appendAndSnapshot(ctx, graphID, g, patch, baseVersion); err != nil {
		return nil, err
	}

	return &StepResult{Journal: frags, Version: g.Version}, nil
}

// appendAndSnapshot records patch in the event log at baseVersion and, per
// §4.5's "repository policy" for when to checkpoint, saves a fresh full
// snapshot on every commit (the simplest correct policy; a production
// repository could instead checkpoint every N versions).
func (s *Server) appendAndSnapshot(ctx context.Context, graphID string, g *graph.Graph, patch *effect.Patch, baseVersion uint64) error {
	if _, err := s.Repo.AppendPatch(ctx, graphID, baseVersion, patch, patch.IdempotencyKey); err != nil {
		return err
	}
	data, err := storage.MarshalSnapshotCompact(g)
	if err != nil {
		return err
	}
	return s.Repo.SaveSnapshot(ctx, graphID, g.Version, data)
}

func (s *Server) getStatus(graphID string) (*StatusResult, error) {
	s.mu.Lock()
	g, ok := s.sessions[graphID]
	s.mu.Unlock()
	if !ok {
		return nil, tangerr.New(tangerr.NotFound, graphID)
	}
	return s.statusOf(graphID, g), nil
}

func (s *Server) getJournalEntry(ctx context.Context, graphID string, index uint64) (*effect.Patch, error) {
	patch, ok, err := s.Repo.LoadPatch(ctx, graphID, index)
	if err != nil {
		return nil, tangerr.Wrap(tangerr.NotFound, "persistence unavailable", err)
	}
	if !ok {
		return nil, tangerr.New(tangerr.NotFound, fmt.Sprintf("%s@%d", graphID, index))
	}
	return patch, nil
}

func (s *Server) statusOf(graphID string, g *graph.Graph) *StatusResult {
	status := &StatusResult{GraphID: graphID, Version: g.Version, Tick: g.Tick}
	if g.CursorID != nil {
		status.CursorID = g.CursorID.String()
		if n, err := g.GetNode(*g.CursorID); err == nil {
			status.Label = n.Label
		}
	}
	return status
}

// deriveRngSeed derives a tick's rng seed from the graph id and tick
// number so the same (graph, tick) pair always reproduces the same roll
// (§8 Determinism), generalizing pkg/effect.Buffer's seed derivation to
// the API boundary where callers don't supply a seed directly.
func deriveRngSeed(graphID string, tick uint64) uint64 {
	h := uint64(14695981039346656037)
	for i := 0; i < len(graphID); i++ {
		h ^= uint64(graphID[i])
		h *= 1099511628211
	}
	h ^= tick
	h *= 1099511628211
	return h
}

// CompileWorldBundle is a convenience WorldLoader backed by pkg/world,
// loading and compiling the bundle at dir, then rejecting the result if
// its structural validation reports a hard finding (a missing initial
// cursor, the only hard finding Validate records), returned as a Softlock
// error.
func CompileWorldBundle(dir string) (*graph.Graph, error) {
	bundle, err := world.LoadBundle(dir)
	if err != nil {
		return nil, err
	}
	g, templates, err := world.CompileBundle(bundle)
	if err != nil {
		return nil, err
	}

	reg := template.NewRegistry()
	for _, t := range templates {
		reg.Register(t)
	}
	report := world.Validate(g, reg)
	if !report.Passed {
		return nil, tangerr.New(tangerr.Softlock, fmt.Sprintf("%s: %d hard finding(s)", dir, len(report.Findings)))
	}
	return g, nil
}
