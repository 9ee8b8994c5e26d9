package graph

import (
	"sort"

	"github.com/google/uuid"

	"github.com/derekmerck/storytangl/pkg/tangerr"
)

// Graph is the bag of entities that backs one story. It indexes nodes by
// uid, label, tag, and kind, and maintains adjacency for edge traversal.
// Graph is owned by exactly one executor at a time (§5); it applies no
// internal locking.
type Graph struct {
	nodesByUID   map[uuid.UUID]*Node
	edgesByUID   map[uuid.UUID]*Edge
	nodesByLabel map[string][]uuid.UUID
	nodesByTag   map[string]map[uuid.UUID]bool
	nodesByKind  map[Kind]map[uuid.UUID]bool
	edgesByKind  map[Kind]map[uuid.UUID]bool
	edgesOut     map[uuid.UUID][]uuid.UUID // source uid -> edge uids
	edgesIn      map[uuid.UUID][]uuid.UUID // destination uid -> edge uids

	InitialCursorID *uuid.UUID
	Tick            uint64
	Version         uint64

	// CursorID, CursorHistory, and CallStack persist across ticks (§3
	// StackFrame/Frame: "persisted in the graph across ticks").
	CursorID      *uuid.UUID
	CursorHistory []uuid.UUID
	CallStack     []StackFrame
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		nodesByUID:   make(map[uuid.UUID]*Node),
		edgesByUID:   make(map[uuid.UUID]*Edge),
		nodesByLabel: make(map[string][]uuid.UUID),
		nodesByTag:   make(map[string]map[uuid.UUID]bool),
		nodesByKind:  make(map[Kind]map[uuid.UUID]bool),
		edgesByKind:  make(map[Kind]map[uuid.UUID]bool),
		edgesOut:     make(map[uuid.UUID][]uuid.UUID),
		edgesIn:      make(map[uuid.UUID][]uuid.UUID),
	}
}

// AddNode registers a node in all indices. It is the graph-level half of
// §4.1's add_node: the caller allocates the Node (typically via effect
// application), the Graph validates and indexes it.
func (g *Graph) AddNode(n *Node) error {
	if n == nil {
		return tangerr.New(tangerr.NotFound, "nil node")
	}
	if err := n.Validate(); err != nil {
		return tangerr.Wrap(tangerr.NotFound, n.UID.String(), err)
	}
	if _, exists := g.nodesByUID[n.UID]; exists {
		return tangerr.New(tangerr.Ambiguous, "node "+n.UID.String()+" already exists")
	}

	g.nodesByUID[n.UID] = n
	if n.Label != "" {
		g.nodesByLabel[n.Label] = append(g.nodesByLabel[n.Label], n.UID)
	}
	for tag := range n.Tags {
		g.indexTag(tag, n.UID)
	}
	g.indexKind(n.Kind, n.UID, g.nodesByKind)
	return nil
}

func (g *Graph) indexTag(tag string, uid uuid.UUID) {
	if g.nodesByTag[tag] == nil {
		g.nodesByTag[tag] = make(map[uuid.UUID]bool)
	}
	g.nodesByTag[tag][uid] = true
}

func (g *Graph) indexKind(k Kind, uid uuid.UUID, idx map[Kind]map[uuid.UUID]bool) {
	if idx[k] == nil {
		idx[k] = make(map[uuid.UUID]bool)
	}
	idx[k][uid] = true
}

// AddEdge validates both endpoints exist and belong to this graph (unless
// DestinationUID is nil for an unresolved provisionable edge), then
// updates adjacency (I1, I2, I3).
func (g *Graph) AddEdge(e *Edge) error {
	if e == nil {
		return tangerr.New(tangerr.NotFound, "nil edge")
	}
	if err := e.Validate(); err != nil {
		return tangerr.Wrap(tangerr.DanglingEndpoint, e.UID.String(), err)
	}
	if _, exists := g.nodesByUID[e.SourceUID]; !exists {
		return tangerr.New(tangerr.DanglingEndpoint, "source "+e.SourceUID.String())
	}
	if e.DestinationUID != nil {
		if _, exists := g.nodesByUID[*e.DestinationUID]; !exists {
			return tangerr.New(tangerr.DanglingEndpoint, "destination "+e.DestinationUID.String())
		}
	}
	if _, exists := g.edgesByUID[e.UID]; exists {
		return tangerr.New(tangerr.Ambiguous, "edge "+e.UID.String()+" already exists")
	}

	g.edgesByUID[e.UID] = e
	g.indexKind(e.Kind, e.UID, g.edgesByKind)
	g.edgesOut[e.SourceUID] = append(g.edgesOut[e.SourceUID], e.UID)
	if e.DestinationUID != nil {
		g.edgesIn[*e.DestinationUID] = append(g.edgesIn[*e.DestinationUID], e.UID)
	}
	return nil
}

// RemoveEdge removes an edge and recomputes adjacency from scratch for the
// affected endpoints (I5: recompute, never patch, to avoid stale tombstones).
func (g *Graph) RemoveEdge(uid uuid.UUID) error {
	e, exists := g.edgesByUID[uid]
	if !exists {
		return tangerr.New(tangerr.NotFound, uid.String())
	}
	delete(g.edgesByUID, uid)
	if g.edgesByKind[e.Kind] != nil {
		delete(g.edgesByKind[e.Kind], uid)
	}
	g.edgesOut[e.SourceUID] = recomputeAdjacency(g.edgesByUID, e.SourceUID, true)
	if e.DestinationUID != nil {
		g.edgesIn[*e.DestinationUID] = recomputeAdjacency(g.edgesByUID, *e.DestinationUID, false)
	}
	return nil
}

func recomputeAdjacency(edges map[uuid.UUID]*Edge, uid uuid.UUID, outgoing bool) []uuid.UUID {
	var result []uuid.UUID
	for euid, e := range edges {
		if outgoing && e.SourceUID == uid {
			result = append(result, euid)
		}
		if !outgoing && e.DestinationUID != nil && *e.DestinationUID == uid {
			result = append(result, euid)
		}
	}
	sortUUIDs(result)
	return result
}

func sortUUIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}

// GetNode fetches a node by uid.
func (g *Graph) GetNode(uid uuid.UUID) (*Node, error) {
	n, ok := g.nodesByUID[uid]
	if !ok {
		return nil, tangerr.New(tangerr.NotFound, uid.String())
	}
	return n, nil
}

// GetEdge fetches an edge by uid.
func (g *Graph) GetEdge(uid uuid.UUID) (*Edge, error) {
	e, ok := g.edgesByUID[uid]
	if !ok {
		return nil, tangerr.New(tangerr.NotFound, uid.String())
	}
	return e, nil
}

// GetByLabel fetches the unique node with the given label, failing with
// Ambiguous if more than one node shares it.
func (g *Graph) GetByLabel(label string) (*Node, error) {
	ids := g.nodesByLabel[label]
	switch len(ids) {
	case 0:
		return nil, tangerr.New(tangerr.NotFound, label)
	case 1:
		return g.nodesByUID[ids[0]], nil
	default:
		return nil, tangerr.New(tangerr.Ambiguous, label)
	}
}

// FindFilter narrows FindAll results. Zero-value fields are unconstrained.
type FindFilter struct {
	Kind           Kind
	SourceUID      *uuid.UUID
	DestinationUID *uuid.UUID
	Label          string
	Tag            string
}

// FindAllNodes returns nodes matching filter, deterministically ordered by
// uid.
func (g *Graph) FindAllNodes(f FindFilter) []*Node {
	var candidates map[uuid.UUID]bool
	switch {
	case f.Kind != "":
		candidates = g.nodesByKind[f.Kind]
	case f.Tag != "":
		candidates = g.nodesByTag[f.Tag]
	default:
		candidates = make(map[uuid.UUID]bool, len(g.nodesByUID))
		for uid := range g.nodesByUID {
			candidates[uid] = true
		}
	}
	var result []*Node
	for uid := range candidates {
		n := g.nodesByUID[uid]
		if f.Label != "" && n.Label != f.Label {
			continue
		}
		if f.Tag != "" && !n.HasTag(f.Tag) {
			continue
		}
		result = append(result, n)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UID.String() < result[j].UID.String() })
	return result
}

// FindAllEdges returns edges matching filter, deterministically ordered by
// uid.
func (g *Graph) FindAllEdges(f FindFilter) []*Edge {
	var candidates map[uuid.UUID]bool
	if f.Kind != "" {
		candidates = g.edgesByKind[f.Kind]
	} else {
		candidates = make(map[uuid.UUID]bool, len(g.edgesByUID))
		for uid := range g.edgesByUID {
			candidates[uid] = true
		}
	}
	var result []*Edge
	for uid := range candidates {
		e := g.edgesByUID[uid]
		if f.SourceUID != nil && e.SourceUID != *f.SourceUID {
			continue
		}
		if f.DestinationUID != nil && (e.DestinationUID == nil || *e.DestinationUID != *f.DestinationUID) {
			continue
		}
		if f.Label != "" && e.Label != f.Label {
			continue
		}
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UID.String() < result[j].UID.String() })
	return result
}

// EdgesOut returns the edges whose source is uid, optionally filtered by
// kind, deterministically ordered.
func (g *Graph) EdgesOut(uid uuid.UUID, kind Kind) []*Edge {
	ids := append([]uuid.UUID(nil), g.edgesOut[uid]...)
	sortUUIDs(ids)
	out := make([]*Edge, 0, len(ids))
	for _, euid := range ids {
		e := g.edgesByUID[euid]
		if e == nil {
			continue
		}
		if kind != "" && e.Kind != kind {
			continue
		}
		out = append(out, e)
	}
	return out
}

// EdgesIn returns the edges whose destination is uid, optionally filtered
// by kind, deterministically ordered.
func (g *Graph) EdgesIn(uid uuid.UUID, kind Kind) []*Edge {
	ids := append([]uuid.UUID(nil), g.edgesIn[uid]...)
	sortUUIDs(ids)
	in := make([]*Edge, 0, len(ids))
	for _, euid := range ids {
		e := g.edgesByUID[euid]
		if e == nil {
			continue
		}
		if kind != "" && e.Kind != kind {
			continue
		}
		in = append(in, e)
	}
	return in
}

// Parent returns the node reached by the unique inbound Child edge, i.e.
// the structural parent of uid, or ok=false at the root.
func (g *Graph) Parent(uid uuid.UUID) (*Node, bool) {
	in := g.EdgesIn(uid, KindChild)
	if len(in) == 0 {
		return nil, false
	}
	parent, err := g.GetNode(in[0].SourceUID)
	if err != nil {
		return nil, false
	}
	return parent, true
}

// Ancestors returns the ancestor chain of uid, nearest first, computed via
// Child edges until the root (§4.2 Scoped dispatch, §4.3 ns resolution).
func (g *Graph) Ancestors(uid uuid.UUID) []*Node {
	var chain []*Node
	seen := map[uuid.UUID]bool{uid: true}
	cur := uid
	for {
		parent, ok := g.Parent(cur)
		if !ok || seen[parent.UID] {
			break
		}
		chain = append(chain, parent)
		seen[parent.UID] = true
		cur = parent.UID
	}
	return chain
}

// Clone deep-copies the graph. Used by the Effect Buffer to build a
// preview overlay without mutating the base (§4.5, §9 "copy-on-write
// overlay keyed by uid" — this is the simple deep-clone baseline the
// overlay specializes when effect sets are small).
func (g *Graph) Clone() *Graph {
	c := New()
	c.InitialCursorID = g.InitialCursorID
	c.Tick = g.Tick
	c.Version = g.Version
	c.CursorID = g.CursorID
	c.CursorHistory = append([]uuid.UUID(nil), g.CursorHistory...)
	c.CallStack = append([]StackFrame(nil), g.CallStack...)

	for uid, n := range g.nodesByUID {
		cn := *n
		cn.Tags = make(map[string]bool, len(n.Tags))
		for k, v := range n.Tags {
			cn.Tags[k] = v
		}
		cn.Locals = make(map[string]Value, len(n.Locals))
		for k, v := range n.Locals {
			cn.Locals[k] = v
		}
		c.nodesByUID[uid] = &cn
	}
	for label, ids := range g.nodesByLabel {
		c.nodesByLabel[label] = append([]uuid.UUID(nil), ids...)
	}
	for tag, set := range g.nodesByTag {
		c.nodesByTag[tag] = make(map[uuid.UUID]bool, len(set))
		for uid := range set {
			c.nodesByTag[tag][uid] = true
		}
	}
	for kind, set := range g.nodesByKind {
		c.nodesByKind[kind] = make(map[uuid.UUID]bool, len(set))
		for uid := range set {
			c.nodesByKind[kind][uid] = true
		}
	}
	for uid, e := range g.edgesByUID {
		ce := *e
		if e.DestinationUID != nil {
			dst := *e.DestinationUID
			ce.DestinationUID = &dst
		}
		if e.Requirement != nil {
			req := *e.Requirement
			ce.Requirement = &req
		}
		c.edgesByUID[uid] = &ce
	}
	for kind, set := range g.edgesByKind {
		c.edgesByKind[kind] = make(map[uuid.UUID]bool, len(set))
		for uid := range set {
			c.edgesByKind[kind][uid] = true
		}
	}
	for uid, ids := range g.edgesOut {
		c.edgesOut[uid] = append([]uuid.UUID(nil), ids...)
	}
	for uid, ids := range g.edgesIn {
		c.edgesIn[uid] = append([]uuid.UUID(nil), ids...)
	}
	return c
}

// CloneNode creates a detached copy of n with a fresh uid, for use by the
// Cloning provisioner. The clone is not added to the graph.
func CloneNode(n *Node) *Node {
	c := &Node{
		UID:     NewUID(),
		Kind:    n.Kind,
		Label:   n.Label,
		Content: n.Content,
		Tags:    make(map[string]bool, len(n.Tags)),
		Locals:  make(map[string]Value, len(n.Locals)),
	}
	for k, v := range n.Tags {
		c.Tags[k] = v
	}
	for k, v := range n.Locals {
		c.Locals[k] = v
	}
	return c
}
