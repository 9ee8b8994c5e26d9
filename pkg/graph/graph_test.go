package graph

import (
	"testing"

	"github.com/google/uuid"
	"pgregory.net/rapid"
)

// Helper to add a node and fail the test on error.
func mustAddNode(t *testing.T, g *Graph, n *Node) {
	t.Helper()
	if err := g.AddNode(n); err != nil {
		t.Fatalf("failed to add node %s: %v", n.UID, err)
	}
}

// Helper to add an edge and fail the test on error.
func mustAddEdge(t *testing.T, g *Graph, e *Edge) {
	t.Helper()
	if err := g.AddEdge(e); err != nil {
		t.Fatalf("failed to add edge %s: %v", e.UID, err)
	}
}

func TestNewGraph(t *testing.T) {
	g := New()
	if g.Version != 0 || g.Tick != 0 {
		t.Errorf("expected fresh graph at version 0 tick 0, got version=%d tick=%d", g.Version, g.Tick)
	}
}

func TestAddNodeIndexesByLabelTagKind(t *testing.T) {
	g := New()
	n := NewNode(KindBlock, "intro")
	n.Tags["start"] = true
	mustAddNode(t, g, n)

	if got, err := g.GetByLabel("intro"); err != nil || got.UID != n.UID {
		t.Errorf("GetByLabel(intro) = %v, %v; want %v, nil", got, err, n.UID)
	}
	nodes := g.FindAllNodes(FindFilter{Tag: "start"})
	if len(nodes) != 1 || nodes[0].UID != n.UID {
		t.Errorf("FindAllNodes(tag=start) = %v; want [%v]", nodes, n.UID)
	}
	nodes = g.FindAllNodes(FindFilter{Kind: KindBlock})
	if len(nodes) != 1 || nodes[0].UID != n.UID {
		t.Errorf("FindAllNodes(kind=Block) = %v; want [%v]", nodes, n.UID)
	}
}

func TestAddNodeDuplicateUID(t *testing.T) {
	g := New()
	n := NewNode(KindBlock, "a")
	mustAddNode(t, g, n)
	if err := g.AddNode(n); err == nil {
		t.Error("expected error adding duplicate uid, got nil")
	}
}

func TestGetByLabelAmbiguous(t *testing.T) {
	g := New()
	mustAddNode(t, g, NewNode(KindBlock, "dup"))
	mustAddNode(t, g, NewNode(KindBlock, "dup"))
	if _, err := g.GetByLabel("dup"); err == nil {
		t.Error("expected Ambiguous error, got nil")
	}
}

func TestAddEdgeRequiresExistingEndpoints(t *testing.T) {
	g := New()
	src := NewNode(KindBlock, "src")
	mustAddNode(t, g, src)

	missing := uuid.New()
	e := NewEdge(KindChoice, src.UID, &missing)
	if err := g.AddEdge(e); err == nil {
		t.Error("expected DanglingEndpoint error for missing destination, got nil")
	}
}

func TestAddEdgeAllowsNullDestinationForDependency(t *testing.T) {
	g := New()
	src := NewNode(KindBlock, "src")
	mustAddNode(t, g, src)

	e := NewEdge(KindDependency, src.UID, nil)
	mustAddEdge(t, g, e)

	out := g.EdgesOut(src.UID, KindDependency)
	if len(out) != 1 || out[0].UID != e.UID {
		t.Errorf("EdgesOut(dependency) = %v; want [%v]", out, e.UID)
	}
}

func TestAddEdgeRejectsNullDestinationForChoice(t *testing.T) {
	g := New()
	src := NewNode(KindBlock, "src")
	mustAddNode(t, g, src)

	e := NewEdge(KindChoice, src.UID, nil)
	if err := g.AddEdge(e); err == nil {
		t.Error("expected validation error for Choice edge with nil destination, got nil")
	}
}

func TestRemoveEdgeRecomputesAdjacency(t *testing.T) {
	g := New()
	a := NewNode(KindBlock, "a")
	b := NewNode(KindBlock, "b")
	mustAddNode(t, g, a)
	mustAddNode(t, g, b)
	e := NewEdge(KindChoice, a.UID, &b.UID)
	mustAddEdge(t, g, e)

	if err := g.RemoveEdge(e.UID); err != nil {
		t.Fatalf("RemoveEdge: %v", err)
	}
	if out := g.EdgesOut(a.UID, ""); len(out) != 0 {
		t.Errorf("EdgesOut after removal = %v; want empty", out)
	}
	if in := g.EdgesIn(b.UID, ""); len(in) != 0 {
		t.Errorf("EdgesIn after removal = %v; want empty", in)
	}
}

func TestAncestorsFollowsChildEdges(t *testing.T) {
	g := New()
	root := NewNode(KindScene, "root")
	child := NewNode(KindBlock, "child")
	grandchild := NewNode(KindBlock, "grandchild")
	mustAddNode(t, g, root)
	mustAddNode(t, g, child)
	mustAddNode(t, g, grandchild)
	mustAddEdge(t, g, NewEdge(KindChild, root.UID, &child.UID))
	mustAddEdge(t, g, NewEdge(KindChild, child.UID, &grandchild.UID))

	chain := g.Ancestors(grandchild.UID)
	if len(chain) != 2 || chain[0].UID != child.UID || chain[1].UID != root.UID {
		t.Errorf("Ancestors(grandchild) = %v; want [child, root]", chain)
	}
}

// TestFindAllDeterministicOrder checks the universal invariant that results
// from FindAll* are ordered by uid regardless of insertion order (§4.1).
func TestFindAllDeterministicOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g := New()
		n := rapid.IntRange(1, 12).Draw(t, "n")
		for i := 0; i < n; i++ {
			mustAddNode(t, g, NewNode(KindBlock, ""))
		}
		got := g.FindAllNodes(FindFilter{Kind: KindBlock})
		for i := 1; i < len(got); i++ {
			if got[i-1].UID.String() >= got[i].UID.String() {
				t.Fatalf("FindAllNodes not sorted by uid at index %d: %v", i, got)
			}
		}
	})
}
