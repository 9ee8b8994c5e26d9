package provisioning

import (
	"testing"

	"github.com/derekmerck/storytangl/pkg/graph"
	"github.com/derekmerck/storytangl/pkg/vmctx"
)

func TestPlanBindsCheapestAcceptingOffer(t *testing.T) {
	g := graph.New()
	cursor := graph.NewNode(graph.KindBlock, "cursor")
	existing := graph.NewNode(graph.KindActor, "guard")
	if err := g.AddNode(cursor); err != nil {
		t.Fatal(err)
	}
	if err := g.AddNode(existing); err != nil {
		t.Fatal(err)
	}

	dep := graph.NewEdge(graph.KindDependency, cursor.UID, nil)
	dep.Requirement = &graph.Requirement{
		Identifier:      "guard",
		Policy:          graph.PolicyAny,
		HardRequirement: true,
	}
	if err := g.AddEdge(dep); err != nil {
		t.Fatal(err)
	}

	ctx := vmctx.New(g, cursor.UID, 1)
	receipts, err := Plan(ctx, cursor, []Provisioner{GraphProvisioner{}, CloningProvisioner{}})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(receipts) != 1 || !receipts[0].Accepted {
		t.Fatalf("receipts = %+v, want one accepted receipt", receipts)
	}
	if receipts[0].ProvisionerID != "graph" {
		t.Errorf("ProvisionerID = %q, want graph (cheapest)", receipts[0].ProvisionerID)
	}
	if *receipts[0].ProviderID != existing.UID {
		t.Errorf("ProviderID = %s, want %s", receipts[0].ProviderID, existing.UID)
	}
}

func TestPlanMarksUnresolvableHardRequirement(t *testing.T) {
	g := graph.New()
	cursor := graph.NewNode(graph.KindBlock, "cursor")
	if err := g.AddNode(cursor); err != nil {
		t.Fatal(err)
	}
	dep := graph.NewEdge(graph.KindDependency, cursor.UID, nil)
	dep.Requirement = &graph.Requirement{Identifier: "nonexistent", HardRequirement: true}
	if err := g.AddEdge(dep); err != nil {
		t.Fatal(err)
	}

	ctx := vmctx.New(g, cursor.UID, 1)
	receipts, err := Plan(ctx, cursor, []Provisioner{GraphProvisioner{}})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(receipts) != 1 || receipts[0].Accepted || receipts[0].Reason != "no_offers" {
		t.Fatalf("receipts = %+v, want one unaccepted no_offers receipt", receipts)
	}
}

func TestPlanWaivesSoftRequirement(t *testing.T) {
	g := graph.New()
	cursor := graph.NewNode(graph.KindBlock, "cursor")
	if err := g.AddNode(cursor); err != nil {
		t.Fatal(err)
	}
	dep := graph.NewEdge(graph.KindDependency, cursor.UID, nil)
	dep.Requirement = &graph.Requirement{Identifier: "nonexistent", HardRequirement: false}
	if err := g.AddEdge(dep); err != nil {
		t.Fatal(err)
	}

	ctx := vmctx.New(g, cursor.UID, 1)
	receipts, err := Plan(ctx, cursor, []Provisioner{GraphProvisioner{}})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(receipts) != 1 || receipts[0].Reason != "waived_soft" {
		t.Fatalf("receipts = %+v, want waived_soft", receipts)
	}
}
