package provisioning

import (
	"github.com/google/uuid"

	"github.com/derekmerck/storytangl/pkg/graph"
	"github.com/derekmerck/storytangl/pkg/vmctx"
)

// Cost is the relative expense of a ProvisionOffer (§4.4).
type Cost string

const (
	CostCheap         Cost = "CHEAP"
	CostNormal        Cost = "NORMAL"
	CostHeavyDirect   Cost = "HEAVY_DIRECT"
	CostHeavyIndirect Cost = "HEAVY_INDIRECT"
)

var costRank = map[Cost]int{
	CostCheap:         0,
	CostNormal:        1,
	CostHeavyDirect:   2,
	CostHeavyIndirect: 3,
}

// ProvisionOffer is a candidate way to satisfy a Requirement. Accept
// constructs the provider only when invoked; enumerating offers is pure.
type ProvisionOffer struct {
	ProvisionerID     string
	RequirementID     uuid.UUID // the owning edge's uid
	Cost              Cost
	Priority          int
	SelectionCriteria map[string]any
	Operation         graph.Policy
	Accept            func(ctx *vmctx.Context) (*graph.Node, error)
}

// Provisioner is a source of offers for a given requirement.
type Provisioner interface {
	ID() string
	GetOffers(edge *graph.Edge, ctx *vmctx.Context) []ProvisionOffer
}

// BuildReceipt records the outcome of attempting to satisfy one
// requirement during PLANNING (§4.4).
type BuildReceipt struct {
	ProvisionerID string
	RequirementID uuid.UUID
	ProviderID    *uuid.UUID
	Operation     graph.Policy
	Accepted      bool
	HardReq       bool
	Reason        string
}
