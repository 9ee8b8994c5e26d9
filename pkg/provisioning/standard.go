package provisioning

import (
	"github.com/derekmerck/storytangl/pkg/graph"
	"github.com/derekmerck/storytangl/pkg/vmctx"
)

// matches reports whether node satisfies a requirement's criteria. Criteria
// recognizes "kind" (graph.Kind), "label" (string), and "tags" ([]string,
// all must be present) keys; an Identifier on the requirement itself is
// treated as a label match when no explicit "label" criterion is given.
func matches(n *graph.Node, req *graph.Requirement) bool {
	if k, ok := req.Criteria["kind"].(graph.Kind); ok && n.Kind != k {
		return false
	}
	label := req.Identifier
	if l, ok := req.Criteria["label"].(string); ok {
		label = l
	}
	if label != "" && n.Label != label {
		return false
	}
	if tags, ok := req.Criteria["tags"].([]string); ok {
		for _, t := range tags {
			if !n.HasTag(t) {
				return false
			}
		}
	}
	return true
}

// candidates finds every node in the buffer's preview graph matching req.
func candidates(ctx *vmctx.Context, req *graph.Requirement) []*graph.Node {
	preview, err := ctx.Effects.Preview()
	if err != nil {
		return nil
	}
	var out []*graph.Node
	for _, n := range preview.FindAllNodes(graph.FindFilter{}) {
		if matches(n, req) {
			out = append(out, n)
		}
	}
	return out
}

// GraphProvisioner offers existing nodes already in the graph matching
// criteria (§4.4, cost CHEAP).
type GraphProvisioner struct{}

func (GraphProvisioner) ID() string { return "graph" }

func (p GraphProvisioner) GetOffers(edge *graph.Edge, ctx *vmctx.Context) []ProvisionOffer {
	var offers []ProvisionOffer
	for _, n := range candidates(ctx, edge.Requirement) {
		n := n
		offers = append(offers, ProvisionOffer{
			ProvisionerID: p.ID(), RequirementID: edge.UID,
			Cost: CostCheap, Priority: 50, Operation: graph.PolicyAny,
			Accept: func(*vmctx.Context) (*graph.Node, error) { return n, nil },
		})
	}
	return offers
}

// CloningProvisioner clones a matching node and mutates the clone to suit
// the requirement's criteria (§4.4, cost NORMAL).
type CloningProvisioner struct{}

func (CloningProvisioner) ID() string { return "cloning" }

func (p CloningProvisioner) GetOffers(edge *graph.Edge, ctx *vmctx.Context) []ProvisionOffer {
	var offers []ProvisionOffer
	for _, src := range candidates(ctx, edge.Requirement) {
		src := src
		offers = append(offers, ProvisionOffer{
			ProvisionerID: p.ID(), RequirementID: edge.UID,
			Cost: CostNormal, Priority: 40, Operation: graph.PolicyClone,
			Accept: func(ctx *vmctx.Context) (*graph.Node, error) {
				newUID := ctx.Effects.CreateNode(src.Kind, src.Label, src.Content)
				for k, v := range src.Locals {
					ctx.Effects.SetAttr(newUID, "locals."+k, v)
				}
				return &graph.Node{UID: newUID, Kind: src.Kind, Label: src.Label, Content: src.Content}, nil
			},
		})
	}
	return offers
}

// UpdatingProvisioner updates attributes on an existing matching node in
// place rather than creating a new one (§4.4, cost NORMAL).
type UpdatingProvisioner struct{}

func (UpdatingProvisioner) ID() string { return "updating" }

func (p UpdatingProvisioner) GetOffers(edge *graph.Edge, ctx *vmctx.Context) []ProvisionOffer {
	var offers []ProvisionOffer
	for _, n := range candidates(ctx, edge.Requirement) {
		n := n
		offers = append(offers, ProvisionOffer{
			ProvisionerID: p.ID(), RequirementID: edge.UID,
			Cost: CostNormal, Priority: 45, Operation: graph.PolicyUpdate,
			Accept: func(ctx *vmctx.Context) (*graph.Node, error) {
				for k, v := range edge.Requirement.Criteria {
					if k == "kind" || k == "label" || k == "tags" {
						continue
					}
					ctx.Effects.SetAttr(n.UID, "locals."+k, v)
				}
				return n, nil
			},
		})
	}
	return offers
}

// TemplateLookup resolves a template reference against the cursor's
// ancestry, returning the materialized node's shape (pkg/template
// implements the actual scope-ranked resolution; TemplateProvisioner only
// needs its result).
type TemplateLookup func(ref string, ancestry []*graph.Node) (kind graph.Kind, label, content string, ok bool, err error)

// TemplateProvisioner materializes a node from the template registry
// (§4.4, cost HEAVY_DIRECT).
type TemplateProvisioner struct {
	Lookup   TemplateLookup
	Ancestry func(ctx *vmctx.Context, edge *graph.Edge) []*graph.Node
}

func (TemplateProvisioner) ID() string { return "template" }

func (p TemplateProvisioner) GetOffers(edge *graph.Edge, ctx *vmctx.Context) []ProvisionOffer {
	if p.Lookup == nil || edge.Requirement.TemplateRef == "" {
		return nil
	}
	return []ProvisionOffer{{
		ProvisionerID: p.ID(), RequirementID: edge.UID,
		Cost: CostHeavyDirect, Priority: 30, Operation: graph.PolicyCreateTemplate,
		Accept: func(ctx *vmctx.Context) (*graph.Node, error) {
			var ancestry []*graph.Node
			if p.Ancestry != nil {
				ancestry = p.Ancestry(ctx, edge)
			}
			kind, label, content, ok, err := p.Lookup(edge.Requirement.TemplateRef, ancestry)
			if err != nil || !ok {
				return nil, err
			}
			newUID := ctx.Effects.CreateNode(kind, label, content)
			return &graph.Node{UID: newUID, Kind: kind, Label: label, Content: content}, nil
		},
	}}
}

// AssetLookup resolves an asset bundle reference to a node's shape.
type AssetLookup func(assetRef string) (kind graph.Kind, label, content string, ok bool, err error)

// AssetProvisioner materializes a node from an asset bundle bound by an
// explicit asset_ref (§4.4, cost HEAVY_INDIRECT).
type AssetProvisioner struct {
	Lookup AssetLookup
}

func (AssetProvisioner) ID() string { return "asset" }

func (p AssetProvisioner) GetOffers(edge *graph.Edge, ctx *vmctx.Context) []ProvisionOffer {
	if p.Lookup == nil || edge.Requirement.AssetRef == "" {
		return nil
	}
	return []ProvisionOffer{{
		ProvisionerID: p.ID(), RequirementID: edge.UID,
		Cost: CostHeavyIndirect, Priority: 20, Operation: graph.PolicyCreate,
		Accept: func(ctx *vmctx.Context) (*graph.Node, error) {
			kind, label, content, ok, err := p.Lookup(edge.Requirement.AssetRef)
			if err != nil || !ok {
				return nil, err
			}
			newUID := ctx.Effects.CreateNode(kind, label, content)
			return &graph.Node{UID: newUID, Kind: kind, Label: label, Content: content}, nil
		},
	}}
}
