package provisioning

import (
	"sort"

	"github.com/derekmerck/storytangl/pkg/graph"
	"github.com/derekmerck/storytangl/pkg/vmctx"
)

type requirementItem struct {
	edge       *graph.Edge
	sourceRank int
}

func unsatisfied(edges []*graph.Edge) []*graph.Edge {
	var out []*graph.Edge
	for _, e := range edges {
		if e.Requirement != nil && !e.Requirement.Satisfied() {
			out = append(out, e)
		}
	}
	return out
}

// Plan runs the five-step PLANNING algorithm of §4.4 for cursor against
// provisioners, returning one BuildReceipt per pending requirement.
// Provider bindings and unresolvable markers are written through the
// Effect Buffer so PLANNING stays preview-consistent with the rest of the
// tick.
func Plan(ctx *vmctx.Context, cursor *graph.Node, provisioners []Provisioner) ([]BuildReceipt, error) {
	preview, err := ctx.Effects.Preview()
	if err != nil {
		return nil, err
	}

	var items []requirementItem
	for _, e := range unsatisfied(preview.EdgesIn(cursor.UID, graph.KindAffordance)) {
		items = append(items, requirementItem{e, 0})
	}
	for _, e := range unsatisfied(preview.EdgesOut(cursor.UID, graph.KindDependency)) {
		items = append(items, requirementItem{e, 1})
	}

	var receipts []BuildReceipt
	for _, it := range items {
		edge := it.edge

		var offers []ProvisionOffer
		for _, p := range provisioners {
			offers = append(offers, p.GetOffers(edge, ctx)...)
		}
		// Higher Priority first, then cheaper Cost, then provisioner id.
		sort.SliceStable(offers, func(i, j int) bool {
			if offers[i].Priority != offers[j].Priority {
				return offers[i].Priority > offers[j].Priority
			}
			ci, cj := costRank[offers[i].Cost], costRank[offers[j].Cost]
			if ci != cj {
				return ci < cj
			}
			return offers[i].ProvisionerID < offers[j].ProvisionerID
		})

		receipts = append(receipts, commit(ctx, edge, offers)...)
	}
	return receipts, nil
}

func commit(ctx *vmctx.Context, edge *graph.Edge, offers []ProvisionOffer) []BuildReceipt {
	for _, off := range offers {
		provider, err := off.Accept(ctx)
		if err != nil || provider == nil {
			continue
		}
		ctx.Effects.SetAttr(edge.UID, "requirement.provider_id", provider.UID)
		return []BuildReceipt{{
			ProvisionerID: off.ProvisionerID,
			RequirementID: edge.UID,
			ProviderID:    &provider.UID,
			Operation:     off.Operation,
			Accepted:      true,
			HardReq:       edge.Requirement.HardRequirement,
		}}
	}

	if !edge.Requirement.HardRequirement {
		return []BuildReceipt{{RequirementID: edge.UID, HardReq: false, Reason: "waived_soft"}}
	}
	reason := "no_offers"
	if len(offers) > 0 {
		reason = "unresolvable"
	}
	ctx.Effects.SetAttr(edge.UID, "requirement.is_unresolvable", true)
	return []BuildReceipt{{RequirementID: edge.UID, HardReq: true, Reason: reason}}
}
