package core

import "github.com/portwayhq/portway/schema"

// collectionState is one session's tab collection as the reconciler sees it.
type collectionState struct {
	order    []schema.TabID
	tabsByID map[schema.TabID]schema.Tab
	activeID schema.TabID
	origin   schema.Origin
}

// reconcile merges a canonical tab list into the previous collection state.
//
// Membership is canonical: the resulting id set is exactly the canonical
// list's id set. Order precedence:
//   - authoritative sync adopts the canonical order verbatim;
//   - otherwise, an unchanged id set keeps the existing local order (this is
//     what preserves a user's drag arrangement across unrelated re-syncs);
//   - otherwise retained ids keep their relative local order and additions
//     are appended in canonical order.
//
// The active id is kept when it survives; when it was removed, the tab now
// occupying its old position becomes active (clamped to the last tab).
// Retained tab values are replaced wholesale from the canonical list.
//
// The function is pure: it never mutates prev or canonical and the same
// inputs always produce the same output.
func reconcile(prev collectionState, canonical []schema.Tab, authoritative bool) collectionState {
	byID := make(map[schema.TabID]schema.Tab, len(canonical))
	canonicalOrder := make([]schema.TabID, 0, len(canonical))
	for _, tab := range canonical {
		byID[tab.ID] = tab
		canonicalOrder = append(canonicalOrder, tab.ID)
	}

	var order []schema.TabID
	origin := prev.origin
	switch {
	case authoritative:
		order = canonicalOrder
		origin = schema.OriginSync
	case sameIDSet(prev.order, byID):
		order = append([]schema.TabID(nil), prev.order...)
	default:
		order = make([]schema.TabID, 0, len(canonicalOrder))
		retained := make(map[schema.TabID]struct{}, len(prev.order))
		for _, id := range prev.order {
			if _, ok := byID[id]; ok {
				order = append(order, id)
				retained[id] = struct{}{}
			}
		}
		for _, id := range canonicalOrder {
			if _, ok := retained[id]; !ok {
				order = append(order, id)
			}
		}
		origin = schema.OriginSync
	}
	if origin == "" {
		origin = schema.OriginSync
	}

	return collectionState{
		order:    order,
		tabsByID: byID,
		activeID: repairActive(prev.activeID, prev.order, order, byID),
		origin:   origin,
	}
}

// repairActive applies the active-id repair rule shared by sync and close.
func repairActive(prevActive schema.TabID, prevOrder, order []schema.TabID, byID map[schema.TabID]schema.Tab) schema.TabID {
	if len(order) == 0 {
		return ""
	}
	if prevActive != "" {
		if _, ok := byID[prevActive]; ok {
			return prevActive
		}
	}
	idx := 0
	if prevActive != "" {
		idx = indexOf(prevOrder, prevActive)
		if idx < 0 {
			idx = 0
		}
	}
	if idx > len(order)-1 {
		idx = len(order) - 1
	}
	return order[idx]
}

func sameIDSet(order []schema.TabID, byID map[schema.TabID]schema.Tab) bool {
	if len(order) != len(byID) {
		return false
	}
	for _, id := range order {
		if _, ok := byID[id]; !ok {
			return false
		}
	}
	return true
}

func indexOf(order []schema.TabID, id schema.TabID) int {
	for i, candidate := range order {
		if candidate == id {
			return i
		}
	}
	return -1
}

// equalState reports whether two collection states are observably identical:
// same order, same tab values, same active id, same provenance.
func equalState(a, b collectionState) bool {
	if a.activeID != b.activeID || a.origin != b.origin {
		return false
	}
	if len(a.order) != len(b.order) {
		return false
	}
	for i, id := range a.order {
		if b.order[i] != id {
			return false
		}
		if a.tabsByID[id] != b.tabsByID[id] {
			return false
		}
	}
	return true
}
