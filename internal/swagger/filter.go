package swagger

import "strings"

// Filter implements component C: it drops internal/trigger/subscription
// operations, then keeps only the highest-revision member of each
// x-ms-api-annotation family. Order of survivors matches the input order.
func Filter(ops []ParsedOperation) []ParsedOperation {
	survivors := make([]ParsedOperation, 0, len(ops))
	for _, op := range ops {
		if op.Visibility == VisibilityInternal {
			continue
		}
		if op.IsTrigger {
			continue
		}
		if strings.Contains(op.Path, "$subscriptions") {
			continue
		}
		survivors = append(survivors, op)
	}
	return dedupeFamilies(survivors)
}

// dedupeFamilies keeps, for every x-ms-api-annotation family present, only
// the member with the maximum revision (ties keep the first seen).
// Operations without a family survive unless deprecated.
func dedupeFamilies(ops []ParsedOperation) []ParsedOperation {
	bestIndexByFamily := map[string]int{}
	for i, op := range ops {
		if op.APIAnnotation == nil || op.APIAnnotation.Family == "" {
			continue
		}
		family := op.APIAnnotation.Family
		if best, ok := bestIndexByFamily[family]; !ok {
			bestIndexByFamily[family] = i
		} else if op.APIAnnotation.Revision > ops[best].APIAnnotation.Revision {
			bestIndexByFamily[family] = i
		}
	}

	keep := make(map[int]bool, len(ops))
	for _, idx := range bestIndexByFamily {
		keep[idx] = true
	}

	out := make([]ParsedOperation, 0, len(ops))
	for i, op := range ops {
		switch {
		case op.APIAnnotation != nil && op.APIAnnotation.Family != "":
			if keep[i] {
				out = append(out, op)
			}
		case op.Deprecated:
			// no family, deprecated: drop.
		default:
			out = append(out, op)
		}
	}
	return out
}
