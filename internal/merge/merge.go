// Package merge combines decoded nodes from all sources into one
// deduplicated, deterministically named sequence.
package merge

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/clashgen/clashgen/internal/model"
)

// Merge deduplicates nodes by their (protocol, server, port, auth) identity
// and resolves display-name collisions. The first-seen node wins a duplicate;
// insertion order (source order, then link order within a source) is
// preserved so repeated runs with identical input produce identical output.
//
// Merge is idempotent: merging an already merged list changes nothing.
func Merge(nodes []model.CanonicalNode) []model.CanonicalNode {
	deduped := lo.UniqBy(nodes, model.CanonicalNode.IdentityKey)

	// Distinct nodes sharing a display name get a numeric suffix, first
	// occurrence keeps the bare name.
	used := make(map[string]struct{}, len(deduped))
	out := make([]model.CanonicalNode, 0, len(deduped))
	for _, n := range deduped {
		name := n.Name
		// DIRECT/REJECT are reserved words in group membership.
		if name == "DIRECT" || name == "REJECT" {
			name = fmt.Sprintf("%s-%s:%d", n.Protocol, n.Server, n.Port)
		}
		if _, taken := used[name]; taken {
			base := name
			for i := 2; ; i++ {
				candidate := fmt.Sprintf("%s-%d", base, i)
				if _, taken := used[candidate]; !taken {
					name = candidate
					break
				}
			}
		}
		n.Name = name
		used[name] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Names returns the display names of nodes in merge order.
func Names(nodes []model.CanonicalNode) []string {
	return lo.Map(nodes, func(n model.CanonicalNode, _ int) string { return n.Name })
}
