package diff

import (
	"sort"

	"github.com/shuliakovsky/peersync/pkg/catalog"
)

type Direction string

const (
	Push Direction = "push" // local copy goes to the remote
	Pull Direction = "pull" // remote copy is fetched
)

type Reason string

const (
	ReasonMissing  Reason = "missing"
	ReasonStale    Reason = "stale"
	ReasonConflict Reason = "conflict_newer_wins"
)

type Intent struct {
	Path      string    `json:"path"`
	Direction Direction `json:"direction"`
	Reason    Reason    `json:"reason"`
}

// Diff compares a local and a remote catalog and returns the transfers
// needed to converge, ordered by path. Both sides compute the same result
// for the same pair: a file missing on one side moves toward it, and a
// hash mismatch is won by the later modification time. Equal timestamps
// with differing hashes are broken by the lexicographically greater hash
// so that both peers decide identically without talking.
func Diff(local, remote catalog.Catalog) []Intent {
	paths := make([]string, 0, len(local.Entries)+len(remote.Entries))
	seen := make(map[string]struct{}, len(local.Entries)+len(remote.Entries))
	for p := range local.Entries {
		paths = append(paths, p)
		seen[p] = struct{}{}
	}
	for p := range remote.Entries {
		if _, ok := seen[p]; !ok {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	var intents []Intent
	for _, p := range paths {
		l, hasLocal := local.Entries[p]
		r, hasRemote := remote.Entries[p]

		switch {
		case hasLocal && !hasRemote:
			intents = append(intents, Intent{Path: p, Direction: Push, Reason: ReasonMissing})
		case !hasLocal && hasRemote:
			intents = append(intents, Intent{Path: p, Direction: Pull, Reason: ReasonMissing})
		case l.Hash == r.Hash:
			// already converged
		default:
			dir := Pull
			if localWins(l, r) {
				dir = Push
			}
			intents = append(intents, Intent{Path: p, Direction: dir, Reason: ReasonConflict})
		}
	}
	return intents
}

func localWins(l, r catalog.FileEntry) bool {
	if l.ModifiedAt != r.ModifiedAt {
		return l.ModifiedAt > r.ModifiedAt
	}
	return l.Hash > r.Hash
}
