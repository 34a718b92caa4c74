package snapshot

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
)

var numericSuffix = regexp.MustCompile(`SNAPSHOT\d+\.`)

// Rename mirrors a committed local rename to the bucket: the source object
// is copied to NewKey and the old key deleted, after the index is live.
type Rename struct {
	Source Description
	NewKey string
}

// Plan is the outcome of reconciling all discovered snapshots. Delete and
// Rename are disjoint: a key is scheduled for one or the other, never both.
type Plan struct {
	Delete []Description
	Rename []Rename
}

// Reconcile groups descriptions by installable and, for every group with
// more than one member, keeps the member with the highest ordinal (ties
// resolved by discovery order) and schedules the rest for deletion. The kept
// member's filename has its numeric discriminator collapsed. Groups of size
// one need no reconciliation. Pure plan construction, no I/O.
func Reconcile(descs []Description) Plan {
	groups := make(map[string][]Description)
	var order []string
	for _, d := range descs {
		if _, ok := groups[d.Prefix]; !ok {
			order = append(order, d.Prefix)
		}
		groups[d.Prefix] = append(groups[d.Prefix], d)
	}

	var plan Plan
	for _, prefix := range order {
		group := groups[prefix]
		if len(group) < 2 {
			continue
		}

		// newest first; stable so discovery order breaks ordinal ties
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Ordinal > group[j].Ordinal
		})

		plan.Delete = append(plan.Delete, group[1:]...)

		kept := group[0]
		newKey, ok := stripNumerics(kept.Key)
		if !ok {
			slog.Warn("filename did not look like a normal snapshot, keeping name", "key", kept.Key)
			continue
		}
		if newKey != kept.Key {
			plan.Rename = append(plan.Rename, Rename{Source: kept, NewKey: newKey})
		}
	}
	return plan
}

// stripNumerics rewrites the filename part of key, collapsing
// "SNAPSHOT<digits>." to "SNAPSHOT.". Reports false when the filename does
// not contain exactly one marker occurrence, in which case the key is
// returned unchanged.
func stripNumerics(key string) (string, bool) {
	dir, name := splitKey(key)
	if strings.Count(name, Marker) != 1 {
		return key, false
	}
	return dir + numericSuffix.ReplaceAllString(name, Marker+"."), true
}
