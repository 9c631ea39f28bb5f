package watch

import (
	"fmt"
	"strings"
)

// ChannelChange describes a single change to the retained channel set
// between two consecutive runs.
type ChannelChange struct {
	// Kind is one of "added" or "removed".
	Kind string
	// Channel is the property name.
	Channel string
}

// ChannelDiff compares the retained channels of two runs and returns the
// changes in the order the channels appear.
func ChannelDiff(prev, curr []string) []ChannelChange {
	prevSet := toSet(prev)
	currSet := toSet(curr)

	var changes []ChannelChange

	for _, c := range prev {
		if !currSet[c] {
			changes = append(changes, ChannelChange{Kind: "removed", Channel: c})
		}
	}

	for _, c := range curr {
		if !prevSet[c] {
			changes = append(changes, ChannelChange{Kind: "added", Channel: c})
		}
	}

	return changes
}

// ChannelDiffSummary returns a human-readable one-line summary.
func ChannelDiffSummary(changes []ChannelChange) string {
	var added, removed int

	for _, c := range changes {
		switch c.Kind {
		case "added":
			added++
		case "removed":
			removed++
		}
	}

	if added == 0 && removed == 0 {
		return "no channel changes"
	}

	parts := make([]string, 0, 2)

	if added > 0 {
		parts = append(parts, fmt.Sprintf("+%d channel(s) retained", added))
	}

	if removed > 0 {
		parts = append(parts, fmt.Sprintf("-%d channel(s) no longer retained", removed))
	}

	return strings.Join(parts, ", ")
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}

	return set
}
