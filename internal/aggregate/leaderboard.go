package aggregate

import (
	"sort"

	"clickship/internal/model"
)

// DeriveLeaderboard ranks senders by occurrence count within the given
// window, descending. It is a pure function of its input: equal counts keep
// first-seen order, so the result is deterministic for a fixed window.
func DeriveLeaderboard(senders []string, size int) []model.LeaderboardEntry {
	entries := make([]model.LeaderboardEntry, 0, len(senders))
	index := make(map[string]int, len(senders))

	for _, sender := range senders {
		if sender == "" {
			continue
		}
		if at, ok := index[sender]; ok {
			entries[at].Total++
			continue
		}
		index[sender] = len(entries)
		entries = append(entries, model.LeaderboardEntry{User: sender, Total: 1})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Total > entries[j].Total
	})

	if size > 0 && len(entries) > size {
		entries = entries[:size]
	}
	return entries
}

// sortLeaderboard orders pre-counted entries descending, keeping input order
// for ties, and truncates to size.
func sortLeaderboard(entries []model.LeaderboardEntry, size int) []model.LeaderboardEntry {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Total > entries[j].Total
	})
	if size > 0 && len(entries) > size {
		entries = entries[:size]
	}
	return entries
}
