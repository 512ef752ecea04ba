package aggregate

import (
	"reflect"
	"testing"

	"clickship/internal/model"
)

func TestDeriveLeaderboard(t *testing.T) {
	got := DeriveLeaderboard([]string{"A", "A", "B", "C", "A"}, 5)
	want := []model.LeaderboardEntry{
		{User: "A", Total: 3},
		{User: "B", Total: 1},
		{User: "C", Total: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("leaderboard mismatch: got %+v want %+v", got, want)
	}
}

func TestDeriveLeaderboardTruncatesAndSkipsEmpty(t *testing.T) {
	got := DeriveLeaderboard([]string{"", "A", "B", "B", "C"}, 2)
	want := []model.LeaderboardEntry{
		{User: "B", Total: 2},
		{User: "A", Total: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("leaderboard mismatch: got %+v want %+v", got, want)
	}
}

func TestDeriveLeaderboardDeterministicTies(t *testing.T) {
	first := DeriveLeaderboard([]string{"X", "Y", "Z"}, 3)
	for i := 0; i < 20; i++ {
		again := DeriveLeaderboard([]string{"X", "Y", "Z"}, 3)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("tie order changed between runs: %+v vs %+v", first, again)
		}
	}
	if first[0].User != "X" || first[1].User != "Y" || first[2].User != "Z" {
		t.Fatalf("ties must keep first-seen order: %+v", first)
	}
}

func TestSortLeaderboard(t *testing.T) {
	entries := []model.LeaderboardEntry{
		{User: "low", Total: 1},
		{User: "high", Total: 9},
		{User: "mid", Total: 4},
	}
	got := sortLeaderboard(entries, 2)
	if len(got) != 2 || got[0].User != "high" || got[1].User != "mid" {
		t.Fatalf("sort mismatch: %+v", got)
	}
}
