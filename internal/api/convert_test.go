package api

import (
	"testing"
	"time"

	"contentstudio/internal/history"
)

func TestFromHistoryRowsFormatsMilliseconds(t *testing.T) {
	created := time.Date(2025, 2, 3, 4, 5, 6, 0, time.FixedZone("CLT", -3*3600))
	rows := FromHistoryRows([]history.Row{
		{BatchID: "b1", Count: 3, CreatedAt: created},
		{BatchID: "b2"},
	})
	if rows[0].CreatedAt != "2025-02-03T07:05:06.000Z" {
		t.Fatalf("CreatedAt = %q", rows[0].CreatedAt)
	}
	if rows[1].CreatedAt != "" {
		t.Fatalf("missing timestamp should stay empty, got %q", rows[1].CreatedAt)
	}
}

func TestHistoryRowsRoundTrip(t *testing.T) {
	created := time.Date(2025, 2, 3, 4, 5, 6, 7_000_000, time.UTC)
	in := []history.Row{{BatchID: "b1", Count: 2, CreatedAt: created}, {BatchID: "b2", Count: 1}}
	out := ToHistoryRows(FromHistoryRows(in))
	if !out[0].CreatedAt.Equal(created) || out[0].Count != 2 {
		t.Fatalf("unexpected row %+v", out[0])
	}
	if !out[1].CreatedAt.IsZero() {
		t.Fatalf("expected zero timestamp, got %v", out[1].CreatedAt)
	}
	if got := ToHistoryRows([]HistoryRow{{BatchID: "x", CreatedAt: "garbage"}}); !got[0].CreatedAt.IsZero() {
		t.Fatal("garbage timestamp should be zero")
	}
}
