package api

import (
	"time"

	"contentstudio/internal/history"
)

// FromHistoryRows converts aggregated rows to their API representation.
func FromHistoryRows(rows []history.Row) []HistoryRow {
	out := make([]HistoryRow, 0, len(rows))
	for _, row := range rows {
		dto := HistoryRow{BatchID: row.BatchID, Count: row.Count}
		if !row.CreatedAt.IsZero() {
			dto.CreatedAt = FormatTime(row.CreatedAt)
		}
		out = append(out, dto)
	}
	return out
}

// ToHistoryRows parses API rows back into history rows. Unparseable
// timestamps become zero.
func ToHistoryRows(rows []HistoryRow) []history.Row {
	out := make([]history.Row, 0, len(rows))
	for _, dto := range rows {
		row := history.Row{BatchID: dto.BatchID, Count: dto.Count}
		if dto.CreatedAt != "" {
			if t, err := time.Parse(time.RFC3339Nano, dto.CreatedAt); err == nil {
				row.CreatedAt = t
			}
		}
		out = append(out, row)
	}
	return out
}

// FormatTime renders t in the API timestamp format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(dateTimeFormat)
}
