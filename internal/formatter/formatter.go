// package formatter provides functions to render dimension history and cycle
// summaries in various formats (table, CSV, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/tracklake/internal/models"
	"github.com/jedib0t/go-pretty/v6/table"
)

// timeOrEmpty renders a nullable timestamp for display.
func timeOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// HistoryToTable renders a business key's version history as an ASCII table,
// one row per version in chronological order.
func HistoryToTable(records []models.DimensionRecord) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Version", "Current", "Name", "Popularity", "Effective Start", "Effective End", "Row Hash"})

	for _, record := range records {
		t.AppendRow(table.Row{
			record.Version,
			record.IsCurrent,
			record.TrackName,
			record.Popularity,
			record.EffectiveStart.UTC().Format(time.RFC3339),
			timeOrEmpty(record.EffectiveEnd),
			record.RowHash,
		})
	}

	return t.Render()
}

// HistoryToCSV renders a version history as CSV with a header row.
func HistoryToCSV(records []models.DimensionRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"track_id", "version", "is_current", "track_name", "duration_ms", "popularity", "album_id", "primary_artist_id", "row_hash", "effective_start", "effective_end"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, record := range records {
		row := []string{
			record.TrackID,
			strconv.Itoa(record.Version),
			strconv.FormatBool(record.IsCurrent),
			record.TrackName,
			strconv.Itoa(record.DurationMS),
			strconv.Itoa(record.Popularity),
			record.AlbumID,
			record.PrimaryArtistID,
			record.RowHash,
			record.EffectiveStart.UTC().Format(time.RFC3339),
			timeOrEmpty(record.EffectiveEnd),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// HistoryToJSON renders a version history as indented JSON.
func HistoryToJSON(records []models.DimensionRecord) ([]byte, error) {
	output, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal history: %w", err)
	}
	return output, nil
}

// SummaryToTable renders merge counters as a two-column table for CLI output.
func SummaryToTable(rows map[string]int, order []string) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	for _, key := range order {
		t.AppendRow(table.Row{key, rows[key]})
	}

	return t.Render()
}
