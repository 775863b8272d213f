package formatter

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/tracklake/internal/models"
)

func sampleHistory() []models.DimensionRecord {
	start := time.Date(2024, 3, 15, 6, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	return []models.DimensionRecord{
		{
			SurrogateKey:   1,
			TrackID:        "T1",
			TrackName:      "Fresh Track",
			DurationMS:     180000,
			Popularity:     40,
			AlbumID:        "AL1",
			RowHash:        "aaa",
			EffectiveStart: start,
			EffectiveEnd:   &end,
			IsCurrent:      false,
			Version:        1,
		},
		{
			SurrogateKey:   2,
			TrackID:        "T1",
			TrackName:      "Fresh Track",
			DurationMS:     180000,
			Popularity:     75,
			AlbumID:        "AL1",
			RowHash:        "bbb",
			EffectiveStart: end,
			IsCurrent:      true,
			Version:        2,
		},
	}
}

func TestHistoryToTable(t *testing.T) {
	out := HistoryToTable(sampleHistory())

	for _, want := range []string{"Version", "Fresh Track", "aaa", "bbb"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected table to contain %q:\n%s", want, out)
		}
	}
	if len(strings.Split(out, "\n")) < 4 {
		t.Errorf("expected header plus two rows:\n%s", out)
	}
}

func TestHistoryToCSV(t *testing.T) {
	out, err := HistoryToCSV(sampleHistory())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(records))
	}
	if records[0][0] != "track_id" {
		t.Errorf("unexpected header %v", records[0])
	}
	if records[1][1] != "1" || records[2][1] != "2" {
		t.Errorf("expected versions in order, got %v and %v", records[1], records[2])
	}
	if records[1][10] == "" {
		t.Error("expected expired row to carry an effective_end")
	}
	if records[2][10] != "" {
		t.Errorf("expected current row to have empty effective_end, got %q", records[2][10])
	}
}

func TestHistoryToJSON(t *testing.T) {
	out, err := HistoryToJSON(sampleHistory())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded []models.DimensionRecord
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 records, got %d", len(decoded))
	}
	if decoded[1].Version != 2 || !decoded[1].IsCurrent {
		t.Errorf("unexpected record %+v", decoded[1])
	}
}

func TestSummaryToTable(t *testing.T) {
	rows := map[string]int{"inserted": 3, "expired": 1, "unchanged": 12}
	out := SummaryToTable(rows, []string{"inserted", "expired", "unchanged"})

	for _, want := range []string{"inserted", "expired", "unchanged", "3", "12"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected summary to contain %q:\n%s", want, out)
		}
	}

	lines := strings.Split(out, "\n")
	var insertedLine, unchangedLine int
	for i, line := range lines {
		if strings.Contains(line, "inserted") {
			insertedLine = i
		}
		if strings.Contains(line, "unchanged") {
			unchangedLine = i
		}
	}
	if insertedLine >= unchangedLine {
		t.Error("expected rows rendered in the given order")
	}
}
