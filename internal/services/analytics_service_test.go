package services

import (
	"testing"
	"time"
)

type stubAnalyticsStore struct {
	records     []*SessionRecord
	compareRows []*CompareRow
	ratingRows  []*RatingRow
}

func (s *stubAnalyticsStore) ListSessionRecords() ([]*SessionRecord, error) {
	return s.records, nil
}
func (s *stubAnalyticsStore) ListCompareRows() ([]*CompareRow, error) { return s.compareRows, nil }
func (s *stubAnalyticsStore) ListRatingRows() ([]*RatingRow, error)   { return s.ratingRows, nil }

func TestAnalyticsSummary(t *testing.T) {
	day1 := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	store := &stubAnalyticsStore{
		records: []*SessionRecord{
			{SessionID: "A", Mode: ModeCompare, NewsCount: 3, SubmittedAt: day1},
			{SessionID: "B", Mode: ModeCompare, NewsCount: 3, SubmittedAt: day2},
			{SessionID: "C", Mode: ModeRate, NewsCount: 3, SubmittedAt: day2},
		},
		compareRows: []*CompareRow{
			{SessionID: "A", NewsID: "n1", SelectedModel: ModelGPT},
			{SessionID: "A", NewsID: "n2", SelectedModel: ModelGPT},
			{SessionID: "B", NewsID: "n1", SelectedModel: ModelTyphoon},
		},
		ratingRows: []*RatingRow{
			{SessionID: "C", NewsID: "n1", Model: ModelQwen, Accuracy: 4, Completeness: 2, Conciseness: 3, Readability: 5},
			{SessionID: "C", NewsID: "n2", Model: ModelQwen, Accuracy: 2, Completeness: 4, Conciseness: 3, Readability: 1},
		},
	}

	summary, err := NewAnalyticsService(store).Summary()
	if err != nil {
		t.Fatalf("Summary returned error: %v", err)
	}
	if summary.TotalSessions != 3 || summary.CompareSessions != 2 || summary.RateSessions != 1 {
		t.Fatalf("session counts = %d/%d/%d", summary.TotalSessions, summary.CompareSessions, summary.RateSessions)
	}

	wins := map[ModelID]int{}
	for _, w := range summary.Wins {
		wins[w.Model] = w.Wins
	}
	if wins[ModelGPT] != 2 || wins[ModelTyphoon] != 1 || wins[ModelPathumma] != 0 {
		t.Fatalf("unexpected wins: %v", wins)
	}

	var qwen *ModelMeans
	for i := range summary.Means {
		if summary.Means[i].Model == ModelQwen {
			qwen = &summary.Means[i]
		}
	}
	if qwen == nil || qwen.N != 2 {
		t.Fatalf("qwen means missing: %+v", summary.Means)
	}
	if qwen.Accuracy != 3 || qwen.Completeness != 3 || qwen.Conciseness != 3 || qwen.Readability != 3 {
		t.Fatalf("qwen means = %+v, want 3 across criteria", qwen)
	}

	if len(summary.Timeseries) != 2 {
		t.Fatalf("timeseries days = %d, want 2", len(summary.Timeseries))
	}
	if summary.Timeseries[0].Date != "2026-02-01" || summary.Timeseries[0].Count != 1 {
		t.Fatalf("unexpected first day: %+v", summary.Timeseries[0])
	}
	if summary.Timeseries[1].Count != 2 {
		t.Fatalf("unexpected second day: %+v", summary.Timeseries[1])
	}
}

func TestAnalyticsSummaryEmptyStore(t *testing.T) {
	summary, err := NewAnalyticsService(&stubAnalyticsStore{}).Summary()
	if err != nil {
		t.Fatalf("Summary returned error: %v", err)
	}
	if summary.TotalSessions != 0 {
		t.Fatalf("total = %d, want 0", summary.TotalSessions)
	}
	if len(summary.Wins) != len(ModelIDs) || len(summary.Means) != len(ModelIDs) {
		t.Fatalf("expected one entry per model even when empty")
	}
	for _, m := range summary.Means {
		if m.N != 0 || m.Accuracy != 0 {
			t.Fatalf("empty store produced nonzero means: %+v", m)
		}
	}
}
