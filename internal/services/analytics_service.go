package services

import "sort"

type AnalyticsStore interface {
	ListSessionRecords() ([]*SessionRecord, error)
	ListCompareRows() ([]*CompareRow, error)
	ListRatingRows() ([]*RatingRow, error)
}

// AnalyticsService aggregates stored answers into the researcher summary.
type AnalyticsService struct {
	store AnalyticsStore
}

func NewAnalyticsService(store AnalyticsStore) *AnalyticsService {
	return &AnalyticsService{store: store}
}

// ModelWins counts how often a model was picked as the best summary.
type ModelWins struct {
	Model ModelID `json:"model"`
	Wins  int     `json:"wins"`
}

// ModelMeans holds per-criterion mean scores for one model across all rating rows.
type ModelMeans struct {
	Model        ModelID `json:"model"`
	N            int     `json:"n"`
	Accuracy     float64 `json:"accuracy"`
	Completeness float64 `json:"completeness"`
	Conciseness  float64 `json:"conciseness"`
	Readability  float64 `json:"readability"`
}

type AnalyticsTimeseries struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type AnalyticsSummary struct {
	TotalSessions   int                   `json:"total_sessions"`
	CompareSessions int                   `json:"compare_sessions"`
	RateSessions    int                   `json:"rate_sessions"`
	Wins            []ModelWins           `json:"wins"`
	Means           []ModelMeans          `json:"means"`
	Timeseries      []AnalyticsTimeseries `json:"timeseries"`
}

func (s *AnalyticsService) Summary() (*AnalyticsSummary, error) {
	records, err := s.store.ListSessionRecords()
	if err != nil {
		return nil, err
	}
	compareRows, err := s.store.ListCompareRows()
	if err != nil {
		return nil, err
	}
	ratingRows, err := s.store.ListRatingRows()
	if err != nil {
		return nil, err
	}

	out := &AnalyticsSummary{TotalSessions: len(records)}
	countsByDay := map[string]int{}
	for _, rec := range records {
		switch rec.Mode {
		case ModeCompare:
			out.CompareSessions++
		case ModeRate:
			out.RateSessions++
		}
		countsByDay[rec.SubmittedAt.UTC().Format("2006-01-02")]++
	}
	out.Wins = buildWins(compareRows)
	out.Means = buildMeans(ratingRows)
	out.Timeseries = buildTimeseries(countsByDay)
	return out, nil
}

func buildWins(rows []*CompareRow) []ModelWins {
	counts := map[ModelID]int{}
	for _, r := range rows {
		counts[r.SelectedModel]++
	}
	out := make([]ModelWins, 0, len(ModelIDs))
	for _, m := range ModelIDs {
		out = append(out, ModelWins{Model: m, Wins: counts[m]})
	}
	return out
}

func buildMeans(rows []*RatingRow) []ModelMeans {
	type sums struct {
		n                     int
		acc, comp, conc, read int
	}
	byModel := map[ModelID]*sums{}
	for _, r := range rows {
		s := byModel[r.Model]
		if s == nil {
			s = &sums{}
			byModel[r.Model] = s
		}
		s.n++
		s.acc += r.Accuracy
		s.comp += r.Completeness
		s.conc += r.Conciseness
		s.read += r.Readability
	}
	out := make([]ModelMeans, 0, len(ModelIDs))
	for _, m := range ModelIDs {
		s := byModel[m]
		if s == nil || s.n == 0 {
			out = append(out, ModelMeans{Model: m})
			continue
		}
		n := float64(s.n)
		out = append(out, ModelMeans{
			Model:        m,
			N:            s.n,
			Accuracy:     float64(s.acc) / n,
			Completeness: float64(s.comp) / n,
			Conciseness:  float64(s.conc) / n,
			Readability:  float64(s.read) / n,
		})
	}
	return out
}

func buildTimeseries(counts map[string]int) []AnalyticsTimeseries {
	days := make([]string, 0, len(counts))
	for d := range counts {
		days = append(days, d)
	}
	sort.Strings(days)
	out := make([]AnalyticsTimeseries, 0, len(days))
	for _, d := range days {
		out = append(out, AnalyticsTimeseries{Date: d, Count: counts[d]})
	}
	return out
}
