package services

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"
)

// ExportCompareCSV renders compare answer rows into a long-format CSV.
func ExportCompareCSV(rows []*CompareRow) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"session_id", "news_category", "news_id", "selected_model"})
	for _, r := range rows {
		rec := []string{r.SessionID, string(r.Category), r.NewsID, string(r.SelectedModel)}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportRatingCSV renders rating answer rows into a long-format CSV, one row per
// item-model pair.
func ExportRatingCSV(rows []*RatingRow) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{
		"session_id", "news_category", "news_id", "model_name",
		"accuracy_score", "completeness_score", "conciseness_score", "readability_score",
	})
	for _, r := range rows {
		rec := []string{
			r.SessionID,
			string(r.Category),
			r.NewsID,
			string(r.Model),
			strconv.Itoa(r.Accuracy),
			strconv.Itoa(r.Completeness),
			strconv.Itoa(r.Conciseness),
			strconv.Itoa(r.Readability),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportSessionsCSV renders session summary records, demographics included when present.
func ExportSessionsCSV(records []*SessionRecord) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"session_id", "mode", "news_count", "age", "gender", "occupation", "submitted_at"})
	for _, rec := range records {
		age, gender, occupation := "", "", ""
		if rec.Demographics != nil {
			age = strconv.Itoa(rec.Demographics.Age)
			gender = rec.Demographics.Gender
			occupation = rec.Demographics.Occupation
		}
		row := []string{
			rec.SessionID,
			string(rec.Mode),
			strconv.Itoa(rec.NewsCount),
			age,
			gender,
			occupation,
			rec.SubmittedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
