package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirikarn-cs/SumRate/internal/api"
	"github.com/sirikarn-cs/SumRate/internal/services"
)

// SQLiteStore persists survey results in sqlite. Submission retries under the same
// session id upsert the response row and replace its answer rows inside one
// transaction, so a half-failed submit can be repeated safely.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func NewStore(db *sql.DB) (api.Store, error) {
	return NewSQLiteStore(db)
}

var _ api.Store = (*SQLiteStore)(nil)

func (s *SQLiteStore) CreateSessionRecord(rec *services.SessionRecord) (string, error) {
	if rec == nil || rec.SessionID == "" {
		return "", services.ErrMissingSessionID
	}
	var age sql.NullInt64
	var gender, occupation sql.NullString
	if d := rec.Demographics; d != nil {
		age = sql.NullInt64{Int64: int64(d.Age), Valid: true}
		gender = sql.NullString{String: d.Gender, Valid: true}
		occupation = sql.NullString{String: d.Occupation, Valid: true}
	}
	_, err := s.db.Exec(`
		INSERT INTO survey_responses (session_id, mode, news_count, age, gender, occupation, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			mode = excluded.mode,
			news_count = excluded.news_count,
			age = excluded.age,
			gender = excluded.gender,
			occupation = excluded.occupation,
			submitted_at = excluded.submitted_at`,
		rec.SessionID, string(rec.Mode), rec.NewsCount, age, gender, occupation,
		rec.SubmittedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("upsert survey response: %w", err)
	}
	return rec.SessionID, nil
}

func (s *SQLiteStore) AppendCompareRows(rows []*services.CompareRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, sid := range sessionIDsOfCompare(rows) {
		if _, err := tx.Exec(`DELETE FROM compare_answers WHERE session_id = ?`, sid); err != nil {
			return fmt.Errorf("clear compare answers: %w", err)
		}
	}
	for _, row := range rows {
		if _, err := tx.Exec(`
			INSERT INTO compare_answers (session_id, news_category, news_id, selected_model)
			VALUES (?, ?, ?, ?)`,
			row.SessionID, string(row.Category), row.NewsID, string(row.SelectedModel)); err != nil {
			return fmt.Errorf("insert compare answer: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) AppendRatingRows(rows []*services.RatingRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, sid := range sessionIDsOfRating(rows) {
		if _, err := tx.Exec(`DELETE FROM rating_answers WHERE session_id = ?`, sid); err != nil {
			return fmt.Errorf("clear rating answers: %w", err)
		}
	}
	for _, row := range rows {
		if _, err := tx.Exec(`
			INSERT INTO rating_answers (session_id, news_category, news_id, model_name,
				accuracy_score, completeness_score, conciseness_score, readability_score)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			row.SessionID, string(row.Category), row.NewsID, string(row.Model),
			row.Accuracy, row.Completeness, row.Conciseness, row.Readability); err != nil {
			return fmt.Errorf("insert rating answer: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListSessionRecords() ([]*services.SessionRecord, error) {
	rows, err := s.db.Query(`
		SELECT session_id, mode, news_count, age, gender, occupation, submitted_at
		FROM survey_responses ORDER BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("list survey responses: %w", err)
	}
	defer rows.Close()

	var out []*services.SessionRecord
	for rows.Next() {
		var (
			rec               services.SessionRecord
			mode, submittedAt string
			age               sql.NullInt64
			gender, occ       sql.NullString
		)
		if err := rows.Scan(&rec.SessionID, &mode, &rec.NewsCount, &age, &gender, &occ, &submittedAt); err != nil {
			return nil, fmt.Errorf("scan survey response: %w", err)
		}
		rec.Mode = services.SurveyMode(mode)
		if age.Valid {
			rec.Demographics = &services.Demographics{
				Age:        int(age.Int64),
				Gender:     gender.String,
				Occupation: occ.String,
			}
		}
		if ts, err := time.Parse(time.RFC3339, submittedAt); err == nil {
			rec.SubmittedAt = ts
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListCompareRows() ([]*services.CompareRow, error) {
	rows, err := s.db.Query(`
		SELECT session_id, news_category, news_id, selected_model
		FROM compare_answers ORDER BY session_id, news_id`)
	if err != nil {
		return nil, fmt.Errorf("list compare answers: %w", err)
	}
	defer rows.Close()

	var out []*services.CompareRow
	for rows.Next() {
		var row services.CompareRow
		var category, model string
		if err := rows.Scan(&row.SessionID, &category, &row.NewsID, &model); err != nil {
			return nil, fmt.Errorf("scan compare answer: %w", err)
		}
		row.Category = services.Category(category)
		row.SelectedModel = services.ModelID(model)
		out = append(out, &row)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListRatingRows() ([]*services.RatingRow, error) {
	rows, err := s.db.Query(`
		SELECT session_id, news_category, news_id, model_name,
			accuracy_score, completeness_score, conciseness_score, readability_score
		FROM rating_answers ORDER BY session_id, news_id, model_name`)
	if err != nil {
		return nil, fmt.Errorf("list rating answers: %w", err)
	}
	defer rows.Close()

	var out []*services.RatingRow
	for rows.Next() {
		var row services.RatingRow
		var category, model string
		if err := rows.Scan(&row.SessionID, &category, &row.NewsID, &model,
			&row.Accuracy, &row.Completeness, &row.Conciseness, &row.Readability); err != nil {
			return nil, fmt.Errorf("scan rating answer: %w", err)
		}
		row.Category = services.Category(category)
		row.Model = services.ModelID(model)
		out = append(out, &row)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddResearcher(r *services.Researcher) error {
	if r == nil || r.ID == "" {
		return errors.New("nil researcher")
	}
	_, err := s.db.Exec(`
		INSERT INTO researchers (id, email, pass_hash, created_at)
		VALUES (?, ?, ?, ?)`,
		r.ID, strings.ToLower(strings.TrimSpace(r.Email)), r.PassHash,
		r.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert researcher: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindResearcherByEmail(email string) (*services.Researcher, error) {
	var (
		r         services.Researcher
		createdAt string
	)
	err := s.db.QueryRow(`
		SELECT id, email, pass_hash, created_at FROM researchers WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email))).
		Scan(&r.ID, &r.Email, &r.PassHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find researcher: %w", err)
	}
	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		r.CreatedAt = ts
	}
	return &r, nil
}

// sessionIDsOfCompare returns the distinct session ids in order of first appearance.
func sessionIDsOfCompare(rows []*services.CompareRow) []string {
	seen := map[string]bool{}
	var ids []string
	for _, row := range rows {
		if !seen[row.SessionID] {
			seen[row.SessionID] = true
			ids = append(ids, row.SessionID)
		}
	}
	return ids
}

func sessionIDsOfRating(rows []*services.RatingRow) []string {
	seen := map[string]bool{}
	var ids []string
	for _, row := range rows {
		if !seen[row.SessionID] {
			seen[row.SessionID] = true
			ids = append(ids, row.SessionID)
		}
	}
	return ids
}
