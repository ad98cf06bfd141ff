package services

import "time"

// SessionRecord is the one-per-session summary row written before any answer rows.
type SessionRecord struct {
	SessionID    string
	Mode         SurveyMode
	NewsCount    int
	Demographics *Demographics
	SubmittedAt  time.Time
}

// CompareRow is one answer row in the compare flow (one per item).
type CompareRow struct {
	SessionID     string
	Category      Category
	NewsID        string
	SelectedModel ModelID
}

// RatingRow is one answer row in the rate flow (one per item-model pair).
type RatingRow struct {
	SessionID    string
	Category     Category
	NewsID       string
	Model        ModelID
	Accuracy     int
	Completeness int
	Conciseness  int
	Readability  int
}

// SubmissionStore is the persistence collaborator behind the two-step write. A retry
// under the same session id must not duplicate rows; the store guards idempotency by
// upserting the record and replacing the session's rows transactionally.
type SubmissionStore interface {
	CreateSessionRecord(rec *SessionRecord) (string, error)
	AppendCompareRows(rows []*CompareRow) error
	AppendRatingRows(rows []*RatingRow) error
}

// SubmissionService serializes accumulated answers into the store's row shapes and
// performs the two-step write.
type SubmissionService struct {
	store SubmissionStore
	now   func() time.Time
}

func NewSubmissionService(store SubmissionStore) *SubmissionService {
	return &SubmissionService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Submit writes the session record, then the answer rows. The second step is never
// attempted unless the first succeeded, and either failure leaves the caller free to
// resubmit the same session.
func (s *SubmissionService) Submit(sess *Session) (string, error) {
	if sess == nil || sess.ID == "" {
		return "", ErrMissingSessionID
	}
	rec := &SessionRecord{
		SessionID:    sess.ID,
		Mode:         sess.Flow.Mode,
		NewsCount:    len(sess.Selected),
		Demographics: sess.Demographics,
		SubmittedAt:  s.now(),
	}
	recordID, err := s.store.CreateSessionRecord(rec)
	if err != nil {
		return "", &PersistenceError{Stage: StageSessionRecord, Err: err}
	}

	switch sess.Flow.Mode {
	case ModeRate:
		rows := make([]*RatingRow, 0, len(sess.Answers)*len(ModelIDs))
		for _, a := range sess.Answers {
			for _, m := range ModelIDs {
				sc := a.ModelRatings[m]
				rows = append(rows, &RatingRow{
					SessionID:    sess.ID,
					Category:     a.Category,
					NewsID:       a.NewsID,
					Model:        m,
					Accuracy:     sc.Accuracy,
					Completeness: sc.Completeness,
					Conciseness:  sc.Conciseness,
					Readability:  sc.Readability,
				})
			}
		}
		if err := s.store.AppendRatingRows(rows); err != nil {
			return "", &PersistenceError{Stage: StageAnswerRows, Err: err}
		}
	default:
		rows := make([]*CompareRow, 0, len(sess.Answers))
		for _, a := range sess.Answers {
			rows = append(rows, &CompareRow{
				SessionID:     sess.ID,
				Category:      a.Category,
				NewsID:        a.NewsID,
				SelectedModel: a.SelectedModel,
			})
		}
		if err := s.store.AppendCompareRows(rows); err != nil {
			return "", &PersistenceError{Stage: StageAnswerRows, Err: err}
		}
	}
	return recordID, nil
}
