package services

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"
)

type stubSubmissionStore struct {
	records     []*SessionRecord
	compareRows []*CompareRow
	ratingRows  []*RatingRow
	recordCalls int
	rowCalls    int
	failRecord  error
	failRows    error
}

func (s *stubSubmissionStore) CreateSessionRecord(rec *SessionRecord) (string, error) {
	s.recordCalls++
	if s.failRecord != nil {
		return "", s.failRecord
	}
	s.records = append(s.records, rec)
	return "rec-" + rec.SessionID, nil
}

func (s *stubSubmissionStore) AppendCompareRows(rows []*CompareRow) error {
	s.rowCalls++
	if s.failRows != nil {
		return s.failRows
	}
	s.compareRows = append(s.compareRows, rows...)
	return nil
}

func (s *stubSubmissionStore) AppendRatingRows(rows []*RatingRow) error {
	s.rowCalls++
	if s.failRows != nil {
		return s.failRows
	}
	s.ratingRows = append(s.ratingRows, rows...)
	return nil
}

func newTestSessionService(store *stubSubmissionStore, perCategory int) *SessionService {
	svc := NewSessionService(&CatalogService{cached: testCatalog(perCategory)}, NewSubmissionService(store))
	svc.rng = rand.New(rand.NewSource(7))
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	svc.idGen = func() string { return "sess-test" }
	return svc
}

func fullRatings() map[ModelID]CriterionScores {
	out := map[ModelID]CriterionScores{}
	for i, m := range ModelIDs {
		v := i%MaxScore + 1
		out[m] = CriterionScores{Accuracy: v, Completeness: v, Conciseness: v, Readability: v}
	}
	return out
}

func TestBeginStartsAtFirstItem(t *testing.T) {
	svc := newTestSessionService(&stubSubmissionStore{}, 2)
	sess, err := svc.Begin(CompareFlow, 3)
	if err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	if sess.ID != "sess-test" {
		t.Fatalf("session id = %q", sess.ID)
	}
	if sess.State != StateInProgress || sess.Cursor != 0 {
		t.Fatalf("state=%s cursor=%d, want in_progress/0", sess.State, sess.Cursor)
	}
	if len(sess.Selected) != 3 {
		t.Fatalf("selected = %d items, want 3", len(sess.Selected))
	}
	if len(sess.Answers) != 0 {
		t.Fatalf("answers prefilled: %d", len(sess.Answers))
	}
	first := sess.Selected[0]
	if order := sess.ModelOrder[first.ID]; len(order) != 4 {
		t.Fatalf("first item has no model order assigned")
	}
}

func TestBeginCatalogUnavailable(t *testing.T) {
	svc := NewSessionService(NewCatalogService(""), NewSubmissionService(&stubSubmissionStore{}))
	if _, err := svc.Begin(CompareFlow, 3); !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("expected ErrCatalogUnavailable, got %v", err)
	}
}

func TestRecordAnswerDuplicateRejected(t *testing.T) {
	svc := newTestSessionService(&stubSubmissionStore{}, 1)
	sess, err := svc.Begin(CompareFlow, 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.RecordAnswer(sess, &Answer{SelectedModel: ModelGPT}); err != nil {
		t.Fatalf("first answer rejected: %v", err)
	}
	if err := svc.RecordAnswer(sess, &Answer{SelectedModel: ModelQwen}); !errors.Is(err, ErrDuplicateAnswer) {
		t.Fatalf("expected ErrDuplicateAnswer, got %v", err)
	}
	if len(sess.Answers) != 1 {
		t.Fatalf("answers = %d, want 1", len(sess.Answers))
	}
}

func TestRecordAnswerValidation(t *testing.T) {
	svc := newTestSessionService(&stubSubmissionStore{}, 1)

	sess, err := svc.Begin(CompareFlow, 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.RecordAnswer(sess, &Answer{SelectedModel: "llama"}); !errors.Is(err, ErrIncompleteAnswer) {
		t.Fatalf("unknown model: expected ErrIncompleteAnswer, got %v", err)
	}
	if err := svc.RecordAnswer(sess, &Answer{}); !errors.Is(err, ErrIncompleteAnswer) {
		t.Fatalf("empty choice: expected ErrIncompleteAnswer, got %v", err)
	}

	svc = newTestSessionService(&stubSubmissionStore{}, 1)
	sess, err = svc.Begin(RateFlow, 3)
	if err != nil {
		t.Fatal(err)
	}

	missingModel := fullRatings()
	delete(missingModel, ModelTyphoon)
	if err := svc.RecordAnswer(sess, &Answer{ModelRatings: missingModel}); !errors.Is(err, ErrIncompleteAnswer) {
		t.Fatalf("missing model: expected ErrIncompleteAnswer, got %v", err)
	}

	missingCriterion := fullRatings()
	sc := missingCriterion[ModelQwen]
	sc.Readability = 0
	missingCriterion[ModelQwen] = sc
	if err := svc.RecordAnswer(sess, &Answer{ModelRatings: missingCriterion}); !errors.Is(err, ErrIncompleteAnswer) {
		t.Fatalf("missing criterion: expected ErrIncompleteAnswer, got %v", err)
	}

	outOfRange := fullRatings()
	sc = outOfRange[ModelGPT]
	sc.Accuracy = 6
	outOfRange[ModelGPT] = sc
	if err := svc.RecordAnswer(sess, &Answer{ModelRatings: outOfRange}); !errors.Is(err, ErrIncompleteAnswer) {
		t.Fatalf("score 6: expected ErrIncompleteAnswer, got %v", err)
	}

	if err := svc.RecordAnswer(sess, &Answer{ModelRatings: fullRatings()}); err != nil {
		t.Fatalf("complete 16-score answer rejected: %v", err)
	}
	if got := sess.Answers[0]; got.NewsID != sess.Selected[0].ID || got.Category != sess.Selected[0].Category {
		t.Fatalf("answer not tagged with item id/category: %+v", got)
	}
}

func TestAdvanceRequiresRecordedAnswer(t *testing.T) {
	svc := newTestSessionService(&stubSubmissionStore{}, 1)
	sess, err := svc.Begin(CompareFlow, 3)
	if err != nil {
		t.Fatal(err)
	}
	err = svc.Advance(sess)
	if se, ok := AsServiceError(err); !ok || se.Code != ErrorConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if sess.Cursor != 0 {
		t.Fatalf("cursor moved without answer: %d", sess.Cursor)
	}
}

func TestCursorStaysInBounds(t *testing.T) {
	svc := newTestSessionService(&stubSubmissionStore{}, 2)
	sess, err := svc.Begin(CompareFlow, 6)
	if err != nil {
		t.Fatal(err)
	}

	// Retreat at the first item floors at zero.
	if err := svc.Retreat(sess); err != nil {
		t.Fatalf("retreat at index 0: %v", err)
	}
	if sess.Cursor != 0 {
		t.Fatalf("cursor = %d after retreat at 0", sess.Cursor)
	}

	for i := 0; i < len(sess.Selected); i++ {
		if err := svc.RecordAnswer(sess, &Answer{SelectedModel: ModelGPT}); err != nil {
			t.Fatalf("item %d: %v", i, err)
		}
		if err := svc.Advance(sess); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}
	// Advance at the last index must not increment past the bounds, and repeating
	// it stays a successful no-op.
	if err := svc.Advance(sess); err != nil {
		t.Fatalf("repeated advance at last index: %v", err)
	}
	if sess.Cursor != len(sess.Selected)-1 {
		t.Fatalf("cursor = %d, want %d", sess.Cursor, len(sess.Selected)-1)
	}
	if sess.State != StateInProgress {
		t.Fatalf("compare flow left in state %s", sess.State)
	}
}

func TestAdvanceAtLastIndexEntersDemographics(t *testing.T) {
	svc := newTestSessionService(&stubSubmissionStore{}, 1)
	sess, err := svc.Begin(RateFlow, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < len(sess.Selected); i++ {
		if err := svc.RecordAnswer(sess, &Answer{ModelRatings: fullRatings()}); err != nil {
			t.Fatal(err)
		}
		if err := svc.Advance(sess); err != nil {
			t.Fatal(err)
		}
	}
	if sess.State != StateAwaitingDemographics {
		t.Fatalf("state = %s, want awaiting_demographics", sess.State)
	}
}

func TestRevisitKeepsModelOrder(t *testing.T) {
	svc := newTestSessionService(&stubSubmissionStore{}, 2)
	sess, err := svc.Begin(CompareFlow, 6)
	if err != nil {
		t.Fatal(err)
	}
	firstID := sess.Selected[0].ID
	_, firstOrder, err := svc.Current(sess)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.RecordAnswer(sess, &Answer{SelectedModel: ModelPathumma}); err != nil {
		t.Fatal(err)
	}
	if err := svc.Advance(sess); err != nil {
		t.Fatal(err)
	}
	if err := svc.Retreat(sess); err != nil {
		t.Fatal(err)
	}
	item, order, err := svc.Current(sess)
	if err != nil {
		t.Fatal(err)
	}
	if item.ID != firstID {
		t.Fatalf("retreat landed on %s, want %s", item.ID, firstID)
	}
	for i := range firstOrder {
		if order[i] != firstOrder[i] {
			t.Fatalf("model order changed on revisit: %v vs %v", order, firstOrder)
		}
	}
}

func TestRetreatDisabledByFlow(t *testing.T) {
	svc := newTestSessionService(&stubSubmissionStore{}, 1)
	flow := CompareFlow
	flow.AllowBack = false
	sess, err := svc.Begin(flow, 3)
	if err != nil {
		t.Fatal(err)
	}
	err = svc.Retreat(sess)
	if se, ok := AsServiceError(err); !ok || se.Code != ErrorForbidden {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}

func TestDemographicsValidationBounds(t *testing.T) {
	valid := Demographics{Age: 25, Gender: "female", Occupation: "นักเรียน/นักศึกษา"}

	for _, age := range []int{0, -1, 121, 150} {
		d := valid
		d.Age = age
		if err := ValidateDemographics(&d); !errors.Is(err, ErrInvalidDemographics) {
			t.Fatalf("age %d: expected ErrInvalidDemographics, got %v", age, err)
		}
	}
	for _, age := range []int{1, 120} {
		d := valid
		d.Age = age
		if err := ValidateDemographics(&d); err != nil {
			t.Fatalf("age %d rejected: %v", age, err)
		}
	}

	d := valid
	d.Gender = "unknown"
	if err := ValidateDemographics(&d); !errors.Is(err, ErrInvalidDemographics) {
		t.Fatalf("bad gender: expected ErrInvalidDemographics, got %v", err)
	}
	d = valid
	d.Occupation = "astronaut"
	if err := ValidateDemographics(&d); !errors.Is(err, ErrInvalidDemographics) {
		t.Fatalf("bad occupation: expected ErrInvalidDemographics, got %v", err)
	}
	if err := ValidateDemographics(nil); !errors.Is(err, ErrInvalidDemographics) {
		t.Fatalf("nil demographics: expected ErrInvalidDemographics, got %v", err)
	}
}

// Compare flow end to end: one answer per item, submit straight from the last item,
// one session record and one answer row per item.
func TestCompareFlowEndToEnd(t *testing.T) {
	store := &stubSubmissionStore{}
	svc := newTestSessionService(store, 1)
	sess, err := svc.Begin(CompareFlow, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < len(sess.Selected); i++ {
		if err := svc.RecordAnswer(sess, &Answer{SelectedModel: ModelGPT}); err != nil {
			t.Fatal(err)
		}
		if err := svc.Advance(sess); err != nil {
			t.Fatal(err)
		}
	}
	recordID, err := svc.Submit(sess)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if recordID != "rec-sess-test" {
		t.Fatalf("record id = %q", recordID)
	}
	if sess.State != StateSubmitted {
		t.Fatalf("state = %s, want submitted", sess.State)
	}
	if store.recordCalls != 1 || len(store.records) != 1 {
		t.Fatalf("session record written %d times", store.recordCalls)
	}
	if rec := store.records[0]; rec.Mode != ModeCompare || rec.NewsCount != 3 || rec.Demographics != nil {
		t.Fatalf("unexpected session record: %+v", rec)
	}
	if len(store.compareRows) != 3 {
		t.Fatalf("compare rows = %d, want 3", len(store.compareRows))
	}
	for _, row := range store.compareRows {
		if row.SessionID != sess.ID || row.SelectedModel != ModelGPT {
			t.Fatalf("unexpected row: %+v", row)
		}
	}
}

// Rate flow with two items: 16 scores each, demographics, then 8 rows (2 items x 4 models).
func TestRateFlowEndToEnd(t *testing.T) {
	store := &stubSubmissionStore{}
	svc := newTestSessionService(store, 1)
	items := testCatalog(1)
	sess := &Session{
		ID:         "sess-rate",
		Flow:       RateFlow,
		State:      StateInProgress,
		Selected:   []*NewsItem{items[CategorySocial][0], items[CategoryEconomy][0]},
		ModelOrder: map[string][]ModelID{},
	}
	svc.visit(sess)

	for i := 0; i < 2; i++ {
		if err := svc.RecordAnswer(sess, &Answer{ModelRatings: fullRatings()}); err != nil {
			t.Fatal(err)
		}
		if err := svc.Advance(sess); err != nil {
			t.Fatal(err)
		}
	}
	if sess.State != StateAwaitingDemographics {
		t.Fatalf("state = %s, want awaiting_demographics", sess.State)
	}
	if err := svc.SetDemographics(sess, &Demographics{Age: 25, Gender: "female", Occupation: "นักเรียน/นักศึกษา"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Submit(sess); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if len(store.ratingRows) != 8 {
		t.Fatalf("rating rows = %d, want 8 (2 items x 4 models)", len(store.ratingRows))
	}
	if rec := store.records[0]; rec.Demographics == nil || rec.Demographics.Age != 25 {
		t.Fatalf("demographics not carried on session record: %+v", rec.Demographics)
	}
}

// A failed answer-row write leaves the session retryable; the retry re-attempts both
// steps under the same session id.
func TestSubmitRetryAfterRowFailure(t *testing.T) {
	store := &stubSubmissionStore{failRows: errors.New("network down")}
	svc := newTestSessionService(store, 1)
	sess, err := svc.Begin(RateFlow, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < len(sess.Selected); i++ {
		if err := svc.RecordAnswer(sess, &Answer{ModelRatings: fullRatings()}); err != nil {
			t.Fatal(err)
		}
		if err := svc.Advance(sess); err != nil {
			t.Fatal(err)
		}
	}
	if err := svc.SetDemographics(sess, &Demographics{Age: 30, Gender: "male", Occupation: "เกษตรกร"}); err != nil {
		t.Fatal(err)
	}

	_, err = svc.Submit(sess)
	var perr *PersistenceError
	if !errors.As(err, &perr) || perr.Stage != StageAnswerRows {
		t.Fatalf("expected answer-rows persistence error, got %v", err)
	}
	if sess.State != StateAwaitingDemographics {
		t.Fatalf("state after failure = %s, want awaiting_demographics", sess.State)
	}
	if len(sess.Answers) != 3 {
		t.Fatalf("answers lost on failure: %d", len(sess.Answers))
	}

	store.failRows = nil
	if _, err := svc.Submit(sess); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if store.recordCalls != 2 || store.rowCalls != 2 {
		t.Fatalf("retry did not re-attempt both steps: records=%d rows=%d", store.recordCalls, store.rowCalls)
	}
	if sess.State != StateSubmitted {
		t.Fatalf("state after retry = %s, want submitted", sess.State)
	}
}

func TestSubmitPreconditions(t *testing.T) {
	store := &stubSubmissionStore{}
	svc := newTestSessionService(store, 1)

	sess, err := svc.Begin(RateFlow, 3)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Submit(sess); err == nil {
		t.Fatal("submit accepted while demographics step pending")
	}

	sess.State = StateAwaitingDemographics
	if _, err := svc.Submit(sess); !errors.Is(err, ErrInvalidDemographics) {
		t.Fatalf("expected ErrInvalidDemographics without demographics, got %v", err)
	}

	sess.Demographics = &Demographics{Age: 20, Gender: "other", Occupation: "อื่นๆ"}
	sess.ID = ""
	if _, err := svc.Submit(sess); !errors.Is(err, ErrMissingSessionID) {
		t.Fatalf("expected ErrMissingSessionID, got %v", err)
	}
	if store.recordCalls != 0 {
		t.Fatalf("store touched despite failed preconditions: %d calls", store.recordCalls)
	}
}

func TestBeginConcurrentSessions(t *testing.T) {
	svc := newTestSessionService(&stubSubmissionStore{}, 2)

	var wg sync.WaitGroup
	errCh := make(chan error, 400)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				sess, err := svc.Begin(CompareFlow, 3)
				if err != nil {
					errCh <- err
					return
				}
				if len(sess.Selected) != 3 {
					errCh <- fmt.Errorf("selected %d items, want 3", len(sess.Selected))
					return
				}
				order := sess.ModelOrder[sess.Selected[0].ID]
				seen := map[ModelID]bool{}
				for _, m := range order {
					seen[m] = true
				}
				if len(order) != len(ModelIDs) || len(seen) != len(ModelIDs) {
					errCh <- fmt.Errorf("model order %v is not a permutation", order)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatal(err)
	}
}
