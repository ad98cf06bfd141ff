package services

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionState tracks where a respondent is in the survey flow.
type SessionState string

const (
	StateNotStarted           SessionState = "not_started"
	StateInProgress           SessionState = "in_progress"
	StateAwaitingDemographics SessionState = "awaiting_demographics"
	StateSubmitted            SessionState = "submitted"
)

// Session is one respondent's run from start screen to submission. It owns its answer
// list and demographics; the selected items are read-only references into the catalog.
type Session struct {
	ID           string
	Flow         FlowConfig
	State        SessionState
	Selected     []*NewsItem
	Cursor       int
	ModelOrder   map[string][]ModelID
	Answers      []*Answer
	Demographics *Demographics
	StartedAt    time.Time
}

// CurrentItem returns the item under the cursor, or nil before begin.
func (sess *Session) CurrentItem() *NewsItem {
	if len(sess.Selected) == 0 || sess.Cursor < 0 || sess.Cursor >= len(sess.Selected) {
		return nil
	}
	return sess.Selected[sess.Cursor]
}

// LastItem reports whether the cursor sits on the final item.
func (sess *Session) LastItem() bool {
	return len(sess.Selected) > 0 && sess.Cursor == len(sess.Selected)-1
}

func (sess *Session) answered(newsID string) bool {
	for _, a := range sess.Answers {
		if a.NewsID == newsID {
			return true
		}
	}
	return false
}

// SessionService drives the survey state machine. Callers serialize events per session;
// the service itself holds no per-session locks. The generator is shared across
// sessions, so every draw goes through rngMu: *rand.Rand is not goroutine-safe and
// concurrent Begins would otherwise corrupt the shuffle state.
type SessionService struct {
	catalog   *CatalogService
	submitter *SubmissionService
	rngMu     sync.Mutex
	rng       *rand.Rand
	now       func() time.Time
	idGen     func() string
}

func NewSessionService(catalog *CatalogService, submitter *SubmissionService) *SessionService {
	return &SessionService{
		catalog:   catalog,
		submitter: submitter,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       func() time.Time { return time.Now().UTC() },
		idGen:     uuid.NewString,
	}
}

// Begin creates a session over freshly selected items and moves it straight to
// InProgress at the first item. The first item's model order is assigned here.
func (s *SessionService) Begin(flow FlowConfig, count int) (*Session, error) {
	catalog, err := s.catalog.Load()
	if err != nil {
		return nil, err
	}
	s.rngMu.Lock()
	selected, err := SelectNews(catalog, count, s.rng)
	s.rngMu.Unlock()
	if err != nil {
		return nil, err
	}
	sess := &Session{
		ID:         s.idGen(),
		Flow:       flow,
		State:      StateInProgress,
		Selected:   selected,
		Cursor:     0,
		ModelOrder: map[string][]ModelID{},
		StartedAt:  s.now(),
	}
	s.visit(sess)
	return sess, nil
}

// visit assigns the model presentation order for the current item exactly once and
// returns it; revisits get the cached permutation.
func (s *SessionService) visit(sess *Session) []ModelID {
	item := sess.Selected[sess.Cursor]
	if order, ok := sess.ModelOrder[item.ID]; ok {
		return order
	}
	s.rngMu.Lock()
	order := ShuffleModels(s.rng)
	s.rngMu.Unlock()
	sess.ModelOrder[item.ID] = order
	return order
}

// Current returns the item under the cursor together with its model order.
func (s *SessionService) Current(sess *Session) (*NewsItem, []ModelID, error) {
	if sess.State != StateInProgress {
		return nil, nil, NewConflictError("session has no current item in state " + string(sess.State))
	}
	return sess.Selected[sess.Cursor], s.visit(sess), nil
}

// RecordAnswer validates and appends the answer for the current item. Validation
// failures never advance state; a second answer for the same item is rejected.
func (s *SessionService) RecordAnswer(sess *Session, ans *Answer) error {
	if sess.State != StateInProgress {
		return NewConflictError("session is not accepting answers")
	}
	item := sess.Selected[sess.Cursor]
	if ans == nil || (ans.NewsID != "" && ans.NewsID != item.ID) {
		return fmt.Errorf("%w: answer does not target the current item", ErrIncompleteAnswer)
	}
	if sess.answered(item.ID) {
		return ErrDuplicateAnswer
	}
	if err := validateAnswer(sess.Flow.Mode, ans); err != nil {
		return err
	}
	ans.NewsID = item.ID
	ans.Category = item.Category
	sess.Answers = append(sess.Answers, ans)
	return nil
}

func validateAnswer(mode SurveyMode, ans *Answer) error {
	switch mode {
	case ModeCompare:
		if !validModel(ans.SelectedModel) {
			return fmt.Errorf("%w: selected model %q is not one of the compared models", ErrIncompleteAnswer, ans.SelectedModel)
		}
	case ModeRate:
		for _, m := range ModelIDs {
			sc, ok := ans.ModelRatings[m]
			if !ok {
				return fmt.Errorf("%w: no scores for model %s", ErrIncompleteAnswer, m)
			}
			if !sc.inRange() {
				return fmt.Errorf("%w: scores for model %s must be %d-%d on every criterion", ErrIncompleteAnswer, m, MinScore, MaxScore)
			}
		}
		if len(ans.ModelRatings) != len(ModelIDs) {
			return fmt.Errorf("%w: unexpected extra model ratings", ErrIncompleteAnswer)
		}
	default:
		return NewInvalidError("unknown survey mode " + string(mode))
	}
	return nil
}

func validModel(m ModelID) bool {
	for _, known := range ModelIDs {
		if m == known {
			return true
		}
	}
	return false
}

// Advance moves the cursor forward once the current item has an answer. At the last
// index it transitions out of InProgress instead of incrementing past the bounds:
// flows with a demographics step enter AwaitingDemographics, the rest stay on the last
// item ready for Submit. In those flows repeated advances at the end are accepted
// no-ops; callers read the view's last flag rather than an error.
func (s *SessionService) Advance(sess *Session) error {
	if sess.State != StateInProgress {
		return NewConflictError("session is not navigable")
	}
	item := sess.Selected[sess.Cursor]
	if !sess.answered(item.ID) {
		return NewConflictError("current item has no recorded answer")
	}
	if sess.LastItem() {
		if sess.Flow.RequireDemographics {
			sess.State = StateAwaitingDemographics
		}
		return nil
	}
	sess.Cursor++
	s.visit(sess)
	return nil
}

// Retreat steps back one item, floored at zero. Only flows configured for back
// navigation permit it.
func (s *SessionService) Retreat(sess *Session) error {
	if !sess.Flow.AllowBack {
		return NewForbiddenError("back navigation is disabled for this flow")
	}
	if sess.State != StateInProgress {
		return NewConflictError("session is not navigable")
	}
	if sess.Cursor > 0 {
		sess.Cursor--
	}
	return nil
}

// SetDemographics validates and attaches the respondent profile. Valid only while the
// session awaits demographics.
func (s *SessionService) SetDemographics(sess *Session, d *Demographics) error {
	if sess.State != StateAwaitingDemographics {
		return NewConflictError("demographics are not expected in state " + string(sess.State))
	}
	if err := ValidateDemographics(d); err != nil {
		return err
	}
	sess.Demographics = d
	return nil
}

// ValidateDemographics enforces the closed demographic sets and inclusive age bounds.
func ValidateDemographics(d *Demographics) error {
	if d == nil {
		return fmt.Errorf("%w: demographics required", ErrInvalidDemographics)
	}
	if d.Age < MinAge || d.Age > MaxAge {
		return fmt.Errorf("%w: age %d outside %d-%d", ErrInvalidDemographics, d.Age, MinAge, MaxAge)
	}
	if !containsString(Genders, d.Gender) {
		return fmt.Errorf("%w: unknown gender %q", ErrInvalidDemographics, d.Gender)
	}
	if !containsString(Occupations, d.Occupation) {
		return fmt.Errorf("%w: unknown occupation %q", ErrInvalidDemographics, d.Occupation)
	}
	return nil
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Submit delegates to the submission gateway. Valid from AwaitingDemographics with
// demographics attached, or from the final InProgress position in flows without a
// demographics step. On failure the session keeps its state and answers so the
// respondent may press submit again.
func (s *SessionService) Submit(sess *Session) (string, error) {
	switch sess.State {
	case StateInProgress:
		if sess.Flow.RequireDemographics {
			return "", NewConflictError("demographics step pending")
		}
		if !sess.LastItem() || len(sess.Answers) != len(sess.Selected) {
			return "", fmt.Errorf("%w: %d of %d items answered", ErrIncompleteAnswer, len(sess.Answers), len(sess.Selected))
		}
	case StateAwaitingDemographics:
		if sess.Demographics == nil {
			return "", fmt.Errorf("%w: demographics required before submit", ErrInvalidDemographics)
		}
	default:
		return "", NewConflictError("session cannot be submitted from state " + string(sess.State))
	}
	if sess.ID == "" {
		return "", ErrMissingSessionID
	}
	recordID, err := s.submitter.Submit(sess)
	if err != nil {
		return "", err
	}
	sess.State = StateSubmitted
	return recordID, nil
}
