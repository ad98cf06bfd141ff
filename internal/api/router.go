package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirikarn-cs/SumRate/internal/middleware"
	"github.com/sirikarn-cs/SumRate/internal/services"
	"github.com/sirikarn-cs/SumRate/internal/utils"
)

// DefaultNewsCount is used when a begin request does not name a count. It satisfies
// the even split across the three categories.
const DefaultNewsCount = 3

type Router struct {
	store     Store
	registry  *sessionRegistry
	sessions  *services.SessionService
	auth      *services.AuthService
	analytics *services.AnalyticsService
}

func NewRouter(store Store, catalogSource string) *Router {
	catalog := services.NewCatalogService(catalogSource)
	return &Router{
		store:     store,
		registry:  newSessionRegistry(),
		sessions:  services.NewSessionService(catalog, services.NewSubmissionService(store)),
		auth:      services.NewAuthService(store, middleware.SignToken),
		analytics: services.NewAnalyticsService(store),
	}
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/sessions", rt.handleSessions)       // POST
	mux.HandleFunc("/api/sessions/", rt.handleSessionScoped) // GET/POST/DELETE
	mux.HandleFunc("/api/auth/register", rt.handleRegister)  // POST
	mux.HandleFunc("/api/auth/login", rt.handleLogin)        // POST
	mux.Handle("/api/export", middleware.RequireAuth(http.HandlerFunc(rt.handleExport)))           // GET
	mux.Handle("/api/metrics/summary", middleware.RequireAuth(http.HandlerFunc(rt.handleMetrics))) // GET
}

// sessionView is what the frontend renders for one step of the flow.
type sessionView struct {
	SessionID  string                `json:"session_id"`
	Mode       services.SurveyMode   `json:"mode"`
	State      services.SessionState `json:"state"`
	Index      int                   `json:"index"`
	Total      int                   `json:"total"`
	Last       bool                  `json:"last"`
	Answered   int                   `json:"answered"`
	News       *services.NewsItem    `json:"news,omitempty"`
	ModelOrder []services.ModelID    `json:"model_order,omitempty"`
}

func (rt *Router) viewOf(sess *services.Session) *sessionView {
	v := &sessionView{
		SessionID: sess.ID,
		Mode:      sess.Flow.Mode,
		State:     sess.State,
		Index:     sess.Cursor,
		Total:     len(sess.Selected),
		Last:      sess.LastItem(),
		Answered:  len(sess.Answers),
	}
	if sess.State == services.StateInProgress {
		if item, order, err := rt.sessions.Current(sess); err == nil {
			v.News = item
			v.ModelOrder = order
		}
	}
	return v
}

// POST /api/sessions
// { mode: "compare"|"rate", count?: int }
func (rt *Router) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Mode  services.SurveyMode `json:"mode"`
		Count int                 `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	flow, ok := services.FlowForMode(req.Mode)
	if !ok {
		http.Error(w, "unknown mode", http.StatusBadRequest)
		return
	}
	count := req.Count
	if count == 0 {
		count = DefaultNewsCount
	}
	sess, err := rt.sessions.Begin(flow, count)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.registry.add(sess)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rt.viewOf(sess))
}

// GET/DELETE /api/sessions/{id}
// POST /api/sessions/{id}/{answers|advance|retreat|demographics|submit}
func (rt *Router) handleSessionScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.Split(rest, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	id := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			rt.respondWithView(w, r, id, func(*services.Session) error { return nil })
		case http.MethodDelete:
			// Returning to the start screen destroys the session.
			if !rt.registry.remove(id) {
				http.Error(w, "session not found", http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	switch parts[1] {
	case "answers":
		var ans services.Answer
		if err := json.NewDecoder(r.Body).Decode(&ans); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rt.respondWithView(w, r, id, func(sess *services.Session) error {
			return rt.sessions.RecordAnswer(sess, &ans)
		})
	case "advance":
		rt.respondWithView(w, r, id, rt.sessions.Advance)
	case "retreat":
		rt.respondWithView(w, r, id, rt.sessions.Retreat)
	case "demographics":
		var d services.Demographics
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rt.respondWithView(w, r, id, func(sess *services.Session) error {
			return rt.sessions.SetDemographics(sess, &d)
		})
	case "submit":
		rt.handleSubmit(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

// respondWithView runs op under the registry lock and echoes the session view.
func (rt *Router) respondWithView(w http.ResponseWriter, r *http.Request, id string, op func(*services.Session) error) {
	var view *sessionView
	err := rt.registry.do(id, func(sess *services.Session) error {
		if err := op(sess); err != nil {
			return err
		}
		view = rt.viewOf(sess)
		return nil
	})
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(view)
}

func (rt *Router) handleSubmit(w http.ResponseWriter, r *http.Request, id string) {
	var recordID string
	err := rt.registry.do(id, func(sess *services.Session) error {
		var err error
		recordID, err = rt.sessions.Submit(sess)
		return err
	})
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	// Submitted sessions are done; drop them so the registry does not grow forever.
	rt.registry.remove(id)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "record_id": recordID})
}

// POST /api/auth/register
func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := rt.auth.Register(req.Email, req.Password)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"token": res.Token, "user_id": res.UserID})
}

// POST /api/auth/login
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := rt.auth.Login(req.Email, req.Password)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"token": res.Token, "user_id": res.UserID})
}

// GET /api/export?kind=compare|rate|sessions
func (rt *Router) handleExport(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		kind = "sessions"
	}
	var (
		b        []byte
		err      error
		filename string
	)
	switch kind {
	case "compare":
		var rows []*services.CompareRow
		if rows, err = rt.store.ListCompareRows(); err == nil {
			b, err = services.ExportCompareCSV(rows)
		}
		filename = "compare_answers.csv"
	case "rate":
		var rows []*services.RatingRow
		if rows, err = rt.store.ListRatingRows(); err == nil {
			b, err = services.ExportRatingCSV(rows)
		}
		filename = "rating_answers.csv"
	case "sessions":
		var records []*services.SessionRecord
		if records, err = rt.store.ListSessionRecords(); err == nil {
			b, err = services.ExportSessionsCSV(records)
		}
		filename = "survey_responses.csv"
	default:
		http.Error(w, "unsupported kind", http.StatusBadRequest)
		return
	}
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	_, _ = w.Write(b)
}

// GET /api/metrics/summary
func (rt *Router) handleMetrics(w http.ResponseWriter, r *http.Request) {
	summary, err := rt.analytics.Summary()
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summary)
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	locale := middleware.LocaleFromContext(r.Context())
	status := http.StatusInternalServerError
	msg := err.Error()

	var perr *services.PersistenceError
	switch {
	case errors.Is(err, services.ErrCatalogUnavailable):
		status = http.StatusServiceUnavailable
		msg = utils.T(locale, "catalog.unavailable")
	case errors.Is(err, services.ErrInvalidCount),
		errors.Is(err, services.ErrIncompleteAnswer),
		errors.Is(err, services.ErrInvalidDemographics):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrDuplicateAnswer):
		status = http.StatusConflict
	case errors.As(err, &perr):
		status = http.StatusBadGateway
		msg = utils.T(locale, "submit.failed")
	default:
		if se, ok := services.AsServiceError(err); ok {
			switch se.Code {
			case services.ErrorInvalid:
				status = http.StatusBadRequest
			case services.ErrorUnauthorized:
				status = http.StatusUnauthorized
			case services.ErrorForbidden:
				status = http.StatusForbidden
			case services.ErrorNotFound:
				status = http.StatusNotFound
			case services.ErrorConflict:
				status = http.StatusConflict
			case services.ErrorUnavailable:
				status = http.StatusServiceUnavailable
			}
		}
	}
	http.Error(w, msg, status)
}
