package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"psp.com/quizla/backend/internal/questionbank"
	"psp.com/quizla/backend/internal/quiz"
	"psp.com/quizla/backend/internal/routing"
	"psp.com/quizla/backend/internal/scorecard"
	"psp.com/quizla/backend/internal/session"
	"psp.com/quizla/backend/internal/settings"
	"psp.com/quizla/backend/internal/view"
)

// categoryInfo is a category as listed on the home and "more" views.
type categoryInfo struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	Color     string `json:"color"`
	Questions int    `json:"questions"`
	Link      string `json:"link"`
}

func info(c quiz.Category, scope questionbank.Scope) categoryInfo {
	return categoryInfo{
		Key:       c.Key,
		Name:      c.Name,
		Icon:      c.Icon,
		Color:     c.Color,
		Questions: len(c.Questions),
		Link:      routing.Link(c, scope),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		http.Error(w, "status unavailable", http.StatusNotFound)
		return
	}
	writeJSON(w, s.status.Status())
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	prim := s.bank.AllPrimary()
	out := make([]categoryInfo, 0, len(prim)+1)
	for _, c := range prim {
		out = append(out, info(c, questionbank.Primary))
	}
	if agg, ok := s.bank.Aggregate(); ok {
		out = append(out, info(agg, questionbank.Primary))
	}
	writeJSON(w, out)
}

func (s *Server) handleExtended(w http.ResponseWriter, r *http.Request) {
	found := s.bank.Search(r.URL.Query().Get("search"))
	out := make([]categoryInfo, 0, len(found))
	for _, c := range found {
		out = append(out, info(c, questionbank.Extended))
	}
	writeJSON(w, out)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	st := s.view.State()
	st.Notices = s.view.Notices()
	writeJSON(w, st)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.ctrl.Snapshot())
}

type startReq struct {
	Locator string   `json:"locator"`
	Keys    []string `json:"keys"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	switch {
	case len(req.Keys) > 0:
		if err := s.ctrl.StartSession(req.Keys...); err != nil {
			s.writeError(w, err)
			return
		}
	case strings.TrimSpace(req.Locator) != "":
		if _, err := s.opener.Open(r.Context(), req.Locator); err != nil {
			s.writeError(w, err)
			return
		}
	default:
		http.Error(w, "locator or keys required", http.StatusBadRequest)
		return
	}
	s.handleView(w, r)
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	s.ctrl.EndSession()
	s.handleView(w, r)
}

type answerReq struct {
	Option *int `json:"option"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Option == nil {
		http.Error(w, "option required", http.StatusBadRequest)
		return
	}
	if err := s.ctrl.SelectAnswer(*req.Option); err != nil {
		s.writeError(w, err)
		return
	}
	s.handleView(w, r)
}

func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.ToggleReveal(); err != nil {
		s.writeError(w, err)
		return
	}
	s.handleView(w, r)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Advance(); err != nil {
		s.writeError(w, err)
		return
	}
	s.handleView(w, r)
}

func (s *Server) handleScorecard(w http.ResponseWriter, r *http.Request) {
	snap := s.ctrl.Snapshot()
	if snap.SessionID == "" {
		s.writeError(w, session.ErrNoSession)
		return
	}
	rows := make([]scorecard.CategoryScore, 0, len(snap.Breakdown))
	for _, b := range snap.Breakdown {
		rows = append(rows, scorecard.CategoryScore{Category: b.Name, Correct: b.Correct, Answered: b.Answered})
	}
	pdf, err := scorecard.GeneratePDF(scorecard.Data{
		SessionID:   snap.SessionID,
		Title:       snap.Title,
		Correct:     snap.Score.Correct,
		Answered:    snap.Score.Answered,
		Date:        s.now(),
		Categories:  snap.Categories,
		PerCategory: rows,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+scorecard.FileName(snap.SessionID))
	w.Write(pdf)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.ctrl.Settings())
}

type toggleResp struct {
	Name     string            `json:"name"`
	Value    bool              `json:"value"`
	Affected []string          `json:"affected"`
	Settings settings.Settings `json:"settings"`
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	ch, err := s.ctrl.ToggleSetting(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, toggleResp{Name: ch.Name, Value: ch.Value, Affected: ch.Affected(), Settings: s.ctrl.Settings()})
}

type durationReq struct {
	Seconds int `json:"seconds"`
}

func (s *Server) handleTimerDuration(w http.ResponseWriter, r *http.Request) {
	var req durationReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if err := s.ctrl.SetTimerDuration(r.Context(), req.Seconds); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, s.ctrl.Settings())
}

// handleLocator serves the shareable links: "/", "/quiz/{slug}", "/blanda",
// "/fler-quiz", "/installningar" and combined links like "/fotboll-star_wars".
// An unknown locator shows the home view.
func (s *Server) handleLocator(w http.ResponseWriter, r *http.Request) {
	route, err := s.opener.Open(r.Context(), r.URL.Path)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, struct {
		Route routing.Route `json:"route"`
		View  view.State    `json:"view"`
	}{route, s.view.State()})
}
