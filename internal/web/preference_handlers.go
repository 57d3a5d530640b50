package web

import (
	"net/http"
	"strconv"

	"github.com/evcraddock/house-market/internal/preference"
)

func (s *Server) apiGetPreferences(w http.ResponseWriter, r *http.Request) {
	p, err := s.prefs.Get(r.Context(), subject(r))
	if err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, p, http.StatusOK)
}

func (s *Server) apiTogglePreference(w http.ResponseWriter, r *http.Request) {
	list, err := preference.ParseList(r.PathValue("list"))
	if err != nil {
		apiFail(w, r, err)
		return
	}
	p, err := s.prefs.Toggle(r.Context(), subject(r), list, r.PathValue("id"))
	if err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, p, http.StatusOK)
}

func (s *Server) apiReplacePreference(w http.ResponseWriter, r *http.Request) {
	list, err := preference.ParseList(r.PathValue("list"))
	if err != nil {
		apiFail(w, r, err)
		return
	}
	var ids []string
	if err := decodeJSON(r, &ids); err != nil {
		apiFail(w, r, err)
		return
	}
	p, err := s.prefs.Replace(r.Context(), subject(r), list, ids)
	if err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, p, http.StatusOK)
}

func (s *Server) apiUpdatePreferenceSettings(w http.ResponseWriter, r *http.Request) {
	var in preference.Settings
	if err := decodeJSON(r, &in); err != nil {
		apiFail(w, r, err)
		return
	}
	p, err := s.prefs.UpdateSettings(r.Context(), subject(r), in)
	if err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, p, http.StatusOK)
}

func (s *Server) apiRecordSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := decodeJSON(r, &req); err != nil {
		apiFail(w, r, err)
		return
	}
	p, err := s.prefs.RecordSearch(r.Context(), subject(r), req.Query)
	if err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, p, http.StatusOK)
}

func (s *Server) apiAnalytics(w http.ResponseWriter, r *http.Request) {
	top, _ := strconv.Atoi(r.URL.Query().Get("top"))
	d, err := s.analytics.ForOwner(r.Context(), subject(r), top)
	if err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, d, http.StatusOK)
}
