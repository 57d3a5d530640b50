package web

import (
	"fmt"
	"net/http"

	"github.com/evcraddock/house-market/internal/errs"
	"github.com/evcraddock/house-market/internal/viewing"
)

func (s *Server) apiCreateViewing(w http.ResponseWriter, r *http.Request) {
	var in viewing.Input
	if err := decodeJSON(r, &in); err != nil {
		apiFail(w, r, err)
		return
	}
	v, err := s.viewings.Create(r.Context(), subject(r), r.PathValue("id"), in)
	if err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, v, http.StatusCreated)
}

func (s *Server) apiListViewings(w http.ResponseWriter, r *http.Request) {
	var (
		list []*viewing.Viewing
		err  error
	)
	switch role := r.URL.Query().Get("role"); role {
	case "", "requester":
		list, err = s.viewings.ListForRequester(r.Context(), subject(r))
	case "owner":
		list, err = s.viewings.ListForOwner(r.Context(), subject(r))
	default:
		err = fmt.Errorf("%w: role must be owner or requester", errs.ErrInvalid)
	}
	if err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, list, http.StatusOK)
}

func (s *Server) apiGetViewing(w http.ResponseWriter, r *http.Request) {
	v, err := s.viewings.Get(r.Context(), subject(r), r.PathValue("id"))
	if err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, v, http.StatusOK)
}

func (s *Server) apiUpdateViewing(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status viewing.Status `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		apiFail(w, r, err)
		return
	}
	v, err := s.viewings.UpdateStatus(r.Context(), subject(r), r.PathValue("id"), req.Status)
	if err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, v, http.StatusOK)
}

func (s *Server) apiDeleteViewing(w http.ResponseWriter, r *http.Request) {
	if err := s.viewings.Delete(r.Context(), subject(r), r.PathValue("id")); err != nil {
		apiFail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
