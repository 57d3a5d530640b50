package web

import (
	"fmt"
	"net/http"

	"github.com/evcraddock/house-market/internal/errs"
	"github.com/evcraddock/house-market/internal/inquiry"
)

type inquiryUpdateRequest struct {
	Status   inquiry.Status   `json:"status"`
	Priority inquiry.Priority `json:"priority"`
}

func (s *Server) apiCreateInquiry(w http.ResponseWriter, r *http.Request) {
	var in inquiry.Input
	if err := decodeJSON(r, &in); err != nil {
		apiFail(w, r, err)
		return
	}

	// Contact details default to the sender's profile.
	if u, err := s.currentUser(r); err == nil {
		if in.SenderName == "" {
			in.SenderName = u.Name
		}
		if in.SenderEmail == "" {
			in.SenderEmail = u.Email
		}
		if in.SenderPhone == "" {
			in.SenderPhone = u.Phone
		}
	}

	q, err := s.inquiries.Create(r.Context(), subject(r), r.PathValue("id"), in)
	if err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, q, http.StatusCreated)
}

func (s *Server) apiListInquiries(w http.ResponseWriter, r *http.Request) {
	var (
		list []*inquiry.Inquiry
		err  error
	)
	switch box := r.URL.Query().Get("box"); box {
	case "", "received":
		list, err = s.inquiries.ListReceived(r.Context(), subject(r))
	case "sent":
		list, err = s.inquiries.ListSent(r.Context(), subject(r))
	default:
		err = fmt.Errorf("%w: box must be received or sent", errs.ErrInvalid)
	}
	if err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, list, http.StatusOK)
}

func (s *Server) apiGetInquiry(w http.ResponseWriter, r *http.Request) {
	q, err := s.inquiries.Get(r.Context(), subject(r), r.PathValue("id"))
	if err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, q, http.StatusOK)
}

func (s *Server) apiUpdateInquiry(w http.ResponseWriter, r *http.Request) {
	var req inquiryUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		apiFail(w, r, err)
		return
	}
	if req.Status == "" && req.Priority == "" {
		apiFail(w, r, fmt.Errorf("%w: status or priority is required", errs.ErrInvalid))
		return
	}

	id := r.PathValue("id")
	var (
		q   *inquiry.Inquiry
		err error
	)
	if req.Status != "" {
		if q, err = s.inquiries.UpdateStatus(r.Context(), subject(r), id, req.Status); err != nil {
			apiFail(w, r, err)
			return
		}
	}
	if req.Priority != "" {
		if q, err = s.inquiries.UpdatePriority(r.Context(), subject(r), id, req.Priority); err != nil {
			apiFail(w, r, err)
			return
		}
	}
	apiJSON(w, q, http.StatusOK)
}

func (s *Server) apiDeleteInquiry(w http.ResponseWriter, r *http.Request) {
	if err := s.inquiries.Delete(r.Context(), subject(r), r.PathValue("id")); err != nil {
		apiFail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
