package web

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/evcraddock/house-market/internal/auth"
	"github.com/evcraddock/house-market/internal/errs"
	"github.com/evcraddock/house-market/internal/property"
)

const (
	maxUploadBytes = 32 << 20
	visitorCookie  = "hm_visit"
)

// viewerSession identifies the browsing session a view belongs to: the
// signed-in session, or else a browser-session cookie issued on demand.
func viewerSession(w http.ResponseWriter, r *http.Request) string {
	if sid, ok := auth.SessionIDFromContext(r.Context()); ok {
		return sid
	}
	if c, err := r.Cookie(visitorCookie); err == nil && c.Value != "" {
		return "visit:" + c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     visitorCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return "visit:" + id
}

func (s *Server) apiListProperties(w http.ResponseWriter, r *http.Request) {
	opts, err := property.ParseListOptions(r.URL.Query())
	if err != nil {
		apiFail(w, r, err)
		return
	}
	props, err := s.props.List(r.Context(), opts)
	if err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, props, http.StatusOK)
}

func (s *Server) apiMyProperties(w http.ResponseWriter, r *http.Request) {
	props, err := s.props.ListByOwner(r.Context(), subject(r).UserID)
	if err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, props, http.StatusOK)
}

func (s *Server) apiGetProperty(w http.ResponseWriter, r *http.Request) {
	p, err := s.props.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, p, http.StatusOK)
}

// lister returns the contact details copied onto a new listing.
func (s *Server) lister(r *http.Request) (property.Lister, error) {
	u, err := s.currentUser(r)
	if err != nil {
		return property.Lister{}, err
	}
	return property.Lister{Name: u.Name, Email: u.Email, Phone: u.Phone}, nil
}

// apiCreateProperty accepts a JSON body, or a multipart form whose "data"
// field holds the JSON and whose "images" files are attached in order.
func (s *Server) apiCreateProperty(w http.ResponseWriter, r *http.Request) {
	var in property.Input
	var images []property.Image

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			apiError(w, "invalid upload", http.StatusBadRequest)
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		if err := json.Unmarshal([]byte(r.FormValue("data")), &in); err != nil {
			apiFail(w, r, fmt.Errorf("%w: data: %v", errs.ErrInvalid, err))
			return
		}

		files, closeAll, err := openImages(r.MultipartForm.File["images"])
		defer closeAll()
		if err != nil {
			apiFail(w, r, err)
			return
		}
		images = files
	} else if err := decodeJSON(r, &in); err != nil {
		apiFail(w, r, err)
		return
	}

	lister, err := s.lister(r)
	if err != nil {
		apiFail(w, r, err)
		return
	}

	p, err := s.props.Create(r.Context(), subject(r), lister, in, images)
	if err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, p, http.StatusCreated)
}

// openImages opens uploaded files in order. The returned func closes them.
func openImages(headers []*multipart.FileHeader) ([]property.Image, func(), error) {
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	images := make([]property.Image, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, fmt.Errorf("opening upload %s: %w", fh.Filename, err)
		}
		opened = append(opened, f)
		images = append(images, property.Image{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Body:        f,
		})
	}
	return images, closeAll, nil
}

func (s *Server) apiUpdateProperty(w http.ResponseWriter, r *http.Request) {
	var patch property.Patch
	if err := decodeJSON(r, &patch); err != nil {
		apiFail(w, r, err)
		return
	}
	p, err := s.props.Update(r.Context(), subject(r), r.PathValue("id"), patch)
	if err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, p, http.StatusOK)
}

func (s *Server) apiDeleteProperty(w http.ResponseWriter, r *http.Request) {
	if err := s.props.Delete(r.Context(), subject(r), r.PathValue("id")); err != nil {
		apiFail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) apiViewProperty(w http.ResponseWriter, r *http.Request) {
	counted, err := s.props.View(r.Context(), viewerSession(w, r), r.PathValue("id"))
	if err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, map[string]bool{"counted": counted}, http.StatusOK)
}
