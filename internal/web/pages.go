package web

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/evcraddock/house-market/internal/analytics"
	"github.com/evcraddock/house-market/internal/auth"
	"github.com/evcraddock/house-market/internal/email"
	"github.com/evcraddock/house-market/internal/errs"
	"github.com/evcraddock/house-market/internal/inquiry"
	"github.com/evcraddock/house-market/internal/membership"
	"github.com/evcraddock/house-market/internal/preference"
	"github.com/evcraddock/house-market/internal/profile"
	"github.com/evcraddock/house-market/internal/property"
	"github.com/evcraddock/house-market/internal/viewing"
)

var funcMap = template.FuncMap{
	"formatPrice": func(p int64) string { return "$" + email.FormatWithCommas(p) },
	"formatFloat": func(f float64) string {
		if f == float64(int64(f)) {
			return strconv.FormatInt(int64(f), 10)
		}
		return strconv.FormatFloat(f, 'f', 1, 64)
	},
	"formatTime": func(t time.Time) string { return t.UTC().Format("Jan 2, 2006 15:04 MST") },
	"contains":   membership.Contains,
}

// pageData is passed to every page template.
type pageData struct {
	Title   string
	User    *profile.User
	Error   string
	Message string
	Data    any
}

func (s *Server) render(w http.ResponseWriter, name string, data pageData) {
	s.renderStatus(w, http.StatusOK, name, data)
}

// renderStatus executes a page template into a buffer so that a template
// error never produces a half-written page.
func (s *Server) renderStatus(w http.ResponseWriter, code int, name string, data pageData) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("rendering template", "template", name, "err", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("writing page", "template", name, "err", err)
	}
}

// page builds pageData for the current user.
func (s *Server) page(r *http.Request, title string, data any) pageData {
	pd := pageData{Title: title, Data: data}
	if u, err := s.currentUser(r); err == nil {
		pd.User = u
	}
	pd.Message = r.URL.Query().Get("msg")
	return pd
}

// pageError renders a page-level failure with a status derived from err.
func (s *Server) pageError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusFor(err)
	if code == http.StatusInternalServerError {
		slog.Error("page failed", "path", r.URL.Path, "err", err)
	}
	pd := s.page(r, "Error", nil)
	pd.Error = msg
	s.renderStatus(w, code, "error.html", pd)
}

func redirectMsg(w http.ResponseWriter, r *http.Request, path, msg string) {
	if msg != "" {
		path += "?msg=" + url.QueryEscape(msg)
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// userMessage turns an auth failure into text for a form.
func userMessage(err error) string {
	code, msg := statusFor(err)
	if code == http.StatusInternalServerError {
		return "Something went wrong. Please try again."
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

func (s *Server) registerPages() {
	m := s.mux

	m.HandleFunc("GET /{$}", s.handleLanding)
	m.HandleFunc("GET /signin", s.handleSignInPage)
	m.HandleFunc("POST /signin", s.handleSignInSubmit)
	m.HandleFunc("GET /signup", s.handleSignUpPage)
	m.HandleFunc("POST /signup", s.handleSignUpSubmit)
	m.HandleFunc("GET /confirm", s.handleConfirmPage)
	m.HandleFunc("POST /confirm", s.handleConfirmSubmit)
	m.HandleFunc("GET /reset", s.handleResetPage)
	m.HandleFunc("POST /reset", s.handleResetSubmit)
	m.HandleFunc("POST /signout", s.handleSignOut)

	m.HandleFunc("GET /dashboard", s.handleDashboard)
	m.HandleFunc("GET /properties", s.handleProperties)
	m.HandleFunc("GET /properties/new", s.handleNewPropertyPage)
	m.HandleFunc("POST /properties/new", s.handleNewPropertySubmit)
	m.HandleFunc("GET /properties/{id}", s.handlePropertyDetail)
	m.HandleFunc("POST /properties/{id}/favorite", s.handleToggle(preference.Favorites))
	m.HandleFunc("POST /properties/{id}/catalogue", s.handleToggle(preference.Catalogue))
	m.HandleFunc("POST /properties/{id}/inquire", s.handleInquire)
	m.HandleFunc("POST /properties/{id}/viewing", s.handleRequestViewing)
	m.HandleFunc("GET /favorites", s.handleSaved(preference.Favorites, "Favorites"))
	m.HandleFunc("GET /catalogue", s.handleSaved(preference.Catalogue, "Catalogue"))
	m.HandleFunc("GET /inquiries", s.handleInquiries)
	m.HandleFunc("POST /inquiries/{id}", s.handleInquiryUpdate)
	m.HandleFunc("GET /viewings", s.handleViewings)
	m.HandleFunc("POST /viewings/{id}", s.handleViewingUpdate)
	m.HandleFunc("GET /profile", s.handleProfile)
	m.HandleFunc("POST /profile", s.handleProfileSubmit)
}

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	props, err := s.props.List(r.Context(), property.ListOptions{Status: property.StatusAvailable, Limit: 6})
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	s.render(w, "landing.html", s.page(r, "House Market", props))
}

type authForm struct {
	Email string
	Name  string
	Stage string
}

func (s *Server) handleSignInPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, "signin.html", s.page(r, "Sign in", authForm{Email: r.URL.Query().Get("email")}))
}

func (s *Server) handleSignInSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	form := authForm{Email: strings.TrimSpace(r.FormValue("email"))}

	acct, err := s.signIn(r, form.Email, r.FormValue("password"))
	if errors.Is(err, errs.ErrUnconfirmed) {
		http.Redirect(w, r, "/confirm?email="+url.QueryEscape(form.Email), http.StatusSeeOther)
		return
	}
	if err != nil {
		code := http.StatusOK
		if errors.Is(err, errs.ErrRateLimited) {
			code = http.StatusTooManyRequests
		}
		pd := s.page(r, "Sign in", form)
		pd.Error = userMessage(err)
		s.renderStatus(w, code, "signin.html", pd)
		return
	}

	if _, err := s.startSession(w, acct); err != nil {
		s.pageError(w, r, err)
		return
	}
	slog.Info("login success", "user", acct.ID, "method", "password")
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleSignUpPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, "signup.html", s.page(r, "Sign up", authForm{}))
}

func (s *Server) handleSignUpSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	form := authForm{Email: strings.TrimSpace(r.FormValue("email")), Name: strings.TrimSpace(r.FormValue("name"))}

	if _, err := s.accounts.SignUp(form.Email, r.FormValue("password"), form.Name); err != nil {
		pd := s.page(r, "Sign up", form)
		pd.Error = userMessage(err)
		s.render(w, "signup.html", pd)
		return
	}
	http.Redirect(w, r, "/confirm?email="+url.QueryEscape(form.Email), http.StatusSeeOther)
}

func (s *Server) handleConfirmPage(w http.ResponseWriter, r *http.Request) {
	pd := s.page(r, "Confirm your account", authForm{Email: r.URL.Query().Get("email")})
	if pd.Message == "" {
		pd.Message = "Enter the code we emailed you."
	}
	s.render(w, "confirm.html", pd)
}

func (s *Server) handleConfirmSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	form := authForm{Email: strings.TrimSpace(r.FormValue("email"))}

	if r.FormValue("action") == "resend" {
		if err := s.accounts.ResendCode(form.Email); err != nil {
			pd := s.page(r, "Confirm your account", form)
			pd.Error = userMessage(err)
			s.render(w, "confirm.html", pd)
			return
		}
		http.Redirect(w, r, "/confirm?email="+url.QueryEscape(form.Email), http.StatusSeeOther)
		return
	}

	if err := s.accounts.ConfirmSignUp(form.Email, strings.TrimSpace(r.FormValue("code"))); err != nil {
		pd := s.page(r, "Confirm your account", form)
		pd.Error = userMessage(err)
		s.render(w, "confirm.html", pd)
		return
	}
	redirectMsg(w, r, "/signin", "Account confirmed. Please sign in.")
}

func (s *Server) handleResetPage(w http.ResponseWriter, r *http.Request) {
	form := authForm{Email: r.URL.Query().Get("email"), Stage: "request"}
	if form.Email != "" {
		form.Stage = "confirm"
	}
	s.render(w, "reset.html", s.page(r, "Reset password", form))
}

func (s *Server) handleResetSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	form := authForm{Email: strings.TrimSpace(r.FormValue("email")), Stage: "confirm"}

	code := strings.TrimSpace(r.FormValue("code"))
	if code == "" {
		if err := s.accounts.ForgotPassword(form.Email); err != nil {
			form.Stage = "request"
			pd := s.page(r, "Reset password", form)
			pd.Error = userMessage(err)
			s.render(w, "reset.html", pd)
			return
		}
		http.Redirect(w, r, "/reset?email="+url.QueryEscape(form.Email), http.StatusSeeOther)
		return
	}

	if err := s.accounts.ConfirmResetPassword(form.Email, code, r.FormValue("password")); err != nil {
		pd := s.page(r, "Reset password", form)
		pd.Error = userMessage(err)
		s.render(w, "reset.html", pd)
		return
	}
	redirectMsg(w, r, "/signin", "Password updated. Please sign in.")
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(auth.CookieName); err == nil {
		if err := s.sessions.Destroy(c.Value); err != nil {
			slog.Error("destroying session", "err", err)
		}
	}
	s.sessions.ClearCookie(w)
	http.Redirect(w, r, "/signin", http.StatusSeeOther)
}

type dashboardData struct {
	Stats      *analytics.Dashboard
	Properties []*property.Property
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sub := subject(r)
	stats, err := s.analytics.ForOwner(r.Context(), sub, analytics.DefaultTopN)
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	props, err := s.props.ListByOwner(r.Context(), sub.UserID)
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	s.render(w, "dashboard.html", s.page(r, "Dashboard", dashboardData{Stats: stats, Properties: props}))
}

type listingsData struct {
	Properties []*property.Property
	Filter     property.ListOptions
	Favorites  []string
	Catalogue  []string
}

func (s *Server) handleProperties(w http.ResponseWriter, r *http.Request) {
	opts, err := property.ParseListOptions(r.URL.Query())
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	props, err := s.props.List(r.Context(), opts)
	if err != nil {
		s.pageError(w, r, err)
		return
	}

	pref, err := s.prefs.Get(r.Context(), subject(r))
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	if opts.Search != "" {
		if _, err := s.prefs.RecordSearch(r.Context(), subject(r), opts.Search); err != nil {
			slog.Warn("recording search", "err", err)
		}
	}

	s.render(w, "properties.html", s.page(r, "Properties", listingsData{
		Properties: props,
		Filter:     opts,
		Favorites:  pref.Favorites,
		Catalogue:  pref.Catalogue,
	}))
}

type detailData struct {
	Property  *property.Property
	Owner     bool
	Favorite  bool
	Catalogue bool
}

func (s *Server) handlePropertyDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.props.View(r.Context(), viewerSession(w, r), id); err != nil && !errors.Is(err, errs.ErrNotFound) {
		slog.Warn("recording view", "property", id, "err", err)
	}

	p, err := s.props.Get(r.Context(), id)
	if err != nil {
		s.pageError(w, r, err)
		return
	}

	sub := subject(r)
	pref, err := s.prefs.Get(r.Context(), sub)
	if err != nil {
		s.pageError(w, r, err)
		return
	}

	s.render(w, "property.html", s.page(r, p.Title, detailData{
		Property:  p,
		Owner:     p.OwnerID == sub.UserID,
		Favorite:  membership.Contains(pref.Favorites, id),
		Catalogue: membership.Contains(pref.Catalogue, id),
	}))
}

func (s *Server) handleNewPropertyPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, "new_property.html", s.page(r, "New listing", property.Input{}))
}

func (s *Server) handleNewPropertySubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	in := property.Input{
		Title:        r.FormValue("title"),
		Description:  r.FormValue("description"),
		Address:      r.FormValue("address"),
		City:         r.FormValue("city"),
		State:        r.FormValue("state"),
		Zip:          r.FormValue("zip"),
		PropertyType: r.FormValue("property_type"),
	}
	in.Price, _ = strconv.ParseInt(r.FormValue("price"), 10, 64)
	in.Bedrooms, _ = strconv.Atoi(r.FormValue("bedrooms"))
	in.Bathrooms, _ = strconv.ParseFloat(r.FormValue("bathrooms"), 64)
	in.AreaSqft, _ = strconv.ParseInt(r.FormValue("area_sqft"), 10, 64)

	images, closeAll, err := openImages(r.MultipartForm.File["images"])
	defer closeAll()
	if err != nil {
		s.pageError(w, r, err)
		return
	}

	lister, err := s.lister(r)
	if err != nil {
		s.pageError(w, r, err)
		return
	}

	p, err := s.props.Create(r.Context(), subject(r), lister, in, images)
	if err != nil {
		pd := s.page(r, "New listing", in)
		pd.Error = userMessage(err)
		s.renderStatus(w, http.StatusBadRequest, "new_property.html", pd)
		return
	}
	http.Redirect(w, r, "/properties/"+url.PathEscape(p.ID), http.StatusSeeOther)
}

// handleToggle flips list membership and returns to the referring page.
func (s *Server) handleToggle(list preference.List) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if _, err := s.prefs.Toggle(r.Context(), subject(r), list, id); err != nil {
			s.pageError(w, r, err)
			return
		}
		back := "/properties/" + url.PathEscape(id)
		if ref := r.FormValue("back"); strings.HasPrefix(ref, "/") && !strings.HasPrefix(ref, "//") {
			back = ref
		}
		http.Redirect(w, r, back, http.StatusSeeOther)
	}
}

func (s *Server) handleInquire(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	id := r.PathValue("id")
	in := inquiry.Input{
		Subject:  r.FormValue("subject"),
		Message:  r.FormValue("message"),
		Priority: inquiry.Priority(r.FormValue("priority")),
	}
	if u, err := s.currentUser(r); err == nil {
		in.SenderName, in.SenderEmail, in.SenderPhone = u.Name, u.Email, u.Phone
	}

	if _, err := s.inquiries.Create(r.Context(), subject(r), id, in); err != nil {
		s.pageError(w, r, err)
		return
	}
	redirectMsg(w, r, "/properties/"+url.PathEscape(id), "Your inquiry was sent.")
}

func (s *Server) handleRequestViewing(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	id := r.PathValue("id")

	at, err := time.Parse("2006-01-02T15:04", r.FormValue("scheduled_at"))
	if err != nil {
		s.pageError(w, r, fmt.Errorf("%w: scheduled time", errs.ErrInvalid))
		return
	}

	in := viewing.Input{ScheduledAt: at.UTC(), Notes: r.FormValue("notes")}
	if _, err := s.viewings.Create(r.Context(), subject(r), id, in); err != nil {
		s.pageError(w, r, err)
		return
	}
	redirectMsg(w, r, "/properties/"+url.PathEscape(id), "Viewing requested.")
}

type savedData struct {
	List       string
	Properties []*property.Property
}

// handleSaved lists the properties in one of the user's lists. Ids whose
// listing has been deleted are skipped.
func (s *Server) handleSaved(list preference.List, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pref, err := s.prefs.Get(r.Context(), subject(r))
		if err != nil {
			s.pageError(w, r, err)
			return
		}
		ids := pref.Catalogue
		if list == preference.Favorites {
			ids = pref.Favorites
		}

		props := make([]*property.Property, 0, len(ids))
		for _, id := range ids {
			p, err := s.props.Get(r.Context(), id)
			if errors.Is(err, errs.ErrNotFound) {
				continue
			}
			if err != nil {
				s.pageError(w, r, err)
				return
			}
			props = append(props, p)
		}
		s.render(w, "saved.html", s.page(r, title, savedData{List: string(list), Properties: props}))
	}
}

type inquiriesData struct {
	Received   []*inquiry.Inquiry
	Sent       []*inquiry.Inquiry
	Statuses   []inquiry.Status
	Priorities []inquiry.Priority
}

func (s *Server) handleInquiries(w http.ResponseWriter, r *http.Request) {
	received, err := s.inquiries.ListReceived(r.Context(), subject(r))
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	sent, err := s.inquiries.ListSent(r.Context(), subject(r))
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	s.render(w, "inquiries.html", s.page(r, "Inquiries", inquiriesData{
		Received:   received,
		Sent:       sent,
		Statuses:   []inquiry.Status{inquiry.StatusUnread, inquiry.StatusRead, inquiry.StatusReplied},
		Priorities: []inquiry.Priority{inquiry.PriorityLow, inquiry.PriorityMedium, inquiry.PriorityHigh},
	}))
}

func (s *Server) handleInquiryUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	id := r.PathValue("id")
	sub := subject(r)

	var err error
	switch {
	case r.FormValue("action") == "delete":
		err = s.inquiries.Delete(r.Context(), sub, id)
	case r.FormValue("status") != "":
		_, err = s.inquiries.UpdateStatus(r.Context(), sub, id, inquiry.Status(r.FormValue("status")))
	case r.FormValue("priority") != "":
		_, err = s.inquiries.UpdatePriority(r.Context(), sub, id, inquiry.Priority(r.FormValue("priority")))
	}
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	http.Redirect(w, r, "/inquiries", http.StatusSeeOther)
}

type viewingsData struct {
	Incoming  []*viewing.Viewing
	Requested []*viewing.Viewing
	Statuses  []viewing.Status
}

func (s *Server) handleViewings(w http.ResponseWriter, r *http.Request) {
	incoming, err := s.viewings.ListForOwner(r.Context(), subject(r))
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	requested, err := s.viewings.ListForRequester(r.Context(), subject(r))
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	s.render(w, "viewings.html", s.page(r, "Viewings", viewingsData{
		Incoming:  incoming,
		Requested: requested,
		Statuses:  viewing.AllStatuses,
	}))
}

func (s *Server) handleViewingUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	id := r.PathValue("id")

	var err error
	if r.FormValue("action") == "delete" {
		err = s.viewings.Delete(r.Context(), subject(r), id)
	} else {
		_, err = s.viewings.UpdateStatus(r.Context(), subject(r), id, viewing.Status(r.FormValue("status")))
	}
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	http.Redirect(w, r, "/viewings", http.StatusSeeOther)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	pref, err := s.prefs.Get(r.Context(), subject(r))
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	s.render(w, "profile.html", s.page(r, "Profile", pref))
}

func (s *Server) handleProfileSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	name, phone, bio := r.FormValue("name"), r.FormValue("phone"), r.FormValue("bio")
	sub := subject(r)
	if _, err := s.profiles.Update(sub, sub.UserID, profile.Update{Name: &name, Phone: &phone, Bio: &bio}); err != nil {
		s.pageError(w, r, err)
		return
	}
	redirectMsg(w, r, "/profile", "Profile saved.")
}
