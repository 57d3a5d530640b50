package web

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/evcraddock/house-market/internal/auth"
)

func pageRequest(t *testing.T, srv *Server, method, path string, cookie *http.Cookie, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if form != nil {
		r = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	if cookie != nil {
		r.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	return w
}

func expectRedirect(t *testing.T, w *httptest.ResponseRecorder, location string) {
	t.Helper()
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Location"); got != location {
		t.Errorf("Location = %q, want %q", got, location)
	}
}

func TestLandingAnonymous(t *testing.T) {
	srv := testServer(t)

	w := pageRequest(t, srv, "GET", "/", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Find your next home") {
		t.Error("landing page content missing")
	}
}

func TestMemberPagesRedirectAnonymous(t *testing.T) {
	srv := testServer(t)

	for _, path := range []string{"/dashboard", "/properties", "/properties/abc", "/favorites", "/catalogue", "/inquiries", "/viewings", "/profile"} {
		w := pageRequest(t, srv, "GET", path, nil, nil)
		if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/signin" {
			t.Errorf("%s: got %d -> %q", path, w.Code, w.Header().Get("Location"))
		}
	}
}

func TestPublicPagesRedirectSignedIn(t *testing.T) {
	srv := testServer(t)
	u := createUser(t, srv, "member@example.com")

	for _, path := range []string{"/", "/signin", "/signup"} {
		w := pageRequest(t, srv, "GET", path, u.Cookie, nil)
		if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/dashboard" {
			t.Errorf("%s: got %d -> %q", path, w.Code, w.Header().Get("Location"))
		}
	}
}

func TestSignInForm(t *testing.T) {
	srv := testServer(t)
	signUp(t, srv, "form@example.com", "Form User")

	w := pageRequest(t, srv, "POST", "/signin", nil, url.Values{"email": {"form@example.com"}, "password": {"nope-nope-nope"}})
	if w.Code != http.StatusOK {
		t.Fatalf("bad password: expected 200 form, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Incorrect email or password") {
		t.Errorf("expected normalized error, got %s", w.Body.String())
	}

	w = pageRequest(t, srv, "POST", "/signin", nil, url.Values{"email": {"form@example.com"}, "password": {testPassword}})
	expectRedirect(t, w, "/dashboard")
	cookie := sessionCookie(w)
	if cookie == nil {
		t.Fatal("expected session cookie")
	}

	w = pageRequest(t, srv, "GET", "/dashboard", cookie, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Form User") {
		t.Error("dashboard should show the user's name")
	}
}

func TestSignInFormUnconfirmedGoesToConfirm(t *testing.T) {
	srv := testServer(t)
	pageRequest(t, srv, "POST", "/signup", nil, url.Values{"email": {"pending@example.com"}, "password": {testPassword}})

	w := pageRequest(t, srv, "POST", "/signin", nil, url.Values{"email": {"pending@example.com"}, "password": {testPassword}})
	expectRedirect(t, w, "/confirm?email=pending%40example.com")
}

func TestConfirmForm(t *testing.T) {
	srv := testServer(t)
	w := pageRequest(t, srv, "POST", "/signup", nil, url.Values{"email": {"confirm@example.com"}, "password": {testPassword}})
	expectRedirect(t, w, "/confirm?email=confirm%40example.com")

	code, err := srv.codes.Issue("confirm@example.com", auth.PurposeConfirm)
	if err != nil {
		t.Fatal(err)
	}
	w = pageRequest(t, srv, "POST", "/confirm", nil, url.Values{"email": {"confirm@example.com"}, "code": {code}})
	if w.Code != http.StatusSeeOther || !strings.HasPrefix(w.Header().Get("Location"), "/signin") {
		t.Fatalf("confirm: got %d -> %q", w.Code, w.Header().Get("Location"))
	}
}

func TestSignOutPage(t *testing.T) {
	srv := testServer(t)
	u := createUser(t, srv, "leaving@example.com")

	w := pageRequest(t, srv, "POST", "/signout", u.Cookie, nil)
	expectRedirect(t, w, "/signin")

	w = pageRequest(t, srv, "GET", "/dashboard", u.Cookie, nil)
	expectRedirect(t, w, "/signin")
}

func TestPropertyPagesAndToggle(t *testing.T) {
	srv := testServer(t)
	owner := createUser(t, srv, "owner@example.com")
	buyer := createUser(t, srv, "buyer@example.com")
	p := createProperty(t, srv, owner, "Lake House", 450000)

	w := pageRequest(t, srv, "GET", "/properties?q=Lake", buyer.Cookie, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if !strings.Contains(body, "Lake House") || !strings.Contains(body, "$450,000") {
		t.Error("listing missing from properties page")
	}

	w = pageRequest(t, srv, "GET", "/properties/"+p.ID, buyer.Cookie, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("detail: expected 200, got %d", w.Code)
	}
	pageRequest(t, srv, "GET", "/properties/"+p.ID, buyer.Cookie, nil)

	var got propertyResponse
	decodeBody(t, apiRequest(t, srv, "GET", "/api/properties/"+p.ID, "", nil), &got)
	if got.Views != 1 {
		t.Errorf("views = %d, want 1", got.Views)
	}

	w = pageRequest(t, srv, "POST", "/properties/"+p.ID+"/favorite", buyer.Cookie, url.Values{"back": {"/favorites"}})
	expectRedirect(t, w, "/favorites")

	w = pageRequest(t, srv, "GET", "/favorites", buyer.Cookie, nil)
	if !strings.Contains(w.Body.String(), "Lake House") {
		t.Error("favorites page should list the toggled property")
	}

	w = pageRequest(t, srv, "POST", "/properties/"+p.ID+"/favorite", buyer.Cookie, url.Values{"back": {"//evil.example.com"}})
	expectRedirect(t, w, "/properties/"+p.ID)

	w = pageRequest(t, srv, "GET", "/favorites", buyer.Cookie, nil)
	if strings.Contains(w.Body.String(), "Lake House") {
		t.Error("second toggle should remove the property")
	}

	var pref preferenceResponse
	decodeBody(t, apiRequest(t, srv, "GET", "/api/preferences", buyer.AccessToken, nil), &pref)
	if len(pref.SearchHistory) != 1 || pref.SearchHistory[0] != "Lake" {
		t.Errorf("search history = %v", pref.SearchHistory)
	}
}

func TestPropertyDetailMissing(t *testing.T) {
	srv := testServer(t)
	u := createUser(t, srv, "member@example.com")

	w := pageRequest(t, srv, "GET", "/properties/missing", u.Cookie, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestInquireAndInboxPages(t *testing.T) {
	srv := testServer(t)
	owner := createUser(t, srv, "owner@example.com")
	buyer := createUser(t, srv, "buyer@example.com")
	p := createProperty(t, srv, owner, "House", 300000)

	w := pageRequest(t, srv, "POST", "/properties/"+p.ID+"/inquire", buyer.Cookie, url.Values{"message": {"Can I visit Saturday?"}})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("inquire: expected 303, got %d: %s", w.Code, w.Body.String())
	}

	w = pageRequest(t, srv, "GET", "/inquiries", owner.Cookie, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("inquiries: expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Can I visit Saturday?") {
		t.Error("owner inbox should show the inquiry")
	}
}

func TestProfilePage(t *testing.T) {
	srv := testServer(t)
	u := createUser(t, srv, "member@example.com")

	w := pageRequest(t, srv, "POST", "/profile", u.Cookie, url.Values{"name": {"New Name"}, "phone": {"555"}, "bio": {""}})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("save: expected 303, got %d", w.Code)
	}

	w = pageRequest(t, srv, "GET", "/profile", u.Cookie, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "New Name") {
		t.Errorf("profile page: %d", w.Code)
	}
}
