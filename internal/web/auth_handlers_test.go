package web

import (
	"net/http"
	"testing"

	"github.com/evcraddock/house-market/internal/auth"
)

func TestSignUpConfirmSignIn(t *testing.T) {
	srv := testServer(t)
	u := createUser(t, srv, "buyer@example.com")

	if u.AccessToken == "" || u.RefreshToken == "" || u.ID == "" {
		t.Fatalf("incomplete token response: %+v", u)
	}
	if u.Cookie == nil {
		t.Fatal("expected session cookie")
	}

	w := apiRequest(t, srv, "GET", "/api/auth/me", u.AccessToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var me struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	decodeBody(t, w, &me)
	if me.ID != u.ID || me.Email != "buyer@example.com" || me.Name != "Test buyer@example.com" {
		t.Errorf("me = %+v", me)
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	srv := testServer(t)
	signUp(t, srv, "dup@example.com", "")

	w := apiRequest(t, srv, "POST", "/api/auth/signup", "", map[string]string{
		"email": "DUP@example.com", "password": testPassword,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestSignInUnconfirmed(t *testing.T) {
	srv := testServer(t)
	w := apiRequest(t, srv, "POST", "/api/auth/signup", "", map[string]string{
		"email": "new@example.com", "password": testPassword,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup: %d", w.Code)
	}

	w = apiRequest(t, srv, "POST", "/api/auth/signin", "", map[string]string{
		"email": "new@example.com", "password": testPassword,
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if msg := errorMessage(t, w); msg != "account is not confirmed" {
		t.Errorf("error = %q", msg)
	}
}

func TestSignInBadCredentialsAreIndistinguishable(t *testing.T) {
	srv := testServer(t)
	signUp(t, srv, "known@example.com", "")

	cases := []map[string]string{
		{"email": "known@example.com", "password": "wrong-password"},
		{"email": "nobody@example.com", "password": testPassword},
	}
	for _, body := range cases {
		w := apiRequest(t, srv, "POST", "/api/auth/signin", "", body)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", body["email"], w.Code)
		}
		if msg := errorMessage(t, w); msg != "incorrect email or password" {
			t.Errorf("%s: error = %q", body["email"], msg)
		}
	}
}

func TestSignInRateLimited(t *testing.T) {
	srv := testServer(t)
	signUp(t, srv, "target@example.com", "")

	for i := 0; i < 10; i++ {
		w := apiRequest(t, srv, "POST", "/api/auth/signin", "", map[string]string{
			"email": "target@example.com", "password": "wrong-password",
		})
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i, w.Code)
		}
	}

	w := apiRequest(t, srv, "POST", "/api/auth/signin", "", map[string]string{
		"email": "target@example.com", "password": testPassword,
	})
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
}

func TestConfirmWrongCode(t *testing.T) {
	srv := testServer(t)
	apiRequest(t, srv, "POST", "/api/auth/signup", "", map[string]string{
		"email": "code@example.com", "password": testPassword,
	})

	w := apiRequest(t, srv, "POST", "/api/auth/confirm", "", map[string]string{
		"email": "code@example.com", "code": "not-a-code",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRefreshAndSignOut(t *testing.T) {
	srv := testServer(t)
	u := createUser(t, srv, "refresh@example.com")

	w := apiRequest(t, srv, "POST", "/api/auth/refresh", "", map[string]string{"refresh_token": u.RefreshToken})
	if w.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp tokenResponse
	decodeBody(t, w, &resp)
	if resp.UserID != u.ID || resp.RefreshToken != u.RefreshToken {
		t.Errorf("refresh response = %+v", resp)
	}

	w = apiRequest(t, srv, "GET", "/api/auth/me", resp.AccessToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me with refreshed token: %d", w.Code)
	}

	w = apiRequest(t, srv, "POST", "/api/auth/signout", "", map[string]string{"refresh_token": u.RefreshToken})
	if w.Code != http.StatusNoContent {
		t.Fatalf("signout: expected 204, got %d", w.Code)
	}

	w = apiRequest(t, srv, "POST", "/api/auth/refresh", "", map[string]string{"refresh_token": u.RefreshToken})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after signout: expected 401, got %d", w.Code)
	}
	if msg := errorMessage(t, w); msg != "invalid session" {
		t.Errorf("error = %q", msg)
	}
}

func TestRefreshInvalidToken(t *testing.T) {
	srv := testServer(t)

	w := apiRequest(t, srv, "POST", "/api/auth/refresh", "", map[string]string{"refresh_token": "bogus"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestForgotAndResetPassword(t *testing.T) {
	srv := testServer(t)
	signUp(t, srv, "forgetful@example.com", "")

	w := apiRequest(t, srv, "POST", "/api/auth/forgot", "", map[string]string{"email": "nobody@example.com"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("forgot unknown: expected 202, got %d", w.Code)
	}

	w = apiRequest(t, srv, "POST", "/api/auth/forgot", "", map[string]string{"email": "forgetful@example.com"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("forgot: expected 202, got %d", w.Code)
	}

	code, err := srv.codes.Issue("forgetful@example.com", auth.PurposeReset)
	if err != nil {
		t.Fatalf("issue code: %v", err)
	}
	w = apiRequest(t, srv, "POST", "/api/auth/reset", "", map[string]string{
		"email": "forgetful@example.com", "code": code, "password": "a-brand-new-password",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("reset: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = apiRequest(t, srv, "POST", "/api/auth/signin", "", map[string]string{
		"email": "forgetful@example.com", "password": "a-brand-new-password",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("signin with new password: expected 200, got %d", w.Code)
	}
}

func TestUpdateProfile(t *testing.T) {
	srv := testServer(t)
	u := createUser(t, srv, "profile@example.com")

	w := apiRequest(t, srv, "PUT", "/api/profile", u.AccessToken, map[string]string{"phone": "555-0100"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var me struct {
		Phone string `json:"phone"`
		Name  string `json:"name"`
	}
	decodeBody(t, w, &me)
	if me.Phone != "555-0100" || me.Name != "Test profile@example.com" {
		t.Errorf("profile = %+v", me)
	}
}

func TestInvalidAccessTokenIsAnonymous(t *testing.T) {
	srv := testServer(t)

	w := apiRequest(t, srv, "GET", "/api/auth/me", "not.a.jwt", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
