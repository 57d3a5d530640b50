package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/evcraddock/house-market/internal/auth"
	"github.com/evcraddock/house-market/internal/errs"
	"github.com/evcraddock/house-market/internal/profile"
)

// tokenResponse is returned by sign-in and refresh.
type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Code     string `json:"code"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// signIn checks credentials with the login limiter applied. Failures other
// than bad credentials do not count against the limit.
func (s *Server) signIn(r *http.Request, email, password string) (*auth.Account, error) {
	ip := auth.ClientIP(r)
	if s.limiter.Blocked(ip) {
		return nil, errs.ErrRateLimited
	}

	acct, err := s.accounts.SignIn(email, password)
	if errors.Is(err, errs.ErrBadCredentials) {
		if s.limiter.RecordFailure(ip) {
			slog.Warn("sign-in rate limit reached", "ip", ip)
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	s.limiter.Reset(ip)
	return acct, nil
}

// startSession creates a refresh session for a confirmed account, makes sure
// its profile exists and sets the browser cookie.
func (s *Server) startSession(w http.ResponseWriter, acct *auth.Account) (*auth.Session, error) {
	sess, err := s.sessions.Create(acct.ID)
	if err != nil {
		return nil, err
	}
	if _, err := s.profiles.Sync(acct.ID, acct.Email, acct.Name); err != nil {
		return nil, fmt.Errorf("syncing profile: %w", err)
	}
	s.sessions.SetCookie(w, sess)
	return sess, nil
}

func (s *Server) issueTokens(sess *auth.Session, refreshToken string) (tokenResponse, error) {
	access, expires, err := s.tokens.Issue(sess.UserID, sess.ID)
	if err != nil {
		return tokenResponse{}, err
	}
	return tokenResponse{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresAt:    expires,
		UserID:       sess.UserID,
	}, nil
}

// refreshToken returns the refresh token from the JSON body or, failing
// that, the session cookie.
func refreshToken(r *http.Request) string {
	var req refreshRequest
	if r.ContentLength != 0 && decodeJSON(r, &req) == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	if c, err := r.Cookie(auth.CookieName); err == nil {
		return c.Value
	}
	return ""
}

func (s *Server) apiSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		apiFail(w, r, err)
		return
	}

	acct, err := s.accounts.SignUp(req.Email, req.Password, req.Name)
	if err != nil {
		apiFail(w, r, err)
		return
	}

	slog.Info("account created", "user", acct.ID)
	apiJSON(w, map[string]any{"user_id": acct.ID, "confirmed": false}, http.StatusCreated)
}

func (s *Server) apiConfirm(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		apiFail(w, r, err)
		return
	}
	if err := s.accounts.ConfirmSignUp(req.Email, req.Code); err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, map[string]string{"status": "confirmed"}, http.StatusOK)
}

func (s *Server) apiResend(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		apiFail(w, r, err)
		return
	}
	if err := s.accounts.ResendCode(req.Email); err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, map[string]string{"status": "sent"}, http.StatusOK)
}

func (s *Server) apiSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		apiFail(w, r, err)
		return
	}

	acct, err := s.signIn(r, req.Email, req.Password)
	if err != nil {
		apiFail(w, r, err)
		return
	}

	sess, err := s.startSession(w, acct)
	if err != nil {
		apiFail(w, r, err)
		return
	}

	resp, err := s.issueTokens(sess, sess.Token)
	if err != nil {
		apiFail(w, r, err)
		return
	}

	slog.Info("login success", "user", acct.ID, "method", "password")
	apiJSON(w, resp, http.StatusOK)
}

func (s *Server) apiRefresh(w http.ResponseWriter, r *http.Request) {
	token := refreshToken(r)
	sess, err := s.sessions.Refresh(token)
	if err != nil {
		if errors.Is(err, errs.ErrUnauthorized) {
			apiError(w, "invalid session", http.StatusUnauthorized)
			return
		}
		apiFail(w, r, err)
		return
	}

	resp, err := s.issueTokens(sess, token)
	if err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, resp, http.StatusOK)
}

func (s *Server) apiSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Destroy(refreshToken(r)); err != nil {
		apiFail(w, r, err)
		return
	}
	s.sessions.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) apiForgot(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		apiFail(w, r, err)
		return
	}
	if err := s.accounts.ForgotPassword(req.Email); err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, map[string]string{"status": "sent"}, http.StatusAccepted)
}

func (s *Server) apiReset(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		apiFail(w, r, err)
		return
	}
	if err := s.accounts.ConfirmResetPassword(req.Email, req.Code, req.Password); err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, map[string]string{"status": "reset"}, http.StatusOK)
}

// currentUser loads the profile of the signed-in user.
func (s *Server) currentUser(r *http.Request) (*profile.User, error) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return nil, errs.ErrUnauthorized
	}
	return s.profiles.Get(id)
}

func (s *Server) apiMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.currentUser(r)
	if err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, u, http.StatusOK)
}

func (s *Server) apiUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in profile.Update
	if err := decodeJSON(r, &in); err != nil {
		apiFail(w, r, err)
		return
	}
	sub := subject(r)
	u, err := s.profiles.Update(sub, sub.UserID, in)
	if err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, u, http.StatusOK)
}
