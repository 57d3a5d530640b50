package web

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/evcraddock/house-market/internal/auth"
)

const (
	ceremonyCookie = "hm_passkey"
	ceremonyTTL    = 5 * time.Minute
)

type ceremony struct {
	data    *webauthn.SessionData
	expires time.Time
}

// passkeyHandlers holds WebAuthn-related HTTP handlers.
type passkeyHandlers struct {
	s        *Server
	wan      *webauthn.WebAuthn
	passkeys *auth.PasskeyStore

	// In-flight ceremonies. Registrations are keyed by user id, logins by
	// a random id carried in the ceremony cookie.
	mu          sync.Mutex
	regSessions map[string]ceremony
	logins      map[string]ceremony
	now         func() time.Time
}

func newPasskeyHandlers(s *Server, wan *webauthn.WebAuthn, passkeys *auth.PasskeyStore) *passkeyHandlers {
	return &passkeyHandlers{
		s:           s,
		wan:         wan,
		passkeys:    passkeys,
		regSessions: make(map[string]ceremony),
		logins:      make(map[string]ceremony),
		now:         time.Now,
	}
}

// take removes and returns an unexpired ceremony. Expired entries are pruned.
func (h *passkeyHandlers) take(m map[string]ceremony, key string) (*webauthn.SessionData, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	for k, c := range m {
		if now.After(c.expires) {
			delete(m, k)
		}
	}
	c, ok := m[key]
	if !ok {
		return nil, false
	}
	delete(m, key)
	return c.data, true
}

func (h *passkeyHandlers) put(m map[string]ceremony, key string, data *webauthn.SessionData) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m[key] = ceremony{data: data, expires: h.now().Add(ceremonyTTL)}
}

func (h *passkeyHandlers) passkeyUser(userID string) (*auth.PasskeyUser, error) {
	acct, err := h.s.accounts.GetByID(userID)
	if err != nil {
		return nil, err
	}
	creds, err := h.passkeys.WebAuthnCredentials(userID)
	if err != nil {
		return nil, err
	}
	return auth.NewPasskeyUser(acct.ID, acct.Email, creds), nil
}

// handleBeginRegistration starts passkey registration for the signed-in user.
func (h *passkeyHandlers) handleBeginRegistration(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.passkeyUser(userID)
	if err != nil {
		apiFail(w, r, err)
		return
	}

	// Exclude existing credentials so the same key is not registered twice.
	creds := user.WebAuthnCredentials()
	excludeList := make([]protocol.CredentialDescriptor, len(creds))
	for i, c := range creds {
		excludeList[i] = c.Descriptor()
	}

	creation, session, err := h.wan.BeginRegistration(user,
		webauthn.WithExclusions(excludeList),
		webauthn.WithResidentKeyRequirement(protocol.ResidentKeyRequirementRequired),
	)
	if err != nil {
		slog.Error("beginning registration", "err", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.put(h.regSessions, userID, session)
	apiJSON(w, creation, http.StatusOK)
}

// handleFinishRegistration completes passkey registration.
func (h *passkeyHandlers) handleFinishRegistration(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	session, ok := h.take(h.regSessions, userID)
	if !ok {
		apiError(w, "no registration in progress", http.StatusBadRequest)
		return
	}

	user, err := h.passkeyUser(userID)
	if err != nil {
		apiFail(w, r, err)
		return
	}

	credential, err := h.wan.FinishRegistration(user, *session, r)
	if err != nil {
		slog.Warn("finishing registration", "user", userID, "err", err)
		apiError(w, "registration failed", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = "Passkey"
	}

	if err := h.passkeys.Save(userID, name, credential); err != nil {
		apiFail(w, r, err)
		return
	}

	apiJSON(w, map[string]string{"status": "ok"}, http.StatusCreated)
}

// handleList returns the signed-in user's passkeys.
func (h *passkeyHandlers) handleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	creds, err := h.passkeys.ListByUser(userID)
	if err != nil {
		apiFail(w, r, err)
		return
	}
	type passkeyView struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	views := make([]passkeyView, len(creds))
	for i, c := range creds {
		views[i] = passkeyView{ID: c.ID, Name: c.Name}
	}
	apiJSON(w, views, http.StatusOK)
}

// handleDelete removes one of the signed-in user's passkeys.
func (h *passkeyHandlers) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	if err := h.passkeys.Delete(r.PathValue("id"), userID); err != nil {
		apiFail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleBeginLogin starts a discoverable passkey login.
func (h *passkeyHandlers) handleBeginLogin(w http.ResponseWriter, r *http.Request) {
	assertion, session, err := h.wan.BeginDiscoverableLogin()
	if err != nil {
		slog.Error("beginning passkey login", "err", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}

	id := make([]byte, 16)
	if _, err := rand.Read(id); err != nil {
		apiFail(w, r, err)
		return
	}
	key := hex.EncodeToString(id)
	h.put(h.logins, key, session)

	http.SetCookie(w, &http.Cookie{
		Name:     ceremonyCookie,
		Value:    key,
		Path:     "/api/passkeys/login",
		MaxAge:   int(ceremonyTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	apiJSON(w, assertion, http.StatusOK)
}

// handleFinishLogin completes passkey login and starts a session.
func (h *passkeyHandlers) handleFinishLogin(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(ceremonyCookie)
	if err != nil {
		apiError(w, "no login in progress", http.StatusBadRequest)
		return
	}
	session, ok := h.take(h.logins, cookie.Value)
	if !ok {
		apiError(w, "no login in progress", http.StatusBadRequest)
		return
	}

	var loggedIn *auth.Account

	handler := func(rawID, userHandle []byte) (webauthn.User, error) {
		acct, err := h.s.accounts.GetByID(string(userHandle))
		if err != nil || !acct.Confirmed {
			return nil, protocol.ErrBadRequest.WithDetails("unknown user")
		}
		user, err := h.passkeyUser(acct.ID)
		if err != nil {
			return nil, err
		}
		loggedIn = acct
		return user, nil
	}

	_, credential, err := h.wan.FinishPasskeyLogin(handler, *session, r)
	if err != nil || loggedIn == nil {
		slog.Warn("finishing passkey login", "err", err)
		apiError(w, "login failed", http.StatusUnauthorized)
		return
	}

	if err := h.passkeys.UpdateCredential(loggedIn.ID, credential); err != nil {
		slog.Warn("updating passkey sign count", "user", loggedIn.ID, "err", err)
	}

	sess, err := h.s.startSession(w, loggedIn)
	if err != nil {
		apiFail(w, r, err)
		return
	}
	resp, err := h.s.issueTokens(sess, sess.Token)
	if err != nil {
		apiFail(w, r, err)
		return
	}

	slog.Info("login success", "user", loggedIn.ID, "method", "passkey")
	apiJSON(w, resp, http.StatusOK)
}
