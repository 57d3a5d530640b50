package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/evcraddock/house-market/internal/errs"
)

const (
	// FilesPrefix is the URL path under which signed objects are served.
	FilesPrefix = "/files/"

	contentTypeSuffix = ".content-type"
	signedURLIssuer   = "hm-files"
)

// fileClaims bind a signed URL to one object key.
type fileClaims struct {
	Key string `json:"key"`
	jwt.RegisteredClaims
}

// LocalStore keeps objects on disk under a root directory.
type LocalStore struct {
	root    string
	secret  []byte
	baseURL string
	now     func() time.Time
}

// NewLocalStore creates a store rooted at root. Signed URLs are prefixed
// with baseURL (empty for relative URLs) and signed with secret.
func NewLocalStore(root string, secret []byte, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage root %s: %w", root, err)
	}
	return &LocalStore{root: root, secret: secret, baseURL: baseURL, now: time.Now}, nil
}

func (s *LocalStore) path(key string) (string, string, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return "", "", err
	}
	return cleaned, filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

// Upload implements Store. The object is written to a temp file first so
// readers never see a partial object.
func (s *LocalStore) Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	cleaned, p, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("creating object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("writing object %s: %w", cleaned, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing object %s: %w", cleaned, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		return "", fmt.Errorf("storing object %s: %w", cleaned, err)
	}

	if contentType != "" {
		if err := os.WriteFile(p+contentTypeSuffix, []byte(contentType), 0o644); err != nil {
			return "", fmt.Errorf("storing content type for %s: %w", cleaned, err)
		}
	}

	return cleaned, nil
}

// SignedURL implements Store.
func (s *LocalStore) SignedURL(key string, ttl time.Duration) (string, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return "", err
	}

	now := s.now()
	claims := fileClaims{
		Key: cleaned,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    signedURLIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing url for %s: %w", cleaned, err)
	}

	return s.baseURL + FilesPrefix + cleaned + "?token=" + url.QueryEscape(token), nil
}

// Verify checks that token grants access to key.
func (s *LocalStore) Verify(key, token string) error {
	claims := &fileClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(signedURLIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return fmt.Errorf("invalid file token: %w", errs.ErrForbidden)
	}
	if claims.Key != key {
		return fmt.Errorf("file token is for another object: %w", errs.ErrForbidden)
	}
	return nil
}

// Delete implements Store.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	_, p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, f := range []string{p, p + contentTypeSuffix} {
		if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("deleting %s: %w", key, err)
		}
	}
	return nil
}

// Open implements Store.
func (s *LocalStore) Open(key string) (io.ReadCloser, string, error) {
	cleaned, p, err := s.path(key)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("object %s: %w", cleaned, errs.ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("opening %s: %w", cleaned, err)
	}

	contentType := ""
	if data, err := os.ReadFile(p + contentTypeSuffix); err == nil {
		contentType = string(data)
	}

	return f, contentType, nil
}
