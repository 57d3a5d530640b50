package property

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/evcraddock/house-market/internal/cache"
	"github.com/evcraddock/house-market/internal/policy"
	"github.com/evcraddock/house-market/internal/storage"
	"github.com/evcraddock/house-market/internal/viewguard"
)

const (
	imageURLTTL    = time.Hour
	listCacheTTL   = 5 * time.Minute
	listCacheKey   = "properties:list"
	generationKey  = "properties:gen"
	imageKeyFormat = "properties/%s/%d-%s"
)

// Service provides property business logic.
type Service struct {
	repo   *Repository
	store  storage.Store
	guard  *viewguard.Guard
	cache  cache.Store
	urlTTL time.Duration
}

// NewService creates a property service.
func NewService(repo *Repository, store storage.Store, guard *viewguard.Guard, c cache.Store) *Service {
	return &Service{repo: repo, store: store, guard: guard, cache: c, urlTTL: imageURLTTL}
}

// Create uploads images one at a time under properties/<id>/ and then stores
// the listing. If storing fails the uploaded images are removed best-effort.
func (s *Service) Create(ctx context.Context, subject policy.Subject, lister Lister, in Input, images []Image) (*Property, error) {
	if err := policy.Evaluate(subject, policy.Create, policy.Resource{Kind: policy.KindProperty}); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	keys := make([]string, 0, len(images))

	for i, img := range images {
		key := fmt.Sprintf(imageKeyFormat, id, i, storage.SafeName(img.Name))
		stored, err := s.store.Upload(ctx, key, img.Body, img.ContentType)
		if err != nil {
			s.removeImages(ctx, keys)
			return nil, fmt.Errorf("uploading image %d: %w", i, err)
		}
		keys = append(keys, stored)
	}

	p := &Property{
		ID:           id,
		OwnerID:      subject.UserID,
		Title:        in.Title,
		Description:  in.Description,
		Price:        in.Price,
		Address:      in.Address,
		City:         in.City,
		State:        in.State,
		Zip:          in.Zip,
		Bedrooms:     in.Bedrooms,
		Bathrooms:    in.Bathrooms,
		AreaSqft:     in.AreaSqft,
		PropertyType: in.PropertyType,
		Status:       in.Status,
		ImageKeys:    keys,
		ListerName:   lister.Name,
		ListerEmail:  lister.Email,
		ListerPhone:  lister.Phone,
	}

	saved, err := s.repo.Insert(p)
	if err != nil {
		s.removeImages(ctx, keys)
		return nil, fmt.Errorf("saving property: %w", err)
	}

	s.invalidateLists(ctx)
	return s.withURLs(saved)
}

// Get returns a listing with signed image URLs.
func (s *Service) Get(ctx context.Context, id string) (*Property, error) {
	p, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	return s.withURLs(p)
}

// List returns listings matching opts. Results are cached until the next
// listing write.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]*Property, error) {
	key := s.listKey(ctx, opts)

	var cached []*Property
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err != nil {
		slog.Warn("reading property list cache", "key", key, "err", err)
	} else if ok {
		return s.allWithURLs(cached)
	}

	properties, err := s.repo.List(opts)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, key, properties, listCacheTTL); err != nil {
		slog.Warn("writing property list cache", "key", key, "err", err)
	}

	return s.allWithURLs(properties)
}

// ListByOwner returns the owner's own listings.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]*Property, error) {
	properties, err := s.repo.ListByOwner(ownerID)
	if err != nil {
		return nil, err
	}
	return s.allWithURLs(properties)
}

// Update changes a listing. Only the owner may do so.
func (s *Service) Update(ctx context.Context, subject policy.Subject, id string, patch Patch) (*Property, error) {
	p, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := policy.Evaluate(subject, policy.Update, policy.Resource{Kind: policy.KindProperty, OwnerID: p.OwnerID}); err != nil {
		return nil, err
	}

	if err := patch.Apply(p); err != nil {
		return nil, err
	}
	if err := s.repo.Update(p); err != nil {
		return nil, err
	}

	s.invalidateLists(ctx)
	return s.Get(ctx, id)
}

// Delete removes a listing and, best-effort, its images. Only the owner may do so.
func (s *Service) Delete(ctx context.Context, subject policy.Subject, id string) error {
	p, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if err := policy.Evaluate(subject, policy.Delete, policy.Resource{Kind: policy.KindProperty, OwnerID: p.OwnerID}); err != nil {
		return err
	}

	if err := s.repo.Delete(id); err != nil {
		return err
	}

	s.removeImages(ctx, p.ImageKeys)
	s.invalidateLists(ctx)
	return nil
}

// View counts a view of id for the browsing session. Only the first view of
// a listing in a session increments the counter. A failed increment is
// logged and not returned.
func (s *Service) View(ctx context.Context, sessionID, id string) (bool, error) {
	if _, err := s.repo.GetByID(id); err != nil {
		return false, err
	}

	first, err := s.guard.FirstView(ctx, sessionID, id)
	if err != nil {
		return false, err
	}
	if !first {
		return false, nil
	}

	if err := s.repo.IncrementViews(id); err != nil {
		slog.Warn("incrementing views", "property", id, "err", err)
		return true, nil
	}
	// Cached lists carry the view count.
	s.invalidateLists(ctx)
	return true, nil
}

// ImageURLs resolves the listing's image keys to signed URLs, in order.
// A listing without images yields an empty, non-nil slice.
func (s *Service) ImageURLs(p *Property) ([]string, error) {
	urls := make([]string, 0, len(p.ImageKeys))
	for _, key := range p.ImageKeys {
		u, err := s.store.SignedURL(key, s.urlTTL)
		if err != nil {
			return nil, fmt.Errorf("signing image %s: %w", key, err)
		}
		urls = append(urls, u)
	}
	return urls, nil
}

func (s *Service) withURLs(p *Property) (*Property, error) {
	urls, err := s.ImageURLs(p)
	if err != nil {
		return nil, err
	}
	p.ImageURLs = urls
	return p, nil
}

func (s *Service) allWithURLs(properties []*Property) ([]*Property, error) {
	for _, p := range properties {
		if p.ImageKeys == nil {
			p.ImageKeys = []string{}
		}
		if _, err := s.withURLs(p); err != nil {
			return nil, err
		}
	}
	return properties, nil
}

// listKey folds the current generation into the key so a bump orphans every
// cached list at once.
func (s *Service) listKey(ctx context.Context, opts ListOptions) string {
	var gen int64
	if _, err := s.cache.GetJSON(ctx, generationKey, &gen); err != nil {
		slog.Warn("reading property list generation", "err", err)
	}
	return cache.QueryKey(fmt.Sprintf("%s:%d", listCacheKey, gen), opts.Params())
}

func (s *Service) invalidateLists(ctx context.Context) {
	if _, err := s.cache.Incr(ctx, generationKey); err != nil {
		slog.Warn("bumping property list generation", "err", err)
	}
}

func (s *Service) removeImages(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			slog.Warn("removing image", "key", key, "err", err)
		}
	}
}
