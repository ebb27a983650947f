package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"freshiesAPI/internal/account"
	"freshiesAPI/internal/db"
	"freshiesAPI/internal/photo"
)

type PhotoStore interface {
	InsertPhoto(ctx context.Context, p *photo.Photo) error
	ListPhotos(ctx context.Context, childID uuid.UUID) ([]*photo.Photo, error)
}

type PhotoService struct {
	store PhotoStore
}

func NewPhotoService(store PhotoStore) *PhotoService {
	return &PhotoService{store: store}
}

// AddPhoto records an uploaded image; the file itself lives in client storage.
func (s *PhotoService) AddPhoto(ctx context.Context, childID uuid.UUID, tag photo.Tag, rawURL string, takenAt time.Time) (*photo.Photo, error) {
	if !tag.Valid() {
		return nil, photo.ErrInvalidTag
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", photo.ErrInvalidURL, rawURL)
	}
	if takenAt.IsZero() {
		takenAt = time.Now()
	}

	p := &photo.Photo{
		ID:      uuid.New(),
		ChildID: childID,
		Tag:     tag,
		URL:     u.String(),
		TakenAt: takenAt,
	}
	if err := s.store.InsertPhoto(ctx, p); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, account.ErrChildNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *PhotoService) ListPairs(ctx context.Context, childID uuid.UUID) ([]photo.Pair, error) {
	photos, err := s.store.ListPhotos(ctx, childID)
	if err != nil {
		return nil, err
	}
	return photo.PairBeforeAfter(photos), nil
}
