// Package service orchestrates the user directory, URL store, and visit
// recorder behind the operations the HTTP layer consumes.
package service

import (
	"time"

	"github.com/thoas/go-funk"

	"github.com/ArcaneCipher/tinyapp/internal/models"
	"github.com/ArcaneCipher/tinyapp/internal/user"
	"github.com/ArcaneCipher/tinyapp/internal/visitrecorder"
)

type userDirectory interface {
	Create(email, rawPassword string) (*user.User, error)
	Verify(email, rawPassword string) *user.User
	Count() int
}

type urlKeeper interface {
	Create(ownerID, longURL string) (models.ShortURLEntry, error)
	Get(id string) (models.ShortURLEntry, bool)
	ListForOwner(ownerID string) []models.ShortURLEntry
	Update(id, ownerID, newLongURL string) error
	Delete(id, ownerID string) error
	Resolve(id string) (string, bool)
	Count() int
}

type visitEnqueuer interface {
	EnqueueJob(job *visitrecorder.Job)
}

type Service struct {
	users        userDirectory
	urls         urlKeeper
	recorder     visitEnqueuer
	shortURLBase string
}

func New(
	users userDirectory,
	urls urlKeeper,
	recorder visitEnqueuer,
	shortURLBase string,
) *Service {
	return &Service{
		users:        users,
		urls:         urls,
		recorder:     recorder,
		shortURLBase: shortURLBase,
	}
}

// Register creates a new account from raw credentials.
func (s *Service) Register(email, rawPassword string) (*user.User, error) {
	return s.users.Create(email, rawPassword)
}

// Login verifies the credentials and returns the account, or
// ErrInvalidCredentials without revealing which part was wrong.
func (s *Service) Login(email, rawPassword string) (*user.User, error) {
	usr := s.users.Verify(email, rawPassword)
	if usr == nil {
		return nil, models.ErrInvalidCredentials
	}
	return usr, nil
}

// ShortenURL registers longURL for ownerID and returns the absolute short URL.
func (s *Service) ShortenURL(ownerID, longURL string) (string, error) {
	entry, err := s.urls.Create(ownerID, longURL)
	if err != nil {
		return "", err
	}
	return s.GetShortURL(entry.ID), nil
}

// GetUserURLs returns the owner's short URLs as transport payloads.
func (s *Service) GetUserURLs(ownerID string) models.UserUrls {
	entries := s.urls.ListForOwner(ownerID)

	mapped := funk.Map(entries, func(entry models.ShortURLEntry) models.UserURL {
		return models.UserURL{
			ShortURL:    s.GetShortURL(entry.ID),
			OriginalURL: entry.LongURL,
		}
	}).([]models.UserURL)

	return models.UserUrls(mapped)
}

// UpdateURL replaces the long URL behind short for its owner.
func (s *Service) UpdateURL(short, ownerID, newLongURL string) error {
	return s.urls.Update(short, ownerID, newLongURL)
}

// DeleteURL removes the entry behind short for its owner.
func (s *Service) DeleteURL(short, ownerID string) error {
	return s.urls.Delete(short, ownerID)
}

// GetURLStats returns the visit analytics of an entry to its owner.
func (s *Service) GetURLStats(short, ownerID string) (models.URLStatsResponse, error) {
	entry, found := s.urls.Get(short)
	if !found {
		return models.URLStatsResponse{}, models.ErrNotFound
	}
	if entry.OwnerID != ownerID {
		return models.URLStatsResponse{}, models.ErrForbidden
	}

	return models.URLStatsResponse{
		ShortURL:       s.GetShortURL(entry.ID),
		OriginalURL:    entry.LongURL,
		VisitCount:     entry.VisitCount,
		UniqueVisitors: len(entry.UniqueVisitors),
		Visits:         entry.VisitLog,
	}, nil
}

// ResolveURL returns the long URL behind short and enqueues the visit for
// recording. Resolution needs no ownership; short links are public.
func (s *Service) ResolveURL(short, visitorID string) (string, error) {
	long, found := s.urls.Resolve(short)
	if !found {
		return "", models.ErrNotFound
	}

	s.recorder.EnqueueJob(&visitrecorder.Job{
		ShortID:   short,
		VisitorID: visitorID,
		VisitedAt: time.Now(),
	})

	return long, nil
}

// GetInternalStats reports registry sizes for the trusted-subnet endpoint.
func (s *Service) GetInternalStats() models.InternalStatsResponse {
	return models.InternalStatsResponse{
		URLs:  s.urls.Count(),
		Users: s.users.Count(),
	}
}

// GetShortURL formats a short key into an absolute short URL.
func (s *Service) GetShortURL(short string) string {
	return s.shortURLBase + "/" + short
}
