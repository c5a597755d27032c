// Package mockservice provides a testify-based mock of the service
// operations the router consumes. Use it in handler tests to simulate
// core behavior without wiring real components.
package mockservice

import (
	"github.com/stretchr/testify/mock"

	"github.com/ArcaneCipher/tinyapp/internal/models"
	"github.com/ArcaneCipher/tinyapp/internal/user"
)

// ServiceMock implements the router's service interface via testify mock.
type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Register(email, rawPassword string) (*user.User, error) {
	args := m.Called(email, rawPassword)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

func (m *ServiceMock) Login(email, rawPassword string) (*user.User, error) {
	args := m.Called(email, rawPassword)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

func (m *ServiceMock) ShortenURL(ownerID, longURL string) (string, error) {
	args := m.Called(ownerID, longURL)
	return args.String(0), args.Error(1)
}

func (m *ServiceMock) GetUserURLs(ownerID string) models.UserUrls {
	args := m.Called(ownerID)
	urls, _ := args.Get(0).(models.UserUrls)
	return urls
}

func (m *ServiceMock) UpdateURL(short, ownerID, newLongURL string) error {
	args := m.Called(short, ownerID, newLongURL)
	return args.Error(0)
}

func (m *ServiceMock) DeleteURL(short, ownerID string) error {
	args := m.Called(short, ownerID)
	return args.Error(0)
}

func (m *ServiceMock) GetURLStats(short, ownerID string) (models.URLStatsResponse, error) {
	args := m.Called(short, ownerID)
	stats, _ := args.Get(0).(models.URLStatsResponse)
	return stats, args.Error(1)
}

func (m *ServiceMock) ResolveURL(short, visitorID string) (string, error) {
	args := m.Called(short, visitorID)
	return args.String(0), args.Error(1)
}

func (m *ServiceMock) GetInternalStats() models.InternalStatsResponse {
	args := m.Called()
	stats, _ := args.Get(0).(models.InternalStatsResponse)
	return stats
}
