package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ArcaneCipher/tinyapp/internal/auth"
	"github.com/ArcaneCipher/tinyapp/internal/ipchecker"
	"github.com/ArcaneCipher/tinyapp/internal/keygen"
	"github.com/ArcaneCipher/tinyapp/internal/logger"
	"github.com/ArcaneCipher/tinyapp/internal/mockservice"
	"github.com/ArcaneCipher/tinyapp/internal/models"
	"github.com/ArcaneCipher/tinyapp/internal/service"
	"github.com/ArcaneCipher/tinyapp/internal/urlstore"
	"github.com/ArcaneCipher/tinyapp/internal/userdir"
	"github.com/ArcaneCipher/tinyapp/internal/validurl"
	"github.com/ArcaneCipher/tinyapp/internal/visitrecorder"
)

const shortURLBase = "http://localhost:8080"

type testEnv struct {
	server            *httptest.Server
	directory         *userdir.Directory
	stopVisitRecorder func()
}

func TestMain(m *testing.M) {
	if err := logger.Init("error"); err != nil {
		panic(err)
	}
	m.Run()
}

type envOption func(*envOptions)

type envOptions struct {
	trustedSubnet string
	mockService   *mockservice.ServiceMock
}

func withTrustedSubnet(subnet string) envOption {
	return func(options *envOptions) {
		options.trustedSubnet = subnet
	}
}

func withMockService(svc *mockservice.ServiceMock) envOption {
	return func(options *envOptions) {
		options.mockService = svc
	}
}

func newTestEnv(t *testing.T, optionsProto ...envOption) *testEnv {
	t.Helper()

	options := &envOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	keys := keygen.New(6, 10)
	directory := userdir.New(keys, bcrypt.MinCost)
	store := urlstore.New(keys, validurl.New([]string{"http", "https"}))
	recorder := visitrecorder.New(store, 64, 10*time.Millisecond)

	runCtx, stop := context.WithCancel(context.Background())
	recorder.Run(runCtx)

	gate := auth.New(directory, "tinyapp_session", "tinyapp_visitor", []byte("test-secret"), time.Hour)

	checker, err := ipchecker.New(options.trustedSubnet)
	require.NoError(t, err)

	var handler http.Handler
	if options.mockService != nil {
		handler = New(options.mockService, gate, checker)
	} else {
		handler = New(service.New(directory, store, recorder, shortURLBase), gate, checker)
	}

	env := &testEnv{
		server:            httptest.NewServer(handler),
		directory:         directory,
		stopVisitRecorder: stop,
	}
	t.Cleanup(func() {
		env.server.Close()
		env.stopVisitRecorder()
	})

	return env
}

func newClient(env *testEnv) *resty.Client {
	return resty.New().
		SetBaseURL(env.server.URL).
		SetRedirectPolicy(resty.RedirectPolicyFunc(func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}))
}

func registerUser(t *testing.T, client *resty.Client, email, password string) models.UserResponse {
	t.Helper()

	var usr models.UserResponse
	response, err := client.R().
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&usr).
		Post("/api/user/register")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, response.StatusCode())

	return usr
}

func shortenURL(t *testing.T, client *resty.Client, longURL string) string {
	t.Helper()

	var shortened models.ShortenResponse
	response, err := client.R().
		SetBody(models.ShortenRequest{URL: longURL}).
		SetResult(&shortened).
		Post("/api/shorten")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, response.StatusCode())

	return shortened.Result
}

func shortKeyOf(shortURL string) string {
	return strings.TrimPrefix(shortURL, shortURLBase+"/")
}

func TestEndToEndScenario(t *testing.T) {
	env := newTestEnv(t)
	client := newClient(env)

	registerUser(t, client, "a@x.com", "password123")

	var loggedIn models.UserResponse
	response, err := client.R().
		SetBody(models.LoginRequest{Email: "a@x.com", Password: "password123"}).
		SetResult(&loggedIn).
		Post("/api/user/login")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, response.StatusCode())

	shortURL := shortenURL(t, client, "https://example.org")
	short := shortKeyOf(shortURL)

	response, err = client.R().Get("/" + short)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTemporaryRedirect, response.StatusCode())
	assert.Equal(t, "https://example.org", response.Header().Get("Location"))

	// Visit recording is asynchronous; poll the stats endpoint.
	require.Eventually(t, func() bool {
		var stats models.URLStatsResponse
		response, err := client.R().
			SetResult(&stats).
			Get("/api/user/urls/" + short + "/stats")
		return err == nil &&
			response.StatusCode() == http.StatusOK &&
			stats.VisitCount == 1
	}, time.Second, 20*time.Millisecond)
}

func TestShortenRequiresAuthentication(t *testing.T) {
	env := newTestEnv(t)
	client := newClient(env)

	response, err := client.R().
		SetBody(models.ShortenRequest{URL: "https://example.org"}).
		Post("/api/shorten")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, response.StatusCode())
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	client := newClient(env)

	testCases := []struct {
		name         string
		body         map[string]string
		expectedCode int
	}{
		{"missing email", map[string]string{"password": "password123"}, http.StatusBadRequest},
		{"malformed email", map[string]string{"email": "nope", "password": "password123"}, http.StatusBadRequest},
		{"short password", map[string]string{"email": "a@x.com", "password": "short"}, http.StatusBadRequest},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			response, err := client.R().SetBody(testCase.body).Post("/api/user/register")
			require.NoError(t, err)
			assert.Equal(t, testCase.expectedCode, response.StatusCode())
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	client := newClient(env)

	registerUser(t, client, "a@x.com", "password123")

	response, err := client.R().
		SetBody(map[string]string{"email": "a@x.com", "password": "otherpassword"}).
		Post("/api/user/register")
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, response.StatusCode())
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	client := newClient(env)

	registerUser(t, client, "a@x.com", "password123")

	response, err := client.R().
		SetBody(models.LoginRequest{Email: "a@x.com", Password: "wrong-password"}).
		Post("/api/user/login")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, response.StatusCode())
}

func TestUpdateByNonOwnerIsForbidden(t *testing.T) {
	env := newTestEnv(t)

	ownerClient := newClient(env)
	registerUser(t, ownerClient, "a@x.com", "password123")
	shortURL := shortenURL(t, ownerClient, "https://example.org")
	short := shortKeyOf(shortURL)

	otherClient := newClient(env)
	registerUser(t, otherClient, "b@x.com", "password123")

	response, err := otherClient.R().
		SetBody(models.UpdateURLRequest{URL: "https://attacker.example"}).
		Put("/api/user/urls/" + short)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, response.StatusCode())

	// The entry is unchanged for its owner.
	response, err = ownerClient.R().Get("/" + short)
	require.NoError(t, err)
	assert.Equal(t, "https://example.org", response.Header().Get("Location"))
}

func TestDeleteURL(t *testing.T) {
	env := newTestEnv(t)
	client := newClient(env)

	registerUser(t, client, "a@x.com", "password123")
	shortURL := shortenURL(t, client, "https://example.org")
	short := shortKeyOf(shortURL)

	response, err := client.R().Delete("/api/user/urls/" + short)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, response.StatusCode())

	response, err = client.R().Get("/" + short)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, response.StatusCode())
}

func TestGetUserUrls(t *testing.T) {
	env := newTestEnv(t)
	client := newClient(env)

	registerUser(t, client, "a@x.com", "password123")

	response, err := client.R().Get("/api/user/urls")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, response.StatusCode())

	first := shortenURL(t, client, "https://example.org/1")
	second := shortenURL(t, client, "https://example.org/2")

	var urls models.UserUrls
	response, err = client.R().SetResult(&urls).Get("/api/user/urls")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, response.StatusCode())
	require.Len(t, urls, 2)
	assert.Equal(t, first, urls[0].ShortURL)
	assert.Equal(t, second, urls[1].ShortURL)
}

func TestRedirectUnknownShort(t *testing.T) {
	env := newTestEnv(t)
	client := newClient(env)

	response, err := client.R().Get("/nosuch")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, response.StatusCode())
}

func TestInvalidURLRejected(t *testing.T) {
	env := newTestEnv(t)
	client := newClient(env)

	registerUser(t, client, "a@x.com", "password123")

	for _, candidate := range []string{"example.com", "javascript:alert(1)"} {
		body, err := json.Marshal(map[string]string{"url": candidate})
		require.NoError(t, err)

		response, err := client.R().
			SetHeader("Content-Type", "application/json").
			SetBody(body).
			Post("/api/shorten")
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, response.StatusCode(), fmt.Sprintf("candidate %q", candidate))
	}
}

func TestInternalStats(t *testing.T) {
	env := newTestEnv(t, withTrustedSubnet("192.168.1.0/24"))
	client := newClient(env)

	registerUser(t, client, "a@x.com", "password123")
	shortenURL(t, client, "https://example.org")

	var stats models.InternalStatsResponse
	response, err := client.R().
		SetHeader("X-Real-IP", "192.168.1.7").
		SetResult(&stats).
		Get("/api/internal/stats")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, response.StatusCode())
	assert.Equal(t, 1, stats.URLs)
	assert.Equal(t, 1, stats.Users)

	response, err = client.R().
		SetHeader("X-Real-IP", "10.0.0.1").
		Get("/api/internal/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, response.StatusCode())
}

func TestInternalStatsDisabledWithoutSubnet(t *testing.T) {
	env := newTestEnv(t)
	client := newClient(env)

	response, err := client.R().
		SetHeader("X-Real-IP", "192.168.1.7").
		Get("/api/internal/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, response.StatusCode())
}

func TestShortenKeySpaceSaturated(t *testing.T) {
	svcMock := &mockservice.ServiceMock{}
	env := newTestEnv(t, withMockService(svcMock))
	client := newClient(env)

	// The gate resolves sessions through the real directory, so back the
	// mocked login with a real account.
	usr, err := env.directory.Create("a@x.com", "password123")
	require.NoError(t, err)

	svcMock.On("Login", "a@x.com", "password123").Return(usr, nil)
	svcMock.On("ShortenURL", usr.ID, "https://example.org").
		Return("", fmt.Errorf("generating short id: %w", keygen.ErrExhausted))

	response, err := client.R().
		SetBody(models.LoginRequest{Email: "a@x.com", Password: "password123"}).
		Post("/api/user/login")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, response.StatusCode())

	response, err = client.R().
		SetBody(models.ShortenRequest{URL: "https://example.org"}).
		Post("/api/shorten")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, response.StatusCode())

	svcMock.AssertExpectations(t)
}
