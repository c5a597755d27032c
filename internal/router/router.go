// Package router maps HTTP verbs and paths onto the core operations and
// translates core error kinds into HTTP statuses.
package router

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ArcaneCipher/tinyapp/internal/auth"
	"github.com/ArcaneCipher/tinyapp/internal/gzippedhttp"
	"github.com/ArcaneCipher/tinyapp/internal/ipchecker"
	"github.com/ArcaneCipher/tinyapp/internal/keygen"
	"github.com/ArcaneCipher/tinyapp/internal/logger"
	"github.com/ArcaneCipher/tinyapp/internal/models"
	"github.com/ArcaneCipher/tinyapp/internal/user"
)

type shortener interface {
	Register(email, rawPassword string) (*user.User, error)
	Login(email, rawPassword string) (*user.User, error)
	ShortenURL(ownerID, longURL string) (string, error)
	GetUserURLs(ownerID string) models.UserUrls
	UpdateURL(short, ownerID, newLongURL string) error
	DeleteURL(short, ownerID string) error
	GetURLStats(short, ownerID string) (models.URLStatsResponse, error)
	ResolveURL(short, visitorID string) (string, error)
	GetInternalStats() models.InternalStatsResponse
}

type sessionGate interface {
	Authenticate(h http.Handler) http.Handler
	RequireUser(h http.Handler) http.Handler
	AssignVisitorID(h http.Handler) http.Handler
	IssueSession(response http.ResponseWriter, userID string) error
	ClearSession(response http.ResponseWriter)
}

type handlers struct {
	svc      shortener
	gate     sessionGate
	checker  *ipchecker.IPChecker
	validate *validator.Validate
}

// New assembles the chi router with the full middleware stack.
func New(svc shortener, gate sessionGate, checker *ipchecker.IPChecker) http.Handler {
	h := &handlers{
		svc:      svc,
		gate:     gate,
		checker:  checker,
		validate: validator.New(),
	}

	router := chi.NewRouter()
	router.Use(logger.WithLoggingHTTPMiddleware)
	router.Use(gzippedhttp.GzipResponse)
	router.Use(gzippedhttp.UngzipRequest)
	router.Use(gate.Authenticate)
	router.Use(gate.AssignVisitorID)

	router.Post(`/api/user/register`, h.postRegister)
	router.Post(`/api/user/login`, h.postLogin)
	router.Post(`/api/user/logout`, h.postLogout)

	router.Group(func(r chi.Router) {
		r.Use(gate.RequireUser)
		r.Post(`/api/shorten`, h.postShorten)
		r.Get(`/api/user/urls`, h.getUserUrls)
		r.Put(`/api/user/urls/{short}`, h.putUserURL)
		r.Delete(`/api/user/urls/{short}`, h.deleteUserURL)
		r.Get(`/api/user/urls/{short}/stats`, h.getURLStats)
	})

	router.Get(`/api/internal/stats`, h.getInternalStats)
	router.Get(`/{short}`, h.getRedirectToFullURL)

	return router
}

func (h *handlers) postRegister(response http.ResponseWriter, request *http.Request) {
	var payload models.RegisterRequest
	if !h.decodeAndValidate(response, request, &payload) {
		return
	}

	usr, err := h.svc.Register(payload.Email, payload.Password)
	if err != nil {
		writeError(response, err, statusForError(err))
		return
	}

	if err := h.gate.IssueSession(response, usr.ID); err != nil {
		logger.Log.Debugln("Error calling the `h.gate.IssueSession()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(response, http.StatusCreated, models.UserResponse{ID: usr.ID, Email: usr.Email})
}

func (h *handlers) postLogin(response http.ResponseWriter, request *http.Request) {
	var payload models.LoginRequest
	if !h.decodeAndValidate(response, request, &payload) {
		return
	}

	usr, err := h.svc.Login(payload.Email, payload.Password)
	if err != nil {
		// On login a credential mismatch is an authentication failure,
		// not a malformed request.
		writeError(response, err, http.StatusUnauthorized)
		return
	}

	if err := h.gate.IssueSession(response, usr.ID); err != nil {
		logger.Log.Debugln("Error calling the `h.gate.IssueSession()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(response, http.StatusOK, models.UserResponse{ID: usr.ID, Email: usr.Email})
}

func (h *handlers) postLogout(response http.ResponseWriter, request *http.Request) {
	h.gate.ClearSession(response)
	response.WriteHeader(http.StatusNoContent)
}

func (h *handlers) postShorten(response http.ResponseWriter, request *http.Request) {
	var payload models.ShortenRequest
	if !h.decodeAndValidate(response, request, &payload) {
		return
	}

	shortURL, err := h.svc.ShortenURL(currentUserID(request), payload.URL)
	if err != nil {
		writeError(response, err, statusForError(err))
		return
	}

	writeJSON(response, http.StatusCreated, models.ShortenResponse{Result: shortURL})
}

func (h *handlers) getUserUrls(response http.ResponseWriter, request *http.Request) {
	urls := h.svc.GetUserURLs(currentUserID(request))
	if len(urls) == 0 {
		response.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(response, http.StatusOK, urls)
}

func (h *handlers) putUserURL(response http.ResponseWriter, request *http.Request) {
	var payload models.UpdateURLRequest
	if !h.decodeAndValidate(response, request, &payload) {
		return
	}

	short := chi.URLParam(request, "short")
	if err := h.svc.UpdateURL(short, currentUserID(request), payload.URL); err != nil {
		writeError(response, err, statusForError(err))
		return
	}

	response.WriteHeader(http.StatusOK)
}

func (h *handlers) deleteUserURL(response http.ResponseWriter, request *http.Request) {
	short := chi.URLParam(request, "short")
	if err := h.svc.DeleteURL(short, currentUserID(request)); err != nil {
		writeError(response, err, statusForError(err))
		return
	}

	response.WriteHeader(http.StatusNoContent)
}

func (h *handlers) getURLStats(response http.ResponseWriter, request *http.Request) {
	short := chi.URLParam(request, "short")
	stats, err := h.svc.GetURLStats(short, currentUserID(request))
	if err != nil {
		writeError(response, err, statusForError(err))
		return
	}

	writeJSON(response, http.StatusOK, stats)
}

func (h *handlers) getRedirectToFullURL(response http.ResponseWriter, request *http.Request) {
	short := chi.URLParam(request, "short")
	visitorID, _ := request.Context().Value(auth.VisitorIDKey).(string)

	long, err := h.svc.ResolveURL(short, visitorID)
	if err != nil {
		writeError(response, err, statusForError(err))
		return
	}

	http.Redirect(response, request, long, http.StatusTemporaryRedirect)
}

func (h *handlers) getInternalStats(response http.ResponseWriter, request *http.Request) {
	if h.checker.IsDisabled() {
		response.WriteHeader(http.StatusForbidden)
		return
	}

	clientIP, err := h.checker.GetClientIP(request)
	if err != nil || !h.checker.Check(clientIP) {
		response.WriteHeader(http.StatusForbidden)
		return
	}

	writeJSON(response, http.StatusOK, h.svc.GetInternalStats())
}

func (h *handlers) decodeAndValidate(response http.ResponseWriter, request *http.Request, payload interface{}) bool {
	if err := json.NewDecoder(request.Body).Decode(payload); err != nil {
		http.Error(response, err.Error(), http.StatusBadRequest)
		return false
	}
	if err := h.validate.Struct(payload); err != nil {
		http.Error(response, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func currentUserID(request *http.Request) string {
	userID, _ := request.Context().Value(auth.UserIDKey).(string)
	return userID
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidURL), errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrEmailAlreadyRegistered):
		return http.StatusConflict
	case errors.Is(err, keygen.ErrExhausted):
		// Key space saturation is a retryable server-side condition.
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(response http.ResponseWriter, err error, status int) {
	http.Error(response, err.Error(), status)
}

func writeJSON(response http.ResponseWriter, status int, payload interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	if err := json.NewEncoder(response).Encode(payload); err != nil {
		logger.Log.Debugln("Error encoding the response body: ", zap.Error(err))
	}
}
