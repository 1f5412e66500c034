package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/udisondev/dressroom/internal/db"
	"github.com/udisondev/dressroom/internal/model"
)

const maxRequestBody = 16 << 10

type sessionKey struct{}

// Handler returns the directory HTTP API.
//
//	POST /accounts                 регистрация {login, password}
//	POST /sessions                 вход {login, password} -> {token}
//	DELETE /sessions               выход
//	GET  /characters               персонажи аккаунта
//	POST /characters               создать персонажа {name}
//	GET  /spaces                   список spaces
//	POST /spaces                   создать space {name}
//	POST /spaces/{id}/join         билет входа {characterId}
//	GET  /shards                   живые shards
//	GET  /healthz
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /accounts", s.handleRegister)
	mux.HandleFunc("POST /sessions", s.handleLogin)
	mux.HandleFunc("DELETE /sessions", s.authed(s.handleLogout))
	mux.HandleFunc("GET /characters", s.authed(s.handleListCharacters))
	mux.HandleFunc("POST /characters", s.authed(s.handleCreateCharacter))
	mux.HandleFunc("GET /spaces", s.authed(s.handleListSpaces))
	mux.HandleFunc("POST /spaces", s.authed(s.handleCreateSpace))
	mux.HandleFunc("POST /spaces/{id}/join", s.authed(s.handleJoin))
	mux.HandleFunc("GET /shards", s.authed(s.handleShards))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return gzhttp.GzipHandler(mux)
}

// Run слушает bind_address:port до отмены ctx.
func (s *Service) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.BindAddress, strconv.Itoa(s.cfg.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("directory http shutdown", "error", err)
		}
	}()

	slog.Info("directory listening", "address", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("directory listening on %s: %w", addr, err)
	}
	return nil
}

// authed требует заголовок Authorization: Bearer <token>.
func (s *Service) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		sess, ok := s.Authenticate(token)
		if !ok {
			writeError(w, http.StatusUnauthorized, "session expired")
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		next(w, r.WithContext(ctx))
	}
}

func session(r *http.Request) *SessionInfo {
	return r.Context().Value(sessionKey{}).(*SessionInfo)
}

type credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type nameRequest struct {
	Name string `json:"name"`
}

type joinRequest struct {
	CharacterID model.CharacterID `json:"characterId"`
}

func (s *Service) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !readJSON(w, r, &req) {
		return
	}
	acc, err := s.Register(r.Context(), req.Login, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": acc.ID, "login": acc.Login})
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !readJSON(w, r, &req) {
		return
	}
	token, err := s.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Service) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.Logout(token)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleListCharacters(w http.ResponseWriter, r *http.Request) {
	list, err := s.ListCharacters(r.Context(), session(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if list == nil {
		list = []db.CharacterSummary{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Service) handleCreateCharacter(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !readJSON(w, r, &req) {
		return
	}
	id, err := s.CreateCharacter(r.Context(), session(r), req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, db.CharacterSummary{ID: id, Name: strings.TrimSpace(req.Name)})
}

func (s *Service) handleListSpaces(w http.ResponseWriter, r *http.Request) {
	list, err := s.ListSpaces(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if list == nil {
		list = []db.SpaceRecord{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Service) handleCreateSpace(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !readJSON(w, r, &req) {
		return
	}
	rec, err := s.CreateSpace(r.Context(), session(r), req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Service) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !readJSON(w, r, &req) {
		return
	}
	if !req.CharacterID.Valid() {
		writeError(w, http.StatusBadRequest, "invalid characterId")
		return
	}
	grant, err := s.JoinSpace(r.Context(), session(r), req.CharacterID, model.SpaceID(r.PathValue("id")))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grant)
}

func (s *Service) handleShards(w http.ResponseWriter, r *http.Request) {
	list, err := s.Shards(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if list == nil {
		list = []db.ShardRecord{}
	}
	writeJSON(w, http.StatusOK, list)
}

// writeServiceError переводит ошибку сервиса в HTTP статус.
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrInvalidLogin), errors.Is(err, ErrWeakPassword), errors.Is(err, ErrInvalidName):
		status = http.StatusBadRequest
	case errors.Is(err, ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, ErrNotOwner):
		status = http.StatusForbidden
	case errors.Is(err, db.ErrCharacterNotFound), errors.Is(err, db.ErrSpaceNotFound):
		status = http.StatusNotFound
	case errors.Is(err, db.ErrAccountExists), errors.Is(err, db.ErrCharacterExists), errors.Is(err, db.ErrSpaceExists),
		errors.Is(err, ErrTooManyCharacters):
		status = http.StatusConflict
	case errors.Is(err, ErrNoShard):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		slog.Error("directory request failed", "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("writing response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
