package testutil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"

	"taskboard/internal/service"
)

// Server serves the task REST API over a FakeGateway.
type Server struct {
	*httptest.Server
	Fake *FakeGateway

	mu      sync.Mutex
	headers []http.Header
}

// NewServer starts a server backed by fake. It is closed when the test ends.
func NewServer(t *testing.T, fake *FakeGateway) *Server {
	t.Helper()

	s := &Server{Fake: fake}
	r := mux.NewRouter()
	r.Use(s.record)

	r.HandleFunc("/api/auth/login", s.login).Methods(http.MethodPost)
	r.HandleFunc("/api/user", s.register).Methods(http.MethodPost)

	r.Handle("/api/task", s.auth(s.create)).Methods(http.MethodPost)
	r.Handle("/api/task/", s.auth(s.list)).Methods(http.MethodGet)
	r.Handle("/api/task/{id}/todo", s.auth(s.status(service.StatusTodo))).Methods(http.MethodPatch)
	r.Handle("/api/task/{id}/in-progress", s.auth(s.status(service.StatusInProgress))).Methods(http.MethodPatch)
	r.Handle("/api/task/{id}/done", s.auth(s.status(service.StatusDone))).Methods(http.MethodPatch)
	r.Handle("/api/task/{id}", s.auth(s.update)).Methods(http.MethodPut)
	r.Handle("/api/task/{id}", s.auth(s.remove)).Methods(http.MethodDelete)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// BaseURL returns the API base URL as configured in api_url.
func (s *Server) BaseURL() string {
	return s.URL + "/api"
}

// Headers returns the request headers seen so far, in arrival order.
func (s *Server) Headers() []http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]http.Header(nil), s.headers...)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.headers = append(s.headers, r.Header.Clone())
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) auth(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Unauthorized"})
			return
		}
		if _, known := s.Fake.TokenEmail(token); !known {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Unauthorized"})
			return
		}
		h(w, r)
	})
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Invalid request payload"})
		return
	}
	env, err := s.Fake.CreateTask(r.Context(), req)
	reply(w, env, err)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	env, err := s.Fake.ListTasks(r.Context(), r.URL.Query().Get("userEmail"))
	reply(w, env, err)
}

func (s *Server) status(status service.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		env, err := service.SetStatus(r.Context(), s.Fake, mux.Vars(r)["id"], status)
		reply(w, env, err)
	}
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	var task service.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Invalid request payload"})
		return
	}
	task.ID = mux.Vars(r)["id"]
	env, err := s.Fake.UpdateTask(r.Context(), task)
	reply(w, env, err)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	env, err := s.Fake.DeleteTask(r.Context(), mux.Vars(r)["id"])
	reply(w, env, err)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	env, err := s.Fake.Login(r.Context(), body.Email)
	reply(w, env, err)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	env, err := s.Fake.Register(r.Context(), body.Email)
	reply(w, env, err)
}

// reply writes env, or maps an injected error to an HTTP failure.
func reply[T any](w http.ResponseWriter, env service.Envelope[T], err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, env)
		return
	}
	code := http.StatusInternalServerError
	msg := err.Error()
	var terr *service.TransportError
	if errors.As(err, &terr) {
		if terr.StatusCode != 0 {
			code = terr.StatusCode
		}
		if terr.Message != "" {
			msg = terr.Message
		}
	}
	writeJSON(w, code, map[string]any{"success": false, "message": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
