package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"taskvault/api"
	"taskvault/identity"
	"taskvault/session"
	"taskvault/tasklist"
)

const requestTimeout = 3 * time.Second

type server struct {
	tasks    *tasklist.Store
	provider identity.Provider
	holder   *session.Holder
	logger   *log.Logger
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", s.loginHandler)
	mux.HandleFunc("/register", s.registerHandler)
	mux.HandleFunc("/logout", s.logoutHandler)
	guarded := requireSession(s.holder, http.HandlerFunc(s.taskHandler))
	mux.Handle("/tasks", guarded)
	mux.Handle("/tasks/", guarded)
	return mux
}

// taskHandler serves the task list. List operations never fail on bad
// input: a whitespace-only add and an out-of-range delete are silent
// no-ops, answered with the unchanged list.
func (s *server) taskHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if id := identityFrom(r.Context()); id != nil {
		s.logger.Debug("task request", "method", r.Method, "user", id.Email)
	}

	idxStr := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/tasks"), "/")

	if idxStr == "" {
		switch r.Method {
		case http.MethodGet:
			s.writeTasks(w, s.tasks.Tasks(ctx))
		case http.MethodPost:
			s.addTask(ctx, w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	idx, err := strconv.Atoi(idxStr)
	if err != nil {
		http.Error(w, "Invalid task index", http.StatusBadRequest)
		return
	}
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, err := s.tasks.DeleteAt(ctx, idx); err != nil {
		s.logger.Error("persisting task list failed", "err", err)
		http.Error(w, "Storage error", http.StatusInternalServerError)
		return
	}
	s.writeTasks(w, s.tasks.Tasks(ctx))
}

func (s *server) addTask(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	var req api.AddTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if _, err := s.tasks.Add(ctx, req.Text); err != nil {
		s.logger.Error("persisting task list failed", "err", err)
		http.Error(w, "Storage error", http.StatusInternalServerError)
		return
	}
	s.writeTasks(w, s.tasks.Tasks(ctx))
}

func (s *server) writeTasks(w http.ResponseWriter, tasks []string) {
	writeJSON(w, http.StatusOK, api.TaskListResponse{Tasks: tasks})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
