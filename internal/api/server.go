// Package api is the read-only HTTP surface for the agent-provisioning
// collaborator: scenario catalog lookups and engine-config builds. The live
// call path never goes through HTTP.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fleetvoice/dispatchd/internal/convo"
	"github.com/fleetvoice/dispatchd/internal/scenario"
)

type Server struct {
	router   *chi.Mux
	port     int
	registry *scenario.Registry
	convos   *convo.Store
}

func NewServer(port int, apiToken string, registry *scenario.Registry, convos *convo.Store) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		registry: registry,
		convos:   convos,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/dispatchd/status", s.status)

	router.Route("/api/v1/scenarios", func(r chi.Router) {
		r.Get("/", s.listScenarios)
		r.Get("/{type}", s.getScenario)
	})

	router.Route("/api/v1/engine-config", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Post("/", s.buildEngineConfig)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// BearerAuthMiddleware rejects requests without the configured bearer token.
// An empty token disables the check (local development).
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			authz := strings.TrimSpace(r.Header.Get("Authorization"))
			if authz != "Bearer "+token {
				writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	active := 0
	if s.convos != nil {
		active = s.convos.ActiveCalls()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service":      "dispatchd",
		"active_calls": active,
	})
}

func (s *Server) listScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.List())
}

// scenarioDetail is the catalog view of one scenario definition.
type scenarioDetail struct {
	Type         scenario.Type             `json:"type"`
	Name         string                    `json:"name"`
	Description  string                    `json:"description"`
	States       []stateDetail             `json:"states"`
	InitialState string                    `json:"initial_state"`
	Tools        []scenario.Tool           `json:"tools"`
	Schema       map[string]scenario.Field `json:"extraction_schema"`
}

type stateDetail struct {
	Name     string   `json:"name"`
	Terminal bool     `json:"terminal"`
	Edges    []string `json:"edges,omitempty"`
}

func (s *Server) getScenario(w http.ResponseWriter, r *http.Request) {
	t := scenario.Type(chi.URLParam(r, "type"))
	def, err := s.registry.Get(t)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown scenario type: %s", t))
		return
	}

	detail := scenarioDetail{
		Type:         def.Type,
		Name:         def.Name,
		Description:  def.Description,
		InitialState: def.InitialState(),
		Tools:        def.Tools,
		Schema:       def.Schema,
	}
	for _, st := range def.States {
		sd := stateDetail{Name: st.Name, Terminal: st.Terminal()}
		for _, e := range st.Edges {
			sd.Edges = append(sd.Edges, e.Destination)
		}
		detail.States = append(detail.States, sd)
	}

	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) buildEngineConfig(w http.ResponseWriter, r *http.Request) {
	var agent scenario.AgentConfig
	if err := json.NewDecoder(r.Body).Decode(&agent); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	if problems := s.registry.Validate(agent.ScenarioType, agent); len(problems) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": problems})
		return
	}

	cfg, err := s.registry.BuildEngineConfig(agent)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
