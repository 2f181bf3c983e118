// Package server implements the HTTP API of the TAIGA optimization
// service: starting multi-task evolutionary runs, polling their progress
// and cancelling them.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/TAIGA/internal/config"
	"github.com/copyleftdev/TAIGA/internal/metrics"
	"github.com/copyleftdev/TAIGA/internal/optimization"
	"github.com/copyleftdev/TAIGA/internal/optimization/benchmarks"
	"github.com/copyleftdev/TAIGA/internal/optimization/multitask"
	"github.com/copyleftdev/TAIGA/internal/optimization/soga"
)

// Run statuses.
const (
	statusPending   = "pending"
	statusRunning   = "running"
	statusCompleted = "completed"
	statusFailed    = "failed"
	statusCancelled = "cancelled"
)

// TaskRequest describes one task of a run.
type TaskRequest struct {
	Problem         string  `json:"problem"`
	Dim             int     `json:"dim"`
	MaxGen          int     `json:"max_gen,omitempty"`
	MaxTimeSeconds  float64 `json:"max_time_seconds,omitempty"`
	MaxEvals        int     `json:"max_evals,omitempty"`
	TrappedValue    float64 `json:"trapped_value,omitempty"`
	MaxTrappedCount int     `json:"max_trapped_count,omitempty"`
	LogInterval     *int    `json:"log_interval,omitempty"`
	Verbose         bool    `json:"verbose,omitempty"`
}

// RunRequest starts a multi-task run.
type RunRequest struct {
	Tasks          []TaskRequest `json:"tasks"`
	PopulationSize int           `json:"population_size,omitempty"`
	Seed           int64         `json:"seed,omitempty"`
}

// RunState tracks one multi-task run. The runs map and every RunState are
// guarded by the server's mutex; per-task progress comes lock-free from
// the runner's own snapshots.
type RunState struct {
	ID          string
	Status      string
	StartTime   time.Time
	EndTime     *time.Time
	LastUpdated time.Time
	Runner      *multitask.Runner
	Cancel      context.CancelFunc
	Results     []multitask.Result
	Err         string
}

// Server manages optimization runs and serves their HTTP endpoints.
type Server struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics

	runs   map[string]*RunState
	runsMu sync.RWMutex
}

// NewServer creates a server instance with the given config and logger.
// The metrics may be nil, in which case nothing is recorded.
func NewServer(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) *Server {
	return &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		runs:    make(map[string]*RunState),
	}
}

// RegisterRoutes mounts the run API.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/runs", s.handleStartRun)
		r.Get("/runs/{id}", s.handleRunStatus)
		r.Delete("/runs/{id}", s.handleCancelRun)
		r.Get("/problems", s.handleProblems)
	})
}

// handleProblems lists the available benchmark problems.
func (s *Server) handleProblems(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"problems": benchmarks.Names(),
	})
}

// handleStartRun starts a new multi-task run from a RunRequest body.
func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if len(req.Tasks) == 0 {
		s.respondError(w, http.StatusBadRequest, "at least one task is required")
		return
	}

	popSize := req.PopulationSize
	if popSize <= 0 {
		popSize = s.cfg.Engine.PopulationSize
	}
	seed := req.Seed
	if seed == 0 {
		seed = s.cfg.Engine.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	problems := make([]optimization.Problem, len(req.Tasks))
	fields := make([]*optimization.Field, len(req.Tasks))
	configs := make([]multitask.TaskConfig, len(req.Tasks))
	for i, task := range req.Tasks {
		bench, err := benchmarks.ByName(task.Problem, task.Dim)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf("task %d: %v", i, err))
			return
		}
		problems[i] = bench
		fields[i] = bench.Field()
		configs[i] = s.taskConfig(task)
	}

	alg, err := multitask.New(problems,
		multitask.WithTaskConfigs(configs),
		multitask.WithLogger(s.logger),
		multitask.WithMetrics(s.metrics),
	)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	gaCfg := soga.DefaultConfig()
	gaCfg.PopulationSize = popSize
	strategy, err := soga.New(fields, gaCfg, seed)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	runner := multitask.NewRunner(alg, strategy,
		multitask.WithRunnerLogger(s.logger),
		multitask.WithRunnerMetrics(s.metrics),
	)

	ctx, cancel := context.WithCancel(context.Background())
	id := fmt.Sprintf("run_%d", time.Now().UnixNano())
	state := &RunState{
		ID:          id,
		Status:      statusPending,
		StartTime:   time.Now(),
		LastUpdated: time.Now(),
		Runner:      runner,
		Cancel:      cancel,
	}

	s.runsMu.Lock()
	s.runs[id] = state
	s.runsMu.Unlock()

	go s.executeRun(ctx, state)

	s.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"run_id": id,
		"status": statusPending,
		"tasks":  len(req.Tasks),
	})
}

// taskConfig translates a TaskRequest into engine configuration, filling
// gaps from the server defaults.
func (s *Server) taskConfig(task TaskRequest) multitask.TaskConfig {
	cfg := multitask.DefaultTaskConfig()
	cfg.MaxGen = s.cfg.Engine.MaxGenerations
	cfg.MaxTrappedCount = s.cfg.Engine.MaxStagnation
	cfg.LogTras = s.cfg.Engine.LogInterval
	cfg.Verbose = task.Verbose
	cfg.Drawing = multitask.DrawNone

	if task.MaxGen > 0 {
		cfg.MaxGen = task.MaxGen
	}
	if task.MaxTimeSeconds > 0 {
		cfg.MaxTime = time.Duration(task.MaxTimeSeconds * float64(time.Second))
	}
	if task.MaxEvals > 0 {
		cfg.MaxEvals = task.MaxEvals
	}
	if task.TrappedValue > 0 {
		cfg.TrappedValue = task.TrappedValue
	}
	if task.MaxTrappedCount > 0 {
		cfg.MaxTrappedCount = task.MaxTrappedCount
	}
	if task.LogInterval != nil {
		cfg.LogTras = *task.LogInterval
	}
	return cfg
}

// executeRun drives a run to completion in its own goroutine.
func (s *Server) executeRun(ctx context.Context, state *RunState) {
	s.setStatus(state, statusRunning, nil, "")

	results, err := state.Runner.Run(ctx)

	switch {
	case err == nil:
		s.setStatus(state, statusCompleted, results, "")
	case ctx.Err() != nil:
		s.setStatus(state, statusCancelled, nil, ctx.Err().Error())
	default:
		s.logger.Error("run failed",
			zap.String("run_id", state.ID),
			zap.Error(err))
		s.setStatus(state, statusFailed, nil, err.Error())
	}
}

func (s *Server) setStatus(state *RunState, status string, results []multitask.Result, errMsg string) {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()
	// A cancel that raced the final status update wins.
	if state.Status == statusCancelled && status != statusCancelled {
		return
	}
	state.Status = status
	state.Results = results
	state.Err = errMsg
	now := time.Now()
	state.LastUpdated = now
	if status == statusCompleted || status == statusFailed || status == statusCancelled {
		state.EndTime = &now
	}
}

// handleRunStatus reports a run's status, per-task progress and, once
// complete, its results.
func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.runsMu.RLock()
	state, exists := s.runs[id]
	var (
		status      string
		startTime   time.Time
		endTime     *time.Time
		lastUpdated time.Time
		results     []multitask.Result
		errMsg      string
	)
	if exists {
		status = state.Status
		startTime = state.StartTime
		endTime = state.EndTime
		lastUpdated = state.LastUpdated
		results = state.Results
		errMsg = state.Err
	}
	s.runsMu.RUnlock()

	if !exists {
		s.respondError(w, http.StatusNotFound, "run not found")
		return
	}

	response := map[string]interface{}{
		"run_id":      id,
		"status":      status,
		"start_time":  startTime.Format(time.RFC3339),
		"last_update": lastUpdated.Format(time.RFC3339),
	}
	if endTime != nil {
		response["end_time"] = endTime.Format(time.RFC3339)
	}
	if errMsg != "" {
		response["error"] = errMsg
	}

	progress := state.Runner.Progress()
	tasks := make([]map[string]interface{}, len(progress))
	for i, p := range progress {
		entry := map[string]interface{}{
			"task":            p.Task,
			"generation":      p.Generation,
			"evaluations":     p.Evaluations,
			"stagnation":      p.Stagnation,
			"elapsed_seconds": p.Elapsed.Seconds(),
			"finished":        p.Finished,
		}
		if p.Best != nil {
			entry["best_value"] = *p.Best
		}
		if len(p.TraceTail) > 0 {
			entry["trace_tail"] = p.TraceTail
		}
		tasks[i] = entry
	}
	response["tasks"] = tasks

	if results != nil {
		response["results"] = renderResults(results)
	}

	s.respondJSON(w, http.StatusOK, response)
}

// renderResults converts runner results to their JSON shape.
func renderResults(results []multitask.Result) []map[string]interface{} {
	out := make([]map[string]interface{}, len(results))
	for i, res := range results {
		entry := map[string]interface{}{
			"task":            res.Task,
			"generations":     res.Generations,
			"evaluations":     res.Evaluations,
			"elapsed_seconds": res.Elapsed.Seconds(),
			"feasible_found":  res.Best.Size() > 0,
		}
		if res.Best.Size() > 0 {
			entry["best_value"] = res.Best.ObjV.At(0, 0)
			if res.Best.Phen != nil {
				_, vars := res.Best.Phen.Dims()
				point := make([]float64, vars)
				mat.Row(point, 0, res.Best.Phen)
				entry["best_point"] = point
			}
		}
		out[i] = entry
	}
	return out
}

// handleCancelRun cancels a running run.
func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.runsMu.Lock()
	state, exists := s.runs[id]
	if exists {
		switch state.Status {
		case statusCompleted, statusFailed, statusCancelled:
			s.runsMu.Unlock()
			s.respondError(w, http.StatusConflict, fmt.Sprintf("cannot cancel run with status %s", state.Status))
			return
		}
		state.Status = statusCancelled
		now := time.Now()
		state.EndTime = &now
		state.LastUpdated = now
		if state.Cancel != nil {
			state.Cancel()
		}
	}
	s.runsMu.Unlock()

	if !exists {
		s.respondError(w, http.StatusNotFound, "run not found")
		return
	}

	s.logger.Info("run cancelled", zap.String("run_id", id))
	s.respondJSON(w, http.StatusOK, map[string]string{
		"run_id": id,
		"status": statusCancelled,
	})
}

// Close cancels all running runs.
func (s *Server) Close() error {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()
	for _, state := range s.runs {
		if state.Cancel != nil {
			state.Cancel()
		}
	}
	return nil
}

func (s *Server) respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("response encoding failed", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, code int, message string) {
	s.logger.Warn("request error",
		zap.Int("status", code),
		zap.String("message", message))
	s.respondJSON(w, code, map[string]string{"error": message})
}
