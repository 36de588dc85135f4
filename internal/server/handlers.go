package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/llmpulse/llmpulse/internal/bench"
	"github.com/llmpulse/llmpulse/internal/jobs"
	"github.com/llmpulse/llmpulse/internal/llmclient"
	"github.com/llmpulse/llmpulse/internal/metrics"
	"github.com/llmpulse/llmpulse/internal/output"
)

// watchInterval is how often live snapshots are pushed to websocket clients.
const watchInterval = time.Second

// BenchmarkRequest is the submission payload shared by the synchronous and
// asynchronous endpoints. Durations are given in seconds; zero values fall
// back to the server's configured defaults.
type BenchmarkRequest struct {
	Endpoint        string   `json:"endpoint"`
	APIKey          string   `json:"api_key,omitempty"`
	Model           string   `json:"model,omitempty"`
	Prompt          string   `json:"prompt,omitempty"`
	Requests        int      `json:"num_requests,omitempty"`
	TimeoutSecs     float64  `json:"timeout,omitempty"`
	MaxRetries      *int     `json:"max_retries,omitempty"`
	RetryDelaySecs  *float64 `json:"retry_delay,omitempty"`
	PacingSecs      *float64 `json:"request_delay,omitempty"`
	MaxTokens       int      `json:"max_tokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	RandomizePrompt bool     `json:"randomize_prompt,omitempty"`
}

// normalize fills unset fields from server defaults and validates the rest.
func (s *Server) normalize(req *BenchmarkRequest) error {
	var issues []string

	req.Endpoint = strings.TrimSpace(req.Endpoint)
	if req.Endpoint == "" {
		req.Endpoint = s.cfg.Endpoint
	}
	if req.Endpoint == "" {
		issues = append(issues, "endpoint is required")
	}
	if req.APIKey == "" {
		req.APIKey = s.cfg.APIKey
	}
	if strings.TrimSpace(req.Model) == "" {
		req.Model = s.cfg.Model
	}
	if req.Prompt == "" {
		req.Prompt = s.cfg.Prompt
	}
	if req.Requests == 0 {
		req.Requests = s.cfg.Requests
	}
	if req.Requests < 1 {
		issues = append(issues, "num_requests must be >= 1")
	}
	if req.TimeoutSecs == 0 {
		req.TimeoutSecs = s.cfg.Timeout.Seconds()
	}
	if req.TimeoutSecs < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if req.MaxRetries == nil {
		retries := s.cfg.MaxRetries
		req.MaxRetries = &retries
	}
	if *req.MaxRetries < 0 {
		issues = append(issues, "max_retries must be >= 0")
	}
	if req.RetryDelaySecs == nil {
		delay := s.cfg.RetryDelay.Seconds()
		req.RetryDelaySecs = &delay
	}
	if *req.RetryDelaySecs < 0 {
		issues = append(issues, "retry_delay must be >= 0")
	}
	if req.PacingSecs == nil {
		delay := s.cfg.RequestDelay.Seconds()
		req.PacingSecs = &delay
	}
	if *req.PacingSecs < 0 {
		issues = append(issues, "request_delay must be >= 0")
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = s.cfg.MaxTokens
	}
	if req.MaxTokens < 1 {
		issues = append(issues, "max_tokens must be >= 1")
	}
	if req.Temperature == nil {
		temp := s.cfg.Temperature
		req.Temperature = &temp
	}
	if *req.Temperature < 0 || *req.Temperature > 2 {
		issues = append(issues, "temperature must be between 0 and 2")
	}

	if len(issues) > 0 {
		return fmt.Errorf("%s", strings.Join(issues, "; "))
	}
	return nil
}

// runnerFor builds the benchmark closure executed for one request payload.
func (s *Server) runnerFor(req BenchmarkRequest) jobs.RunnerFunc {
	return func(ctx context.Context, collector *metrics.Collector) (output.Report, error) {
		client := llmclient.New(llmclient.Options{
			Endpoint:    req.Endpoint,
			APIKey:      req.APIKey,
			Model:       req.Model,
			Timeout:     secs(req.TimeoutSecs),
			Insecure:    s.cfg.Insecure,
			ForceHTTP:   s.cfg.ForceHTTP,
			MaxTokens:   req.MaxTokens,
			Temperature: *req.Temperature,
		}, nil)

		runner := bench.NewRunner(bench.Options{
			Requests:        req.Requests,
			Pacing:          secs(*req.PacingSecs),
			Prompt:          req.Prompt,
			RandomizePrompt: req.RandomizePrompt,
			Buckets:         s.cfg.Buckets,
			Executor: &bench.Executor{
				Sender: client,
				Classifier: bench.DefaultClassifier{
					MaxRetries: *req.MaxRetries,
					BaseDelay:  secs(*req.RetryDelaySecs),
				},
			},
			Observer: collector,
		})

		result := runner.Run(ctx)
		if err := ctx.Err(); err != nil {
			return output.Report{}, err
		}
		return output.BuildReport(req.Endpoint, req.Model, result), nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleBenchmark runs a benchmark synchronously and returns the report.
func (s *Server) handleBenchmark(w http.ResponseWriter, r *http.Request) {
	var req BenchmarkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.normalize(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	collector := metrics.NewCollector(req.Requests)
	collector.Start()
	report, err := s.runnerFor(req)(r.Context(), collector)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleSubmitJob starts a benchmark in the background and returns 202 with
// the job id.
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req BenchmarkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.normalize(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := s.manager.Submit(context.Background(), req.Requests, s.runnerFor(req))
	writeJSON(w, http.StatusAccepted, job.Status())
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	ids := s.manager.IDs()
	statuses := make([]jobs.Status, 0, len(ids))
	for _, id := range ids {
		if job, ok := s.manager.Get(id); ok {
			statuses = append(statuses, job.Status())
		}
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := s.manager.Get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "unknown job id")
		return
	}
	writeJSON(w, http.StatusOK, job.Status())
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.manager.Cancel(id) {
		writeError(w, http.StatusNotFound, "unknown job id")
		return
	}
	job, _ := s.manager.Get(id)
	writeJSON(w, http.StatusOK, job.Status())
}

// handleWatchJob streams job snapshots over a websocket until the job
// finishes or the client goes away.
func (s *Server) handleWatchJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.manager.Get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "unknown job id")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	send := func() bool {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		return conn.WriteJSON(job.Status()) == nil
	}

	if !send() {
		return
	}
	for {
		select {
		case <-ticker.C:
			if !send() {
				return
			}
		case <-job.Done():
			send()
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished")
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			conn.WriteMessage(websocket.CloseMessage, msg)
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "report store disabled")
		return
	}
	ids, err := s.store.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"reports": ids})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "report store disabled")
		return
	}
	report, err := s.store.Load(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown report id")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func secs(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
