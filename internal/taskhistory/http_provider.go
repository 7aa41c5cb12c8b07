package taskhistory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"agentcore/internal/logging"
)

// HTTPProvider calls GET {endpointBase}/tasks/recent?limit=N, per spec.md §6.
// Modeled on internal/acquisition.HTTPReasoner: a bare *http.Client with an
// explicit timeout, context-aware request construction, non-2xx bodies
// surfaced as a truncated error rather than schema-parsed.
type HTTPProvider struct {
	cfg          Config
	endpointBase string
	client       *http.Client
}

// NewHTTPProvider builds an HTTPProvider against endpointBase. An empty
// endpointBase defaults to the local task-history service port.
func NewHTTPProvider(cfg Config, endpointBase string, timeout time.Duration) *HTTPProvider {
	if endpointBase == "" {
		endpointBase = "http://localhost:8090"
	}
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &HTTPProvider{
		cfg:          cfg,
		endpointBase: endpointBase,
		client:       &http.Client{Timeout: timeout},
	}
}

type recentTasksResponse struct {
	Tasks []RecentTaskItem `json:"tasks"`
}

// GetRecent never schema-parses a non-2xx response: it returns ok:false with
// source=planning_http and a truncated error, per spec.md §6.
func (p *HTTPProvider) GetRecent(ctx context.Context, limit int) Snapshot {
	now := nowFn()
	if limit <= 0 || limit > p.cfg.MaxLimit {
		limit = p.cfg.MaxLimit
	}

	url := fmt.Sprintf("%s/tasks/recent?limit=%d", p.endpointBase, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Snapshot{OK: false, Source: SourceHTTP, Error: truncate(err.Error(), 200), FetchedAt: now}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		logging.TaskHistoryDebug("http provider transport failure: %v", err)
		return Snapshot{OK: false, Source: SourceHTTP, Error: truncate(fmt.Sprintf("transport.failure: %v", err), 200), FetchedAt: now}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		msg := truncate(fmt.Sprintf("schema.invalid: status %d: %s", resp.StatusCode, string(raw)), 200)
		return Snapshot{OK: false, Source: SourceHTTP, Error: msg, FetchedAt: now}
	}

	var decoded recentTasksResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Snapshot{OK: false, Source: SourceHTTP, Error: truncate(fmt.Sprintf("schema.invalid: %v", err), 200), FetchedAt: now}
	}

	return Snapshot{
		OK:        true,
		Source:    SourceHTTP,
		Tasks:     boundAndSort(decoded.Tasks, p.cfg, limit),
		FetchedAt: now,
	}
}
