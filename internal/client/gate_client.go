package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"parking-service/internal/config"
	"parking-service/internal/metrics"
	"parking-service/internal/model"
)

const (
	internalTokenHeader = "X-Internal-Token"
	maxRetries          = 3
)

// gateSession is one entry of the gate backend's session listing.
type gateSession struct {
	SessionID string `json:"session_id"`
	Session   struct {
		PlateURL    string `json:"plateUrl"`
		FaceURL     string `json:"faceUrl"`
		Timestamp   string `json:"timestamp"`
		Gate        string `json:"gate"`
		IsOut       bool   `json:"isOut"`
		FaceIndex   string `json:"faceIndex"`
		PlateNumber string `json:"plateNumber"`
	} `json:"session"`
}

type finalizeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// GateClient talks to the gate backend over HTTP.
type GateClient struct {
	baseURL       string
	internalToken string
	httpClient    *http.Client
	log           zerolog.Logger
}

func NewGateClient(cfg *config.Config, log zerolog.Logger) *GateClient {
	return &GateClient{
		baseURL:       cfg.Gate.ServiceURL,
		internalToken: cfg.Gate.InternalToken,
		httpClient: &http.Client{
			Timeout: cfg.Gate.Timeout,
		},
		log: log.With().Str("component", "gate_client").Logger(),
	}
}

// ListEvents returns the most recent events, optionally restricted to one
// gate. Events whose timestamp cannot be parsed are skipped.
func (c *GateClient) ListEvents(ctx context.Context, gate *model.Gate, limit int) ([]model.GateEvent, error) {
	q := url.Values{}
	if gate != nil {
		q.Set("gate", string(*gate))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	body, err := c.do(ctx, "list_events", http.MethodGet, "/api/sessions/", q)
	if err != nil {
		return nil, err
	}

	var raw []gateSession
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: failed to parse sessions: %v", model.ErrSourceUnavailable, err)
	}

	events := make([]model.GateEvent, 0, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r.SessionID) == "" {
			c.log.Warn().Str("gate", r.Session.Gate).Str("timestamp", r.Session.Timestamp).Msg("skipping event without session id")
			continue
		}
		ts, err := model.ParseTimestamp(r.Session.Timestamp)
		if err != nil {
			c.log.Warn().Str("session_id", r.SessionID).Str("timestamp", r.Session.Timestamp).Msg("skipping event with unparseable timestamp")
			continue
		}
		events = append(events, model.GateEvent{
			SessionID:     r.SessionID,
			Gate:          model.Gate(r.Session.Gate),
			Timestamp:     ts,
			Plate:         r.Session.PlateNumber,
			FaceID:        r.Session.FaceIndex,
			PlateImageURL: r.Session.PlateURL,
			FaceImageURL:  r.Session.FaceURL,
			CheckedOut:    r.Session.IsOut,
		})
	}
	return events, nil
}

// ListVerifiedSessions fetches the pre-paired feed.
func (c *GateClient) ListVerifiedSessions(ctx context.Context) ([]model.VerifiedSessionRecord, error) {
	body, err := c.do(ctx, "list_verified", http.MethodGet, "/api/sessions/enhanced", nil)
	if err != nil {
		return nil, err
	}
	var records []model.VerifiedSessionRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("%w: failed to parse enhanced sessions: %v", model.ErrSourceUnavailable, err)
	}
	return records, nil
}

// FinalizeExit asks the backend to close the session ending at exitID.
// A refusal is reported as model.ErrFinalizeRejected with the backend's message.
func (c *GateClient) FinalizeExit(ctx context.Context, exitID string) (model.FinalizeResult, error) {
	if c.baseURL == "" {
		return model.FinalizeResult{}, fmt.Errorf("%w: gate service URL is not configured", model.ErrSourceUnavailable)
	}
	u := c.baseURL + "/api/sessions/finalize-exit/" + url.PathEscape(exitID)

	start := time.Now()
	req, err := c.newRequest(ctx, http.MethodPost, u)
	if err != nil {
		return model.FinalizeResult{}, err
	}
	// Not retried: the request is not idempotent from the backend's side.
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observe("finalize", "error", start)
		return model.FinalizeResult{}, fmt.Errorf("%w: failed to execute request: %v", model.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		observe("finalize", "error", start)
		return model.FinalizeResult{}, fmt.Errorf("%w: failed to read response: %v", model.ErrSourceUnavailable, err)
	}

	var parsed finalizeResponse
	_ = json.Unmarshal(body, &parsed)
	message := parsed.Message
	if message == "" {
		message = parsed.Detail
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		observe("finalize", "error", start)
		return model.FinalizeResult{}, fmt.Errorf("%w: gate service returned status %d: %s", model.ErrSourceUnavailable, resp.StatusCode, string(body))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !parsed.Success {
		observe("finalize", "rejected", start)
		if message == "" {
			message = "failed to finalize exit"
		}
		return model.FinalizeResult{Success: false, Message: message, ExitSessionID: exitID},
			fmt.Errorf("%w: %s", model.ErrFinalizeRejected, message)
	}

	observe("finalize", "ok", start)
	return model.FinalizeResult{Success: true, Message: message, ExitSessionID: exitID}, nil
}

func (c *GateClient) newRequest(ctx context.Context, method, u string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", model.ErrSourceUnavailable, err)
	}
	if c.internalToken != "" {
		req.Header.Set(internalTokenHeader, c.internalToken)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do performs a GET with retry on network errors and returns the body of a
// 200 response.
func (c *GateClient) do(ctx context.Context, operation, method, path string, q url.Values) ([]byte, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("%w: gate service URL is not configured", model.ErrSourceUnavailable)
	}
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid gate service URL: %v", model.ErrSourceUnavailable, err)
	}
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}

	start := time.Now()
	var resp *http.Response
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		req, err := c.newRequest(ctx, method, u.String())
		if err != nil {
			return nil, err
		}
		resp, lastErr = c.httpClient.Do(req)
		if lastErr == nil {
			break
		}
		if attempt == maxRetries-1 || ctx.Err() != nil {
			observe(operation, "error", start)
			return nil, fmt.Errorf("%w: failed to execute request after %d attempts: %v", model.ErrSourceUnavailable, attempt+1, lastErr)
		}
		c.log.Debug().Err(lastErr).Int("attempt", attempt+1).Str("operation", operation).Msg("retrying gate request")
		select {
		case <-ctx.Done():
			observe(operation, "error", start)
			return nil, fmt.Errorf("%w: %v", model.ErrSourceUnavailable, ctx.Err())
		case <-time.After(time.Duration(attempt+1) * 500 * time.Millisecond):
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		observe(operation, "error", start)
		return nil, fmt.Errorf("%w: failed to read response: %v", model.ErrSourceUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		observe(operation, "error", start)
		return nil, fmt.Errorf("%w: gate service returned status %d: %s", model.ErrSourceUnavailable, resp.StatusCode, string(bytes.TrimSpace(body)))
	}

	observe(operation, "ok", start)
	return body, nil
}

func observe(operation, result string, start time.Time) {
	metrics.GateRequestDuration.WithLabelValues(operation, result).Observe(time.Since(start).Seconds())
}
