// Package notify posts call outcomes to the dispatch team's Slack channel:
// an immediate alert when a call escalates to a human, and a post-call
// extraction summary. Notification failures are logged and swallowed; the
// call pipeline never depends on Slack being up.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/fleetvoice/dispatchd/internal/extraction"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// SetTestTransport points the poster at a test server.
func (p *Poster) SetTestTransport(url string) {
	p.apiURL = url
}

// PostEscalation alerts the dispatch channel that a call left automated flow.
// Returns the message timestamp (ts) for threading.
func (p *Poster) PostEscalation(ctx context.Context, callID, agentID, state string, keywords []string) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, ":rotating_light: *Emergency escalation* on call `%s`\n", callID)
	fmt.Fprintf(&sb, "*Agent:* %s | *State:* %s\n", agentID, state)
	if len(keywords) > 0 {
		fmt.Fprintf(&sb, "*Trigger words:* %s\n", strings.Join(keywords, ", "))
	}
	sb.WriteString("A human dispatcher should pick up this call now.")

	ts, err := p.post(ctx, sb.String(), "")
	if err != nil {
		return "", err
	}
	p.logger.Info("posted escalation alert to slack", "ts", ts, "call_id", callID)
	return ts, nil
}

// PostExtractionSummary posts the reconciled post-call extraction for the
// dispatch team's review.
func (p *Poster) PostExtractionSummary(ctx context.Context, result *extraction.Result) (string, error) {
	ts, err := p.post(ctx, formatExtractionMessage(result), "")
	if err != nil {
		return "", err
	}
	p.logger.Info("posted extraction summary to slack", "ts", ts, "call_id", result.CallID)
	return ts, nil
}

// PostThread posts a threaded reply to a message.
func (p *Poster) PostThread(ctx context.Context, threadTS, text string) error {
	_, err := p.post(ctx, text, threadTS)
	return err
}

func (p *Poster) post(ctx context.Context, text, threadTS string) (string, error) {
	payload := map[string]any{
		"channel": p.channel,
		"text":    text,
	}
	if threadTS != "" {
		payload["thread_ts"] = threadTS
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}
	return slackResp.TS, nil
}

func formatExtractionMessage(result *extraction.Result) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "*Call:* `%s` (%s)\n", result.CallID, result.ScenarioType)
	fmt.Fprintf(&sb, "*Method:* %s | *Confidence:* %.2f\n\n", result.Method, result.Confidence)

	keys := make([]string, 0, len(result.Fields))
	for k := range result.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	filled := 0
	for _, k := range keys {
		v := result.Fields[k]
		if v == nil || v == "" {
			continue
		}
		fmt.Fprintf(&sb, "• *%s:* %v\n", k, v)
		filled++
	}
	if filled == 0 {
		sb.WriteString("_No fields extracted from this call._")
	}

	return sb.String()
}
