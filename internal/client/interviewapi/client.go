// Package interviewapi is the HTTP client of the interview service, used by the
// rehearsal orchestrator.
package interviewapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/utils"
)

type Client struct {
	base *url.URL
	http *http.Client
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, utils.ConfigurationError("interviewapi.New", fmt.Sprintf("invalid api url %q", baseURL))
	}
	c := &Client{base: u, http: &http.Client{Timeout: 30 * time.Second}}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

type apiError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

func (c *Client) StartSession(ctx context.Context, cfg models.InterviewConfig) (*models.StartSessionResult, error) {
	var out models.StartSessionResult
	if err := c.do(ctx, "Client.StartSession", http.MethodPost, "/interview/start", models.StartSessionRequest{Config: cfg}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SubmitTurn(ctx context.Context, sessionID string, req models.SubmitTurnRequest) (*models.TurnResult, error) {
	var out models.TurnResult
	path := "/interview/" + url.PathEscape(sessionID) + "/turn"
	if err := c.do(ctx, "Client.SubmitTurn", http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetNextQuestion(ctx context.Context, sessionID string) (*models.NextQuestionResult, error) {
	var out models.NextQuestionResult
	path := "/interview/" + url.PathEscape(sessionID) + "/next"
	if err := c.do(ctx, "Client.GetNextQuestion", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DictationURL is the websocket endpoint streaming transcripts for a session.
func (c *Client) DictationURL(sessionID string) string {
	u := *c.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/dictation/" + url.PathEscape(sessionID)
	return u.String()
}

func (c *Client) do(ctx context.Context, op, method, path string, body, dst any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return utils.E(utils.CodeInternal, op, "failed to encode request", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, r)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return utils.E(utils.CodeUnavailable, op, "interview service unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to read response", err)
	}

	if resp.StatusCode >= 400 {
		var ae apiError
		_ = json.Unmarshal(raw, &ae)
		code := ae.Code
		if code == "" {
			code = codeForStatus(resp.StatusCode)
		}
		msg := ae.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return utils.E(code, op, msg, nil)
	}

	if dst == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return utils.E(utils.CodeUnavailable, op, "malformed response", err)
	}
	return nil
}

func codeForStatus(status int) utils.Code {
	switch {
	case status == http.StatusNotFound:
		return utils.CodeNotFound
	case status == http.StatusConflict:
		return utils.CodeConflict
	case status == http.StatusGatewayTimeout || status == http.StatusRequestTimeout:
		return utils.CodeTimeout
	case status >= 500:
		return utils.CodeUnavailable
	default:
		return utils.CodeInvalidArgument
	}
}
