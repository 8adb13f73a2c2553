package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/hr-console/modules/hrm/domain/aggregates/allocation"
	"github.com/iota-uz/hr-console/modules/hrm/domain/entities/objective"
	"github.com/iota-uz/hr-console/pkg/httpapi"
)

const maxResponseBytes = 4 << 20

// APIError is a non-2xx answer from the console API.
type APIError struct {
	Status   int
	Envelope httpapi.ErrorEnvelope
}

func (e *APIError) Error() string {
	msg := e.Envelope.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Envelope.Code != "" {
		return fmt.Sprintf("api %d %s: %s", e.Status, e.Envelope.Code, msg)
	}
	return fmt.Sprintf("api %d: %s", e.Status, msg)
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithSubject sets the caller identity header the server authorizes against.
func WithSubject(header, subject string) Option {
	return func(c *Client) {
		c.subjectHeader = header
		c.subject = subject
	}
}

func WithLogger(l *logrus.Entry) Option {
	return func(c *Client) { c.logger = l }
}

// Client talks to the /hrm/api endpoints. It serves as objective fetcher,
// KPI reader and KPI saver for remote hosts.
type Client struct {
	baseURL       string
	http          *http.Client
	token         string
	subjectHeader string
	subject       string
	logger        *logrus.Entry
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithField("component", "hrm_rest_client")
	return c
}

type objectiveDTO struct {
	ID       objective.ID `json:"id"`
	Name     string       `json:"name"`
	Code     string       `json:"code"`
	IsActive *bool        `json:"is_active"`
}

func (c *Client) ListActive(ctx context.Context) ([]objective.Objective, error) {
	raw, err := c.do(ctx, http.MethodGet, "/objectives?is_active=true", nil)
	if err != nil {
		return nil, err
	}
	dtos, err := DecodeList[objectiveDTO](raw)
	if err != nil {
		return nil, err
	}
	out := make([]objective.Objective, 0, len(dtos))
	for _, d := range dtos {
		if d.IsActive != nil && !*d.IsActive {
			continue
		}
		out = append(out, objective.Objective{ID: d.ID, Name: d.Name, Code: d.Code, IsActive: true})
	}
	return out, nil
}

func (c *Client) GetByPosition(ctx context.Context, positionID int64) (*allocation.Record, error) {
	raw, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/positions/%d/kpis", positionID), nil)
	if err != nil {
		return nil, err
	}
	entries, err := DecodeList[allocation.Entry](raw)
	if err != nil {
		return nil, err
	}
	return &allocation.Record{PositionID: positionID, Kpis: entries}, nil
}

type saveRequest struct {
	Kpis []allocation.PayloadLine `json:"kpis"`
}

// Save implements the editor's KpiSaver against the remote API.
func (c *Client) Save(ctx context.Context, positionID int64, lines []allocation.PayloadLine) error {
	if lines == nil {
		lines = []allocation.PayloadLine{}
	}
	body, err := json.Marshal(saveRequest{Kpis: lines})
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPut, fmt.Sprintf("/positions/%d/kpis", positionID), body)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.subjectHeader != "" && c.subject != "" {
		req.Header.Set(c.subjectHeader, c.subject)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	c.logger.WithFields(logrus.Fields{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("hrm api call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if len(bytes.TrimSpace(raw)) > 0 {
			_ = json.Unmarshal(raw, &apiErr.Envelope)
		}
		return nil, apiErr
	}
	return raw, nil
}
