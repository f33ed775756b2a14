// ABOUTME: HTTP client for the salescrm REST API
// ABOUTME: Implements the pipeline RemoteStore and maps status codes onto domain errors
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/salescrm/models"
	"github.com/harperreed/salescrm/pipeline"
	"github.com/rs/zerolog"
)

const pageSize = 200

// errMalformedBody marks a 2xx response whose body could not be decoded.
var errMalformedBody = errors.New("malformed response")

// Config configures Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
	// Log receives warnings about responses that were accepted but not fully
	// readable. The zero value discards them.
	Log *zerolog.Logger
}

// Client talks to a salescrm server. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

var _ pipeline.RemoteStore = (*Client)(nil)

func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	log := zerolog.Nop()
	if cfg.Log != nil {
		log = *cfg.Log
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		log:     log,
	}
}

// ListDeals fetches every deal. Pages are keyed on the last id seen rather
// than an offset, so deals edited, added or removed mid-walk cannot shift a
// deal across a page boundary. A deal returned twice keeps its later copy.
func (c *Client) ListDeals(ctx context.Context) ([]models.Deal, error) {
	var all []models.Deal
	index := make(map[uuid.UUID]int)
	after := uuid.Nil
	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(pageSize))
		q.Set("after", after.String())

		var page struct {
			Data []wireDeal `json:"data"`
		}
		if err := c.do(ctx, http.MethodGet, "/api/deals?"+q.Encode(), nil, &page); err != nil {
			return nil, err
		}

		fresh := 0
		for _, w := range page.Data {
			deal, err := w.toDeal()
			if err != nil {
				c.log.Warn().Err(err).Str("deal_id", w.ID.String()).Msg("Keeping deal with unreadable fields")
			}
			if i, ok := index[deal.ID]; ok {
				all[i] = deal
				continue
			}
			index[deal.ID] = len(all)
			all = append(all, deal)
			fresh++
		}

		if len(page.Data) < pageSize || fresh == 0 {
			break
		}
		after = page.Data[len(page.Data)-1].ID
	}
	if all == nil {
		all = []models.Deal{}
	}
	return all, nil
}

// UpdateDealStage sends only the stage; every other column is left as stored.
// Once the server answers 2xx the move is committed, so a body that cannot be
// read is logged and the deal is rebuilt from what was sent.
func (c *Client) UpdateDealStage(ctx context.Context, id uuid.UUID, stage models.Stage) (*models.Deal, error) {
	body := map[string]string{"stage": string(stage)}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPatch, "/api/deals/"+id.String(), body, &raw); err != nil {
		if errors.Is(err, errMalformedBody) {
			c.log.Warn().Err(err).Str("deal_id", id.String()).Msg("Stage saved but response unreadable")
			return &models.Deal{ID: id, Stage: stage}, nil
		}
		return nil, err
	}

	var w wireDeal
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &w); err != nil {
			c.log.Warn().Err(err).Str("deal_id", id.String()).Msg("Stage saved but response unreadable")
			return &models.Deal{ID: id, Stage: stage}, nil
		}
	}
	if w.ID == uuid.Nil {
		w.ID = id
	}
	deal, err := w.toDeal()
	if err != nil {
		c.log.Warn().Err(err).Str("deal_id", id.String()).Msg("Stage saved with unreadable fields in response")
	}
	deal.Stage = stage
	return &deal, nil
}

func (c *Client) GetDeal(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	var w wireDeal
	if err := c.do(ctx, http.MethodGet, "/api/deals/"+id.String(), nil, &w); err != nil {
		return nil, err
	}
	return w.toDealPtr()
}

func (c *Client) CreateDeal(ctx context.Context, input models.DealInput) (*models.Deal, error) {
	var w wireDeal
	if err := c.do(ctx, http.MethodPost, "/api/deals", input, &w); err != nil {
		return nil, err
	}
	return w.toDealPtr()
}

// UpdateDeal sends a partial update with only the fields set in input.
func (c *Client) UpdateDeal(ctx context.Context, id uuid.UUID, input models.DealInput) (*models.Deal, error) {
	var w wireDeal
	if err := c.do(ctx, http.MethodPatch, "/api/deals/"+id.String(), input, &w); err != nil {
		return nil, err
	}
	return w.toDealPtr()
}

func (c *Client) DeleteDeal(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/deals/"+id.String(), nil, nil)
}

// PipelineSummary returns the server-side aggregation.
func (c *Client) PipelineSummary(ctx context.Context) (pipeline.Snapshot, error) {
	var snap pipeline.Snapshot
	err := c.do(ctx, http.MethodGet, "/api/pipeline/summary", nil, &snap)
	return snap, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	op := method + " " + strings.SplitN(path, "?", 2)[0]

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &models.TransportError{Op: op, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return &models.TransportError{Op: op, Err: err}
	}

	if resp.StatusCode >= 300 {
		return statusError(op, resp.StatusCode, raw)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &models.TransportError{Op: op, Err: fmt.Errorf("%w: %v", errMalformedBody, err)}
	}
	return nil
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field"`
}

// statusError turns a non-2xx response into the matching domain error. A
// gateway failure means the store was never reached; any other refusal,
// including a 500, is a rejection of the write.
func statusError(op string, status int, raw []byte) error {
	var body errorBody
	_ = json.Unmarshal(raw, &body)
	msg := body.Error
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%s: %s: %w", op, msg, models.ErrNotFound)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		msg = strings.TrimPrefix(msg, "validation failed: ")
		if body.Field != "" {
			msg = strings.TrimPrefix(msg, body.Field+": ")
		}
		return &models.ValidationError{Field: body.Field, Message: msg}
	case status == http.StatusBadGateway || status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout:
		return &models.TransportError{Op: op, Err: fmt.Errorf("server returned %d: %s", status, msg)}
	default:
		return &models.RejectedError{Status: status, Message: msg}
	}
}
