// Package pricingapi talks to the remote pricing service. Every call carries
// the session id in the "session" header; failures surface as *APIError so
// callers can tell a remote rejection from a transport problem.
package pricingapi

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/calcula-ai/price-bot/internal/config"
	"github.com/calcula-ai/price-bot/internal/models"
	"github.com/calcula-ai/price-bot/pkg/util"
	"github.com/go-resty/resty/v2"
)

const sessionHeader = "session"

type Client interface {
	CreateSession(ctx context.Context) (string, error)
	GetSession(ctx context.Context, sessionID string) (*models.SessionSnapshot, error)
	AddPrice(ctx context.Context, sessionID, name string, value float64, quantity int) error
	DeletePrice(ctx context.Context, sessionID, priceID string) error
	UploadPricesImage(ctx context.Context, in UploadImageInput) error
}

type UploadImageInput struct {
	SessionID   string
	File        []byte
	ContentType string
	Filename    string
	Caption     string
}

// APIError is a non-2xx answer from the pricing API.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: pricing api returned %d: %s", e.Op, e.StatusCode, e.Body)
}

type client struct {
	rc      *resty.Client
	baseURL string
}

func NewClient(conf *config.Config) Client {
	cfg := conf.PricingAPI
	retries := cfg.UploadRetryMax - 1
	if retries < 0 {
		retries = 0
	}
	rc := util.NewRestyClient(cfg.Timeout, retries).
		SetRetryWaitTime(cfg.RetryWaitMin).
		SetRetryMaxWaitTime(cfg.RetryWaitMax)

	return &client{
		rc:      rc,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

func (c *client) url(path string) string {
	return c.baseURL + path
}

type createSessionResponse struct {
	ID string `json:"id"`
}

func (c *client) CreateSession(ctx context.Context) (string, error) {
	var out createSessionResponse
	resp, err := c.rc.R().
		SetContext(ctx).
		SetResult(&out).
		Post(c.url("/v1/sessions"))
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	if resp.IsError() {
		return "", &APIError{Op: "create session", StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	if out.ID == "" {
		return "", fmt.Errorf("create session: missing id in response body")
	}
	return out.ID, nil
}

func (c *client) GetSession(ctx context.Context, sessionID string) (*models.SessionSnapshot, error) {
	var out models.SessionSnapshot
	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader(sessionHeader, sessionID).
		SetResult(&out).
		Get(c.url("/v1/sessions"))
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Op: "get session", StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return &out, nil
}

type addPriceRequest struct {
	Name     string  `json:"name"`
	Value    float64 `json:"value"`
	Quantity int     `json:"quantity"`
}

func (c *client) AddPrice(ctx context.Context, sessionID, name string, value float64, quantity int) error {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader(sessionHeader, sessionID).
		SetBody(addPriceRequest{Name: name, Value: value, Quantity: quantity}).
		Post(c.url("/v1/sessions/prices/manual"))
	if err != nil {
		return fmt.Errorf("add price: %w", err)
	}
	if resp.IsError() {
		return &APIError{Op: "add price", StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}

func (c *client) DeletePrice(ctx context.Context, sessionID, priceID string) error {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader(sessionHeader, sessionID).
		Delete(c.url("/v1/sessions/prices/" + priceID))
	if err != nil {
		return fmt.Errorf("delete price: %w", err)
	}
	if resp.IsError() {
		return &APIError{Op: "delete price", StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}

func (c *client) UploadPricesImage(ctx context.Context, in UploadImageInput) error {
	req := c.rc.R().
		SetContext(ctx).
		SetHeader(sessionHeader, in.SessionID).
		SetMultipartField("file", in.Filename, in.ContentType, bytes.NewReader(in.File))
	if in.Caption != "" {
		req.SetMultipartFormData(map[string]string{"caption": in.Caption})
	}

	resp, err := req.Post(c.url("/v1/sessions/prices"))
	if err != nil {
		return fmt.Errorf("upload prices image after %d attempts: %w", req.Attempt, err)
	}
	if resp.IsError() {
		apiErr := &APIError{Op: "upload prices image", StatusCode: resp.StatusCode(), Body: resp.String()}
		return fmt.Errorf("after %d attempts: %w", resp.Request.Attempt, apiErr)
	}
	return nil
}
