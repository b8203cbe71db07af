package backoffice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"sync/atomic"
	"time"

	"github.com/noah-isme/stationery-pos/internal/common"
	"github.com/noah-isme/stationery-pos/internal/resilience"
)

// Doer sends a prepared request. resilience.HTTPClient satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Config configures a Client.
type Config struct {
	BaseURL   string
	HTTP      Doer
	Observers []Observer
}

// Client talks to the back-office REST backend. A Client is safe for
// concurrent use; WithToken returns a copy bound to one caller's credential.
type Client struct {
	base      *url.URL
	http      Doer
	observers []Observer
	token     string
	seq       *atomic.Uint64
}

// New validates cfg and returns a Client without a credential.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backoffice: invalid base url %q", cfg.BaseURL)
	}
	doer := cfg.HTTP
	if doer == nil {
		doer = resilience.HTTPClient{Client: http.DefaultClient, MaxAttempts: 1}
	}
	return &Client{base: base, http: doer, observers: cfg.Observers, seq: new(atomic.Uint64)}, nil
}

// WithToken returns a client that authenticates every call with token.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

// FromContext binds the client to the access token stored on ctx.
func (c *Client) FromContext(ctx context.Context) *Client {
	token, _ := common.AccessToken(ctx)
	return c.WithToken(token)
}

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

type call struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
	// raw skips the {success,data} envelope and decodes the whole body into out.
	raw bool
}

func (c *Client) do(ctx context.Context, rc call, out any) (err error) {
	info := RequestInfo{
		ID:        c.seq.Add(1),
		Operation: rc.op,
		Method:    rc.method,
		Path:      rc.path,
		StartedAt: time.Now(),
	}
	for _, o := range c.observers {
		o.RequestStarted(ctx, info)
	}
	defer func() {
		info.Duration = time.Since(info.StartedAt)
		info.Err = err
		info.StatusCode = StatusCode(err)
		if err == nil {
			info.StatusCode = http.StatusOK
		}
		for _, o := range c.observers {
			o.RequestFinished(ctx, info)
		}
	}()

	req, err := c.newRequest(ctx, rc)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("backoffice %s: %w: %w", rc.op, ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("backoffice %s: %w: %w", rc.op, ErrUnavailable, err)
	}
	return decodeResponse(rc, resp.StatusCode, payload, out)
}

func (c *Client) newRequest(ctx context.Context, rc call) (*http.Request, error) {
	target := *c.base
	target.Path = c.base.Path + rc.path
	if len(rc.query) > 0 {
		target.RawQuery = rc.query.Encode()
	}
	var body io.Reader
	if rc.body != nil {
		data, err := json.Marshal(rc.body)
		if err != nil {
			return nil, fmt.Errorf("backoffice %s: encode body: %w", rc.op, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, rc.method, target.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if rc.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func decodeResponse(rc call, status int, payload []byte, out any) error {
	var env envelope
	if len(bytes.TrimSpace(payload)) > 0 {
		if err := json.Unmarshal(payload, &env); err != nil {
			if status >= 400 {
				return &Error{Operation: rc.op, StatusCode: status, Message: http.StatusText(status)}
			}
			return fmt.Errorf("backoffice %s: %w: %v", rc.op, ErrInvalidResponse, err)
		}
	}
	message := env.Message
	if message == "" {
		message = env.Error
	}
	if status >= 400 {
		return &Error{Operation: rc.op, StatusCode: status, Message: message}
	}
	if env.Success != nil && !*env.Success {
		return &Error{Operation: rc.op, StatusCode: http.StatusUnprocessableEntity, Message: message}
	}
	if out == nil {
		return nil
	}
	data := []byte(env.Data)
	if rc.raw {
		data = payload
	}
	if len(data) == 0 || string(data) == "null" {
		return fmt.Errorf("backoffice %s: %w: missing data", rc.op, ErrInvalidResponse)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("backoffice %s: %w: %v", rc.op, ErrInvalidResponse, err)
	}
	if err := validatePayload(out); err != nil {
		return fmt.Errorf("backoffice %s: %w: %v", rc.op, ErrInvalidResponse, err)
	}
	return nil
}

// validatePayload applies the struct tags of every decoded document so a
// malformed record fails loudly instead of reaching the cart.
func validatePayload(v any) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		return common.Validator().Struct(rv.Interface())
	case reflect.Slice:
		for i := 0; i < rv.Len(); i++ {
			elem := rv.Index(i)
			if elem.Kind() != reflect.Struct {
				return nil
			}
			if err := common.Validator().Struct(elem.Interface()); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
	}
	return nil
}

func isMissingRoute(err error) bool {
	var be *Error
	if !errors.As(err, &be) {
		return false
	}
	return be.StatusCode == http.StatusNotFound || be.StatusCode == http.StatusMethodNotAllowed
}
