// Package stockapi is the typed data access layer for the StockScope API. Every
// call goes through a session dispatcher, so protected routes pick up the
// credential and the refresh protocol without the callers knowing.
package stockapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jrsteele09/stockscope-client/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const maxBody = 4 << 20

// Dispatcher sends API requests. *session.Manager implements it.
type Dispatcher interface {
	NewRequest(ctx context.Context, method, path string, body any) (*http.Request, error)
	Dispatch(req *http.Request) (*http.Response, error)
}

var _ Dispatcher = (*session.Manager)(nil)

type Client struct {
	dispatcher Dispatcher
	logger     zerolog.Logger
}

type Option func(*Client)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

func NewClient(d Dispatcher, options ...Option) (*Client, error) {
	if d == nil {
		return nil, errors.New("[NewClient] dispatcher is required")
	}
	c := &Client{dispatcher: d, logger: log.Logger}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// do sends one request and decodes a 2xx body into out (when out is non-nil).
// Session and transport errors from the dispatcher are returned unchanged.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	req, err := c.dispatcher.NewRequest(ctx, method, path, body)
	if err != nil {
		return fmt.Errorf("[%s] %w", op, err)
	}
	resp, err := c.dispatcher.Dispatch(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		_ = resp.Body.Close()
	}()

	if session.IsTransientStatus(resp.StatusCode) {
		return &session.TransientError{Op: op, Status: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&apiErr)
		msg := apiErr.Error
		if msg == "" {
			msg = apiErr.Message
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		c.logger.Debug().Str("op", op).Int("status", resp.StatusCode).Str("error", msg).Msg("API request rejected")
		return &APIError{Op: op, Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(out); err != nil {
		return &session.TransientError{Op: op, Status: resp.StatusCode, Cause: fmt.Errorf("invalid response body: %w", err)}
	}
	return nil
}

func symbolPath(format, symbol string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", &session.ValidationError{Field: "symbol", Message: "Stock symbol required"}
	}
	return fmt.Sprintf(format, url.PathEscape(symbol)), nil
}

func setInt(q url.Values, key string, v int) {
	if v > 0 {
		q.Set(key, strconv.Itoa(v))
	}
}

func setString(q url.Values, key, v string) {
	if v != "" {
		q.Set(key, v)
	}
}
