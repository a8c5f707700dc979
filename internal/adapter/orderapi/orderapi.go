// Package orderapi is the client of the remote order creation endpoint.
package orderapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.OrderCreator = Client{}

var ErrRejected = errors.New("order rejected")

const defaultTimeout = 10 * time.Second

// maxBodySize bounds the response body read on success.
const maxBodySize = 1 << 20

type Client struct {
	url  string
	http *http.Client
}

type Opt func(*Client)

func WithHTTPClient(c *http.Client) Opt {
	return func(cl *Client) {
		cl.http = c
	}
}

func New(url string, opts ...Opt) Client {
	c := Client{
		url:  url,
		http: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// CreateOrder posts the order. Any non-2xx status fails with
// [ErrRejected]. Fields present in the response body override the request
// order; an unreadable body is ignored.
func (c Client) CreateOrder(
	ctx context.Context, o domain.Order,
) (domain.Order, error) {
	const op = "orderapi.Client.CreateOrder"
	log := slog.With("op", op)

	body, err := json.Marshal(o)
	if err != nil {
		return domain.Order{}, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.url, bytes.NewReader(body),
	)
	if err != nil {
		return domain.Order{}, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return domain.Order{}, fmt.Errorf("%s: %w", op, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxBodySize))
		return domain.Order{}, fmt.Errorf(
			"%s: %w: status %d", op, ErrRejected, res.StatusCode,
		)
	}

	created := o
	err = json.NewDecoder(io.LimitReader(res.Body, maxBodySize)).Decode(&created)
	if err != nil && !errors.Is(err, io.EOF) {
		log.Warn("failed to decode response body", "err", err)
		return o, nil
	}
	return created, nil
}
