// Package client talks to a running body controller over its HTTP API.
//
// Consumers should depend on the small interfaces (Commander, Stopper,
// StatusReader) rather than on *Client.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/teslashibe/go-sapien/internal/httpc"
	"github.com/teslashibe/go-sapien/pkg/body"
	"github.com/teslashibe/go-sapien/pkg/protocol"
	"github.com/teslashibe/go-sapien/pkg/web"
)

// DefaultTimeout bounds every request. Submissions can wait for queue space
// on the robot, so it is longer than a plain status call needs.
const DefaultTimeout = 8 * time.Second

// Commander queues motion commands.
type Commander interface {
	Exec(ctx context.Context, action body.ActionKind, direction bool, value int) (web.Accepted, error)
}

// Stopper triggers the stop fast path.
type Stopper interface {
	Stop(ctx context.Context) error
}

// StatusReader reads the robot status.
type StatusReader interface {
	Status(ctx context.Context) (web.StatusResponse, error)
}

// Controller combines every remote capability.
type Controller interface {
	Commander
	Stopper
	StatusReader
}

var _ Controller = (*Client)(nil)

// Client is an HTTP client for one robot.
type Client struct {
	BaseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New returns a client for baseURL, e.g. "http://192.168.1.40:8080".
// A bare host[:port] is accepted too.
func New(baseURL string, opts ...Option) *Client {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		http:    httpc.NewClient(DefaultTimeout),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Exec queues a command and returns its assigned ID.
func (c *Client) Exec(ctx context.Context, action body.ActionKind, direction bool, value int) (web.Accepted, error) {
	req := struct {
		Action    int  `json:"action"`
		Direction bool `json:"direction"`
		Value     int  `json:"value"`
	}{int(action), direction, value}

	var acc web.Accepted
	if err := httpc.DoJSON(ctx, c.http, http.MethodPost, c.BaseURL+"/api/actions", req, &acc); err != nil {
		return acc, fmt.Errorf("client: exec %s: %w", action, err)
	}
	return acc, nil
}

// BodyAction calls the legacy GET endpoint the master process uses.
func (c *Client) BodyAction(ctx context.Context, action body.ActionKind, direction bool, steps int) (web.Accepted, error) {
	q := url.Values{}
	q.Set("action", strconv.Itoa(int(action)))
	q.Set("direction", "0")
	if direction {
		q.Set("direction", "1")
	}
	q.Set("steps", strconv.Itoa(steps))

	var acc web.Accepted
	if err := httpc.DoJSON(ctx, c.http, http.MethodGet, c.BaseURL+"/bodyaction?"+q.Encode(), nil, &acc); err != nil {
		return acc, fmt.Errorf("client: bodyaction %s: %w", action, err)
	}
	return acc, nil
}

// Stop discards queued commands and cancels the running one.
func (c *Client) Stop(ctx context.Context) error {
	if err := httpc.DoJSON(ctx, c.http, http.MethodPost, c.BaseURL+"/api/stop", nil, nil); err != nil {
		return fmt.Errorf("client: stop: %w", err)
	}
	return nil
}

// Status returns the dispatcher, output and sensor snapshot.
func (c *Client) Status(ctx context.Context) (web.StatusResponse, error) {
	var st web.StatusResponse
	if err := httpc.DoJSON(ctx, c.http, http.MethodGet, c.BaseURL+"/api/status", nil, &st); err != nil {
		return st, fmt.Errorf("client: status: %w", err)
	}
	return st, nil
}

// Actions lists the robot's action table.
func (c *Client) Actions(ctx context.Context) ([]web.ActionInfo, error) {
	var out []web.ActionInfo
	if err := httpc.DoJSON(ctx, c.http, http.MethodGet, c.BaseURL+"/api/actions", nil, &out); err != nil {
		return nil, fmt.Errorf("client: actions: %w", err)
	}
	return out, nil
}

// PushSensors updates the robot's sensor feed. Nil values are left alone.
func (c *Client) PushSensors(ctx context.Context, yaw, distanceMM *float64) error {
	in := protocol.SensorData{Yaw: yaw, DistanceMM: distanceMM}
	if err := httpc.DoJSON(ctx, c.http, http.MethodPost, c.BaseURL+"/api/sensors", in, nil); err != nil {
		return fmt.Errorf("client: sensors: %w", err)
	}
	return nil
}
