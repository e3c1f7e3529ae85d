package influxdb

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/AtulPatel1221/budgetwise-app/internal/infrastructure/config"
)

var (
	// ErrDisabled is returned by Connect when the influxdb section is off.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	ErrConnectionFailed = errors.New("influxdb: connection failed")
	ErrNotConnected     = errors.New("influxdb: not connected")
)

const (
	pingTimeout = 5 * time.Second

	fallbackBatchSize     = 100
	fallbackFlushInterval = 10 * time.Second
)

// pointWriter is the part of api.WriteAPI the client calls.
type pointWriter interface {
	WritePoint(point *write.Point)
	Flush()
}

// Client records BudgetWise metrics through the non-blocking write API.
// Points are buffered and sent in batches; safe for concurrent use.
type Client struct {
	server  influxdb2.Client
	writer  pointWriter
	now     func() time.Time
	closed  atomic.Bool
	onError atomic.Pointer[func(error)]
}

// Connect pings the server before returning a client writing to cfg.Org
// and cfg.Bucket.
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	server := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, options(cfg))

	ctx, cancel := context.WithTimeout(context.Background(), 2*pingTimeout)
	defer cancel()
	if ok, err := server.Ping(ctx); err != nil || !ok {
		server.Close()
		if err == nil {
			err = errors.New("server reports unhealthy")
		}
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	writeAPI := server.WriteAPI(cfg.Org, cfg.Bucket)
	c := newClient(writeAPI)
	c.server = server
	go c.forwardErrors(writeAPI.Errors())
	return c, nil
}

// options applies batch_size and flush_interval, falling back to defaults
// for non-positive values.
func options(cfg config.InfluxDBConfig) *influxdb2.Options {
	batch := uint(fallbackBatchSize)
	if cfg.BatchSize > 0 {
		batch = uint(cfg.BatchSize)
	}
	flush := fallbackFlushInterval
	if cfg.FlushInterval > 0 {
		flush = time.Duration(cfg.FlushInterval) * time.Second
	}
	return influxdb2.DefaultOptions().
		SetBatchSize(batch).
		SetFlushInterval(uint(flush.Milliseconds())) //nolint:gosec // positive by construction
}

func newClient(w pointWriter) *Client {
	return &Client{writer: w, now: time.Now}
}

// forwardErrors hands asynchronous batch failures to the SetOnError
// callback until the write API closes errs.
func (c *Client) forwardErrors(errs <-chan error) {
	for err := range errs {
		if fn := c.onError.Load(); fn != nil {
			(*fn)(err)
		}
	}
}

// SetOnError installs the callback for failed batch writes.
func (c *Client) SetOnError(fn func(err error)) {
	c.onError.Store(&fn)
}

// Close flushes buffered points and releases the HTTP client. Later writes
// are dropped.
func (c *Client) Close() error {
	if c.writer == nil || c.closed.Swap(true) {
		return nil
	}
	c.writer.Flush()
	if c.server != nil {
		c.server.Close()
	}
	return nil
}

// Flush sends buffered points now. No-op after Close.
func (c *Client) Flush() {
	if c.IsConnected() {
		c.writer.Flush()
	}
}

// IsConnected is true from Connect until Close.
func (c *Client) IsConnected() bool {
	return c.writer != nil && !c.closed.Load()
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() || c.server == nil {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	ok, err := c.server.Ping(ctx)
	switch {
	case err != nil:
		return fmt.Errorf("influxdb health check failed: %w", err)
	case !ok:
		return errors.New("influxdb health check failed: server not healthy")
	}
	return nil
}
