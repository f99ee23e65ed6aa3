package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rmathena79/breaker-bot/internal/aggregate"
	"github.com/rmathena79/breaker-bot/internal/predictor"
)

// Client calls a remote Predictor service.
type Client struct {
	conn    grpc.ClientConnInterface
	closer  func() error
	timeout time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	timeout  time.Duration
	dialOpts []grpc.DialOption
}

// WithTimeout bounds every Predict call. Zero leaves the caller's deadline in
// charge.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) { c.timeout = d }
}

// WithDialOptions appends gRPC dial options.
func WithDialOptions(opts ...grpc.DialOption) ClientOption {
	return func(c *clientConfig) { c.dialOpts = append(c.dialOpts, opts...) }
}

// Dial connects to a predictor at addr. The connection is plaintext; put the
// predictor behind a local socket or a TLS-terminating proxy.
func Dial(addr string, opts ...ClientOption) (*Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("predictor address is required")
	}
	cfg := clientConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	dialOpts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, cfg.dialOpts...)
	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("connect to predictor %s: %w", addr, err)
	}
	return &Client{conn: conn, closer: conn.Close, timeout: cfg.timeout}, nil
}

// NewClient wraps an existing connection. Close does not close conn.
func NewClient(conn grpc.ClientConnInterface, opts ...ClientOption) *Client {
	cfg := clientConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Client{conn: conn, timeout: cfg.timeout}
}

// Predict implements predictor.Predictor.
func (c *Client) Predict(ctx context.Context, req predictor.Request) (aggregate.Batch, error) {
	if err := predictor.ValidateRequest(req); err != nil {
		return aggregate.Batch{}, err
	}
	in, err := encodeRequest(req)
	if err != nil {
		return aggregate.Batch{}, fmt.Errorf("%w: %v", predictor.ErrBadRequest, err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, predictMethod, in, out); err != nil {
		return aggregate.Batch{}, fromStatus(err)
	}

	batch, err := decodeBatch(out)
	if err != nil {
		return aggregate.Batch{}, fmt.Errorf("%w: %v", aggregate.ErrMalformedPrediction, err)
	}
	if err := predictor.CheckBatch(req, batch); err != nil {
		return aggregate.Batch{}, err
	}
	return batch, nil
}

// Close releases the connection opened by Dial.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", predictor.ErrBadRequest, st.Message())
	case codes.Unavailable:
		return fmt.Errorf("%w: %s", predictor.ErrUnavailable, st.Message())
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %w", predictor.ErrUnavailable, context.DeadlineExceeded)
	case codes.Canceled:
		return context.Canceled
	default:
		return fmt.Errorf("predictor error: %s", st.Message())
	}
}

var _ predictor.Predictor = (*Client)(nil)
