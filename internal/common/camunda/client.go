// Package camunda connects KredMitra to a Zeebe gateway. It starts repayment
// process instances, opens the job workers and reports broker health.
package camunda

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"kredmitra/internal/common/errors"
)

type Client struct {
	zeebe  zbc.Client
	config ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	// ConnectionTimeout bounds the topology request behind HealthCheck.
	ConnectionTimeout time.Duration
	// RequestTimeout bounds each attempt of a command.
	RequestTimeout time.Duration
	Retry          RetryPolicy
	DialOpts       []grpc.DialOption
}

// RetryPolicy retries transient gateway failures with doubling delays.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	Attempts:  3,
	BaseDelay: time.Second,
	MaxDelay:  10 * time.Second,
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.BaseDelay << attempt
	if d > p.MaxDelay || d <= 0 {
		return p.MaxDelay
	}
	return d
}

func (c *ClientConfig) applyDefaults() {
	if c.ConnectionTimeout <= 0 {
		c.ConnectionTimeout = 10 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.Retry.Attempts <= 0 {
		c.Retry = DefaultRetryPolicy
	}
}

// Connect dials the gateway and fails unless the broker topology answers.
func Connect(ctx context.Context, cfg ClientConfig) (*Client, error) {
	cfg.applyDefaults()

	zc, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.GatewayAddress,
		UsePlaintextConnection: cfg.UsePlaintextConnection,
		DialOpts:               cfg.DialOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("create zeebe client: %w", err)
	}

	c := &Client{zeebe: zc, config: cfg}
	if err := c.HealthCheck(ctx); err != nil {
		_ = zc.Close()
		return nil, fmt.Errorf("connect to zeebe at %s: %w", cfg.GatewayAddress, err)
	}
	return c, nil
}

// Zeebe exposes the raw client for job workers.
func (c *Client) Zeebe() zbc.Client {
	return c.zeebe
}

func (c *Client) Close() error {
	return c.zeebe.Close()
}

// HealthCheck reports an error unless the gateway returns a topology with at
// least one broker.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	topology, err := c.zeebe.NewTopologyCommand().Send(ctx)
	if err != nil {
		return classify("topology", err)
	}
	if len(topology.GetBrokers()) == 0 {
		return errors.NewExternalServiceError("zeebe", stderrors.New("topology has no brokers"))
	}
	return nil
}

// StartProcess creates an instance of the latest deployed version of
// processID and returns its instance key.
func (c *Client) StartProcess(ctx context.Context, processID string, variables interface{}) (int64, error) {
	cmd, err := c.zeebe.NewCreateInstanceCommand().
		BPMNProcessId(processID).
		LatestVersion().
		VariablesFromObject(variables)
	if err != nil {
		return 0, errors.NewValidationError(fmt.Sprintf("process variables: %v", err))
	}

	var key int64
	err = c.retry(ctx, "start "+processID, func(ctx context.Context) error {
		resp, err := cmd.Send(ctx)
		if err != nil {
			return err
		}
		key = resp.GetProcessInstanceKey()
		return nil
	})
	return key, err
}

// retry runs fn until it succeeds, fails permanently or runs out of
// attempts. Each attempt gets its own RequestTimeout.
func (c *Client) retry(ctx context.Context, op string, fn func(context.Context) error) error {
	policy := c.config.Retry
	for attempt := 0; ; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		if !transient(err) || attempt+1 >= policy.Attempts {
			return classify(op, err)
		}

		select {
		case <-time.After(policy.delay(attempt)):
		case <-ctx.Done():
			return errors.NewTimeoutError("zeebe", fmt.Errorf("%s cancelled after %d attempts: %w", op, attempt+1, ctx.Err()))
		}
	}
}

func transient(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	}
	return false
}

// classify maps a gateway error onto the KredMitra error codes.
func classify(op string, err error) error {
	wrapped := fmt.Errorf("%s: %w", op, err)
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewTimeoutError("zeebe", wrapped)
	}

	switch status.Code(err) {
	case codes.DeadlineExceeded:
		return errors.NewTimeoutError("zeebe", wrapped)
	case codes.NotFound:
		return errors.NewResourceNotFoundError("zeebe", wrapped.Error())
	case codes.AlreadyExists:
		return errors.NewBusinessRuleError(wrapped.Error(), "process instance already exists")
	case codes.InvalidArgument, codes.FailedPrecondition:
		return errors.NewValidationError(wrapped.Error())
	case codes.PermissionDenied, codes.Unauthenticated:
		return errors.NewForbiddenError(wrapped.Error())
	default:
		return errors.NewExternalServiceError("zeebe", wrapped)
	}
}
