package camunda

import (
	"context"
	stderrors "errors"
	"net"
	"sync"
	"testing"
	"time"

	"kredmitra/internal/common/errors"
	"kredmitra/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

// ==========================
// Test Helper Functions
// ==========================

type stubValidator struct {
	result *validation.ValidationResult
	err    error
	seen   map[string]interface{}
}

func (s *stubValidator) ValidateInput(_ string, vars map[string]interface{}) (*validation.ValidationResult, error) {
	s.seen = vars
	return s.result, s.err
}

func testJob(variables string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 42, Type: "score-applicant", Variables: variables}}
}

func TestValidateJob(t *testing.T) {
	tests := []struct {
		name      string
		variables string
		validator *stubValidator
		validate  func(t *testing.T, err error)
	}{
		{
			name:      "valid variables",
			variables: `{"mobile":"9876543210"}`,
			validator: &stubValidator{result: &validation.ValidationResult{Valid: true}},
			validate: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name:      "schema violation",
			variables: `{}`,
			validator: &stubValidator{result: &validation.ValidationResult{
				Valid:  false,
				Errors: []validation.ValidationError{{Field: "mobile", Code: "REQUIRED"}},
			}},
			validate: func(t *testing.T, err error) {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeValidationFailed, errors.CodeOf(err))
			},
		},
		{
			name:      "not a JSON object",
			variables: `[1,2]`,
			validator: &stubValidator{},
			validate: func(t *testing.T, err error) {
				assert.Equal(t, errors.ErrCodeValidationFailed, errors.CodeOf(err))
			},
		},
		{
			name:      "unknown task type",
			variables: `{}`,
			validator: &stubValidator{err: stderrors.New("activity not registered")},
			validate: func(t *testing.T, err error) {
				assert.Equal(t, errors.ErrCodeValidationFailed, errors.CodeOf(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, validateJob(tt.validator, "score-applicant", testJob(tt.variables)))
		})
	}
}

// ==========================
// Gateway Tests
// ==========================

// fakeGateway answers topology and create-instance calls in process.
type fakeGateway struct {
	pb.UnimplementedGatewayServer

	mu       sync.Mutex
	brokers  int
	failures []error
	calls    int
	lastID   string
}

func (g *fakeGateway) Topology(context.Context, *pb.TopologyRequest) (*pb.TopologyResponse, error) {
	resp := &pb.TopologyResponse{}
	for i := 0; i < g.brokers; i++ {
		resp.Brokers = append(resp.Brokers, &pb.BrokerInfo{NodeId: int32(i)})
	}
	return resp, nil
}

func (g *fakeGateway) CreateProcessInstance(_ context.Context, req *pb.CreateProcessInstanceRequest) (*pb.CreateProcessInstanceResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls++
	g.lastID = req.GetBpmnProcessId()
	if len(g.failures) > 0 {
		err := g.failures[0]
		g.failures = g.failures[1:]
		return nil, err
	}
	return &pb.CreateProcessInstanceResponse{ProcessInstanceKey: 2251799813685249, BpmnProcessId: req.GetBpmnProcessId()}, nil
}

func startGateway(t *testing.T, gw *fakeGateway) ClientConfig {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	pb.RegisterGatewayServer(srv, gw)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	return ClientConfig{
		GatewayAddress:         "bufnet",
		UsePlaintextConnection: true,
		ConnectionTimeout:      2 * time.Second,
		RequestTimeout:         2 * time.Second,
		Retry:                  RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
		DialOpts: []grpc.DialOption{grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		})},
	}
}

func TestConnect(t *testing.T) {
	tests := []struct {
		name     string
		brokers  int
		validate func(t *testing.T, c *Client, err error)
	}{
		{
			name:    "healthy cluster",
			brokers: 1,
			validate: func(t *testing.T, c *Client, err error) {
				require.NoError(t, err)
				require.NotNil(t, c.Zeebe())
				assert.NoError(t, c.HealthCheck(context.Background()))
				assert.NoError(t, c.Close())
			},
		},
		{
			name:    "no brokers",
			brokers: 0,
			validate: func(t *testing.T, c *Client, err error) {
				require.Error(t, err)
				assert.Nil(t, c)
				assert.Equal(t, errors.ErrCodeExternalService, errors.CodeOf(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := startGateway(t, &fakeGateway{brokers: tt.brokers})
			c, err := Connect(context.Background(), cfg)
			tt.validate(t, c, err)
		})
	}
}

func TestClient_StartProcess(t *testing.T) {
	tests := []struct {
		name     string
		failures []error
		validate func(t *testing.T, gw *fakeGateway, key int64, err error)
	}{
		{
			name: "instance created",
			validate: func(t *testing.T, gw *fakeGateway, key int64, err error) {
				require.NoError(t, err)
				assert.Equal(t, int64(2251799813685249), key)
				assert.Equal(t, "loan-repayment", gw.lastID)
				assert.Equal(t, 1, gw.calls)
			},
		},
		{
			name: "transient failures retried",
			failures: []error{
				status.Error(codes.Unavailable, "leader election"),
				status.Error(codes.ResourceExhausted, "backpressure"),
			},
			validate: func(t *testing.T, gw *fakeGateway, key int64, err error) {
				require.NoError(t, err)
				assert.NotZero(t, key)
				assert.Equal(t, 3, gw.calls)
			},
		},
		{
			name: "attempts exhausted",
			failures: []error{
				status.Error(codes.Unavailable, "down"),
				status.Error(codes.Unavailable, "down"),
				status.Error(codes.Unavailable, "down"),
			},
			validate: func(t *testing.T, gw *fakeGateway, _ int64, err error) {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeExternalService, errors.CodeOf(err))
				assert.Equal(t, 3, gw.calls)
			},
		},
		{
			name:     "process not deployed",
			failures: []error{status.Error(codes.NotFound, "no process with id loan-repayment")},
			validate: func(t *testing.T, gw *fakeGateway, _ int64, err error) {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeResourceNotFound, errors.CodeOf(err))
				assert.Equal(t, 1, gw.calls)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{brokers: 1, failures: tt.failures}
			c, err := Connect(context.Background(), startGateway(t, gw))
			require.NoError(t, err)
			defer c.Close()

			key, err := c.StartProcess(context.Background(), "loan-repayment", map[string]interface{}{"mobile": "9876543210"})
			tt.validate(t, gw, key, err)
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want errors.ErrorCode
	}{
		{context.DeadlineExceeded, errors.ErrCodeTimeout},
		{status.Error(codes.DeadlineExceeded, "slow"), errors.ErrCodeTimeout},
		{status.Error(codes.NotFound, "missing"), errors.ErrCodeResourceNotFound},
		{status.Error(codes.AlreadyExists, "dup"), errors.ErrCodeBusinessRuleViolated},
		{status.Error(codes.InvalidArgument, "bad"), errors.ErrCodeValidationFailed},
		{status.Error(codes.PermissionDenied, "no"), errors.ErrCodeForbidden},
		{stderrors.New("connection refused"), errors.ErrCodeExternalService},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, errors.CodeOf(classify("op", tt.err)))
		})
	}
	assert.True(t, transient(status.Error(codes.Aborted, "retry")))
	assert.False(t, transient(status.Error(codes.InvalidArgument, "bad")))
}
