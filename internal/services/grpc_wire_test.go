package services

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-gate/internal/api"
	"github.com/miradorstack/mirador-gate/internal/cache"
	"github.com/miradorstack/mirador-gate/internal/config"
	"github.com/miradorstack/mirador-gate/internal/engine"
	"github.com/miradorstack/mirador-gate/internal/grpc/gatev1"
	"github.com/miradorstack/mirador-gate/internal/patterns"
)

// methodLog records the full method names seen by a unary interceptor.
type methodLog struct {
	mu      sync.Mutex
	methods []string
}

func (l *methodLog) intercept(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	l.mu.Lock()
	l.methods = append(l.methods, info.FullMethod)
	l.mu.Unlock()
	return handler(ctx, req)
}

func (l *methodLog) seen() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.methods...)
}

func newWireClient(t *testing.T, calls *methodLog) gatev1.GateEngineClient {
	t.Helper()

	gate := engine.NewGate(nil, clearPolicy, nil, nil, cache.NewMemoryProvider(), time.Minute)
	service := NewGateService(nil, gate, clearPolicy, nil, patterns.NewMiner(nil, nil), 3)

	lis := bufconn.Listen(1 << 20)
	server := api.NewServerWithListener(config.ServerConfig{GracefulTimeout: time.Second}, lis, NewGateServer(service, nil),
		grpc.ChainUnaryInterceptor(calls.intercept))
	go func() { _ = server.Start() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		server.Shutdown(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufconn: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return gatev1.NewGateEngineClient(conn)
}

func TestGateEngineOverTheWire(t *testing.T) {
	calls := &methodLog{}
	client := newWireClient(t, calls)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := structpb.NewStruct(map[string]any{
		"tenant_id":   "tenant",
		"pipeline_id": "forecast",
		"report":      map[string]any{"alerts": []any{}},
		"units": []any{
			map[string]any{"name": "arima"},
			map[string]any{"name": "prophet", "status": nil},
		},
	})
	if err != nil {
		t.Fatalf("build request: %v", err)
	}

	resp, err := client.Decide(ctx, req)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	decision := resp.AsMap()
	if decision["action"] != "auto_deploy" || decision["allowed"] != true {
		t.Fatalf("unexpected decision %v", decision)
	}
	units := decision["chain"].(map[string]any)["units"].([]any)
	if len(units) != 2 || units[0].(map[string]any)["allowed"] != true || units[1].(map[string]any)["allowed"] != false {
		t.Fatalf("unexpected unit outcomes %v", units)
	}

	ref, _ := structpb.NewStruct(map[string]any{"tenant_id": "tenant", "pipeline_id": "forecast"})
	last, err := client.GetLastDecision(ctx, ref)
	if err != nil {
		t.Fatalf("GetLastDecision: %v", err)
	}
	if last.AsMap()["id"] != decision["id"] {
		t.Fatalf("expected last decision %v, got %v", decision["id"], last.AsMap()["id"])
	}

	got := calls.seen()
	want := []string{gatev1.GateEngine_Decide_FullMethodName, gatev1.GateEngine_GetLastDecision_FullMethodName}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("interceptor saw %v, want %v", got, want)
	}
}

func TestGateEngineOverTheWireStatusCodes(t *testing.T) {
	client := newWireClient(t, &methodLog{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	unknown, _ := structpb.NewStruct(map[string]any{"tenant_id": "tenant", "pipeline_id": "never-decided"})
	if _, err := client.GetLastDecision(ctx, unknown); status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}

	if _, err := client.Decide(ctx, &structpb.Struct{}); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}

	if _, err := client.ListDecisions(ctx, &structpb.Struct{}); status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition without history, got %v", err)
	}

	actions, err := client.ListActions(ctx, &structpb.Struct{})
	if err != nil {
		t.Fatalf("ListActions: %v", err)
	}
	if list, ok := actions.AsMap()["actions"].([]any); !ok || len(list) == 0 {
		t.Fatalf("expected the action table, got %v", actions.AsMap())
	}
}
