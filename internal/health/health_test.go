package health

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"voicereader/agent/internal/catalog"
	"voicereader/agent/internal/session"
)

type stubSnapshotter struct{ err error }

func (s stubSnapshotter) Snapshot(context.Context) (session.Snapshot, error) {
	return session.Snapshot{}, s.err
}

func TestCheckAll(t *testing.T) {
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	ctx := context.Background()

	st := CheckAll(ctx, Catalog(cat), Session(stubSnapshotter{}, time.Second))
	if !st.OK || len(st.Checks) != 2 {
		t.Fatalf("expected healthy: %s", st)
	}

	st = CheckAll(ctx, Catalog(cat), Session(stubSnapshotter{err: errors.New("closed")}, time.Second))
	if st.OK {
		t.Fatalf("failing session check should fail overall")
	}
	if !strings.Contains(st.String(), "✗ session") {
		t.Fatalf("report should mark the failing check:\n%s", st)
	}
}

func TestGRPCStatusFollowsChecks(t *testing.T) {
	_, hs := NewGRPCServer()
	ctx := context.Background()
	req := &healthpb.HealthCheckRequest{Service: ServiceName}

	resp, err := hs.Check(ctx, req)
	if err != nil || resp.Status != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("initial status %v err=%v", resp, err)
	}

	Publish(hs, HealthStatus{OK: true})
	resp, err = hs.Check(ctx, req)
	if err != nil || resp.Status != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("after healthy publish %v err=%v", resp, err)
	}

	Publish(hs, HealthStatus{OK: false})
	resp, _ = hs.Check(ctx, req)
	if resp.Status != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("after failing publish %v", resp.Status)
	}
}
