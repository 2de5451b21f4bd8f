package grpcapi

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

func startHealth(t *testing.T) (*Server, healthpb.HealthClient) {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := NewServer(10, slog.New(slog.NewTextHandler(io.Discard, nil)))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return srv, healthpb.NewHealthClient(conn)
}

func check(t *testing.T, c healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("check %q: %v", service, err)
	}
	return resp.GetStatus()
}

func TestHealth_DefaultsServing(t *testing.T) {
	_, c := startHealth(t)
	for _, svc := range []string{"", ServiceDoor, ServicePower} {
		if got := check(t, c, svc); got != healthpb.HealthCheckResponse_SERVING {
			t.Errorf("%q: got %v", svc, got)
		}
	}
}

func TestHealth_DoorStoppedNotServing(t *testing.T) {
	srv, c := startHealth(t)

	srv.DoorChanged(types.DoorStopped)
	if got := check(t, c, ServiceDoor); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("stopped: got %v", got)
	}
	srv.DoorChanged(types.DoorOpening)
	if got := check(t, c, ServiceDoor); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("opening: got %v", got)
	}
}

func TestHealth_LowBatteryNotServing(t *testing.T) {
	srv, c := startHealth(t)

	srv.PowerSampled(types.PowerSample{PowerState: types.PowerState{Level: 10}})
	if got := check(t, c, ServicePower); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("at threshold: got %v", got)
	}
	srv.PowerSampled(types.PowerSample{PowerState: types.PowerState{Level: 10.5}})
	if got := check(t, c, ServicePower); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("above threshold: got %v", got)
	}
}
