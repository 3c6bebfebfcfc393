package grpc

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

type flakyDB struct{ down atomic.Bool }

func (f *flakyDB) Ping(context.Context) error {
	if f.down.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func TestHealthServer(t *testing.T) {
	db := &flakyDB{}
	s, err := NewHealthServer(db, HealthOptions{Interval: 20 * time.Millisecond})
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	status := func() healthpb.HealthCheckResponse_ServingStatus {
		res, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{})
		if err != nil {
			return healthpb.HealthCheckResponse_UNKNOWN
		}
		return res.Status
	}

	assert.Eventually(t, func() bool { return status() == healthpb.HealthCheckResponse_SERVING },
		time.Second, 10*time.Millisecond)

	db.down.Store(true)
	assert.Eventually(t, func() bool { return status() == healthpb.HealthCheckResponse_NOT_SERVING },
		time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestNewHealthServer_BadTLS(t *testing.T) {
	_, err := NewHealthServer(&flakyDB{}, HealthOptions{CertFile: "missing.pem", KeyFile: "missing.key"})
	assert.Error(t, err)
}
