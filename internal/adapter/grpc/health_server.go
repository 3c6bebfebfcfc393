package grpc

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/Markko1982/order-manager/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Pinger reports whether a dependency answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthOptions struct {
	CertFile string // TLS is enabled when both files are set
	KeyFile  string
	Interval time.Duration
}

// HealthServer serves grpc.health.v1 and flips between SERVING and
// NOT_SERVING with the result of the database ping.
type HealthServer struct {
	srv    *grpc.Server
	health *health.Server
	db     Pinger
	every  time.Duration
}

func NewHealthServer(db Pinger, opt HealthOptions) (*HealthServer, error) {
	var opts []grpc.ServerOption
	if opt.CertFile != "" && opt.KeyFile != "" {
		creds, err := credentials.NewServerTLSFromFile(opt.CertFile, opt.KeyFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, grpc.Creds(creds))
	}
	every := opt.Interval
	if every <= 0 {
		every = 10 * time.Second
	}

	srv := grpc.NewServer(opts...)
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return &HealthServer{srv: srv, health: hs, db: db, every: every}, nil
}

// Serve blocks until ctx is done, then drains in-flight calls.
func (s *HealthServer) Serve(ctx context.Context, lis net.Listener) error {
	log := logging.New("grpc")
	s.check(ctx)

	go func() {
		t := time.NewTicker(s.every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				s.health.Shutdown()
				s.srv.GracefulStop()
				return
			case <-t.C:
				s.check(ctx)
			}
		}
	}()

	log.Info("grpc health server listening", "addr", lis.Addr().String())
	if err := s.srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

func (s *HealthServer) check(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := s.db.Ping(pctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		logging.New("grpc").WarnContext(ctx, "database ping failed", "error", err)
	}
	s.health.SetServingStatus("", status)
}
