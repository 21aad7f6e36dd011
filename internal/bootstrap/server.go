package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Domenick1991/showbooking/config"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

const (
	shutdownTimeout = 5 * time.Second
	checkInterval   = 10 * time.Second
	swaggerDocument = "showbooking.swagger.json"
)

// Check reports whether a dependency (database, cache, broker) is reachable.
type Check func(ctx context.Context) error

type Servers struct {
	grpcServer *grpc.Server
	httpServer *http.Server
	health     *health.Server
	conn       *grpc.ClientConn
	checks     map[string]Check
	log        *zap.Logger
}

// Run starts the gRPC health server and the HTTP server (REST API, gateway
// /healthz and swagger) and blocks until ctx is cancelled or a server fails.
func Run(ctx context.Context, cfg *config.Config, api http.Handler, checks map[string]Check, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	s, err := newServers(cfg, api, checks, log)
	if err != nil {
		return err
	}
	defer s.conn.Close()

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("grpc server listening", zap.String("addr", cfg.GRPC.Address))
		return s.grpcServer.Serve(lis)
	})
	g.Go(func() error {
		log.Info("http server listening", zap.String("addr", cfg.HTTP.Address))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		s.monitor(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down servers")
		s.health.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.grpcServer.GracefulStop()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func newServers(cfg *config.Config, api http.Handler, checks map[string]Check, log *zap.Logger) (*Servers, error) {
	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcSrv, healthSrv)

	conn, err := grpc.NewClient(cfg.GRPC.Address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial gRPC %s: %w", cfg.GRPC.Address, err)
	}

	return &Servers{
		grpcServer: grpcSrv,
		httpServer: &http.Server{
			Addr:              cfg.HTTP.Address,
			Handler:           newHTTPHandler(cfg.HTTP, api, grpc_health_v1.NewHealthClient(conn)),
			ReadHeaderTimeout: 5 * time.Second,
		},
		health: healthSrv,
		conn:   conn,
		checks: checks,
		log:    log,
	}, nil
}

// newHTTPHandler routes /api/ to the REST router, /healthz to the gateway and
// serves the swagger document and UI when a swagger directory is configured.
func newHTTPHandler(cfg config.HTTPConfig, api http.Handler, healthClient grpc_health_v1.HealthClient) http.Handler {
	gateway := runtime.NewServeMux(runtime.WithHealthzEndpoint(healthClient))

	handler := http.NewServeMux()
	handler.Handle("/api/", api)
	handler.Handle("/healthz", gateway)

	if cfg.SwaggerDir != "" {
		fs := http.FileServer(http.Dir(cfg.SwaggerDir))
		handler.Handle("/swagger/", http.StripPrefix("/swagger/", fs))
		handler.Handle("/docs/", httpSwagger.Handler(httpSwagger.URL("/swagger/"+swaggerDocument)))
	}
	return handler
}

// monitor runs the dependency checks and publishes the result as the overall
// serving status until ctx is done.
func (s *Servers) monitor(ctx context.Context) {
	s.updateStatus(ctx)
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.updateStatus(ctx)
		}
	}
}

func (s *Servers) updateStatus(ctx context.Context) {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if failed := runChecks(ctx, s.checks); len(failed) > 0 {
		s.log.Warn("dependency check failed", zap.String("dependencies", strings.Join(failed, ",")))
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
}

// runChecks returns the names of the failed checks.
func runChecks(ctx context.Context, checks map[string]Check) []string {
	var failed []string
	for name, check := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := check(checkCtx)
		cancel()
		if err != nil {
			failed = append(failed, name)
		}
	}
	sort.Strings(failed)
	return failed
}
