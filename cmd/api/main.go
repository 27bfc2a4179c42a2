package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/PaulBabatuyi/wasteConnect/internal/auth"
	"github.com/PaulBabatuyi/wasteConnect/internal/config"
	"github.com/PaulBabatuyi/wasteConnect/internal/dashboard"
	"github.com/PaulBabatuyi/wasteConnect/internal/data"
	"github.com/PaulBabatuyi/wasteConnect/internal/db"
	"github.com/PaulBabatuyi/wasteConnect/internal/logger"
	"github.com/PaulBabatuyi/wasteConnect/internal/messaging"
	"github.com/PaulBabatuyi/wasteConnect/internal/middleware"
)

const (
	shutdownTimeout     = 10 * time.Second
	healthCheckInterval = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logOut, err := logger.Setup(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	dbClient, err := db.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return fmt.Errorf("failed to connect to DB: %w", err)
	}
	defer func() {
		_ = dbClient.Close(context.Background())
	}()

	if err := dbClient.CreateIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	usersStore := data.NewUsersStore(dbClient.UsersCollection())
	msgsStore := data.NewMessagesStore(dbClient.MessagesCollection())
	metricsStore := data.NewMetricsStore(
		dbClient.PickupsCollection(),
		dbClient.RecyclingsCollection(),
		dbClient.VolunteersCollection(),
	)

	// JWT_KEYS enables rotation; JWT_SECRET is the single-key fallback.
	var jwtMgr *auth.JWTManager
	if len(cfg.JWTKeys) > 0 {
		jwtMgr = auth.NewJWTManagerFromKeys(cfg.JWTKeys, cfg.JWTActiveKid, cfg.JWTTTL)
	} else {
		jwtMgr = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	}

	hub := NewConnectionHub()
	msgService := messaging.NewService(msgsStore, hub)
	aggregator := dashboard.NewAggregator(metricsStore, dashboard.Options{
		QueryTimeout: cfg.QueryTimeout,
		Retries:      cfg.QueryRetries,
		Location:     cfg.Location,
	})

	// Small burst on auth endpoints allows a couple of quick retries.
	authLimiter := middleware.NewLimiterStore(cfg.AuthRateRPM, 3, time.Minute)
	defer authLimiter.Stop()
	apiLimiter := middleware.NewLimiterStore(cfg.APIRateRPM, cfg.APIRateRPM, time.Minute)
	defer apiLimiter.Stop()

	srv := newServer(ctx, usersStore, msgService, aggregator, jwtMgr, hub)
	app := srv.newApp(appOptions{
		LogOutput:   logOut,
		CORSOrigins: cfg.CORSOrigins,
		APILimiter:  apiLimiter,
		AuthLimiter: authLimiter,
	})

	errCh := make(chan error, 2)

	if cfg.GRPCPort != "" {
		var serverOpts []grpc.ServerOption
		if cfg.TLSEnabled() {
			creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
			if err != nil {
				return fmt.Errorf("failed to load TLS certs: %w", err)
			}
			serverOpts = append(serverOpts, grpc.Creds(creds))
		}

		grpcServer, healthSrv := newHealthServer(serverOpts...)
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			return fmt.Errorf("failed to listen on gRPC port: %w", err)
		}

		go watchDatabase(ctx, dbClient, healthSrv, healthCheckInterval, cfg.QueryTimeout)
		go func() {
			log.Printf("gRPC health server listening on :%s", cfg.GRPCPort)
			if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- fmt.Errorf("gRPC server: %w", err)
			}
		}()
		defer func() {
			healthSrv.Shutdown()
			grpcServer.GracefulStop()
		}()
	}

	go func() {
		addr := ":" + cfg.Port
		log.Printf("HTTP server listening on %s", addr)
		var err error
		if cfg.TLSEnabled() {
			err = app.ListenTLS(addr, cfg.TLSCert, cfg.TLSKey)
		} else {
			err = app.Listen(addr)
		}
		if err != nil {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Printf("shutting down")
	case err := <-errCh:
		return err
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	return nil
}
