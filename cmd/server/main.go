package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/veraxlabs/go-access-server/auth"
	"github.com/veraxlabs/go-access-server/identity"
	"github.com/veraxlabs/go-access-server/internal/config"
	"github.com/veraxlabs/go-access-server/internal/obs"
	"github.com/veraxlabs/go-access-server/rbac"
	"github.com/veraxlabs/go-access-server/server"
	"github.com/veraxlabs/go-access-server/token"
	"github.com/veraxlabs/go-access-server/token/refreshstore"
	fakeuserrepo "github.com/veraxlabs/go-access-server/users/repofake"
)

var log = zerolog.New(os.Stdout).With().Timestamp().Logger()

func main() {
	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	if err := config.ValidateTokenSecrets(c); err != nil {
		return fmt.Errorf("token secrets: %w", err)
	}

	codec, err := token.NewCodec(
		c.GetAccessTokenSecret(),
		c.GetRefreshTokenSecret(),
		token.WithIssuer(c.GetTokenIssuer()),
		token.WithTokenExpiry(c.GetAccessTokenExpiry(), c.GetRefreshTokenExpiry()),
	)
	if err != nil {
		return fmt.Errorf("token codec: %w", err)
	}

	store, err := newStore(c)
	if err != nil {
		return fmt.Errorf("refresh token store: %w", err)
	}

	catalog, err := rbac.NewCatalog(rbac.DefaultRoleDefinitions())
	if err != nil {
		// A cycle or unknown include in the role table is a deploy-time
		// configuration error.
		return fmt.Errorf("role catalog: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics := obs.NewMetrics(registry)

	userRepo := fakeuserrepo.NewFakeUserRepo()
	authService, err := auth.NewService(auth.Deps{
		Users:   userRepo,
		Store:   store,
		Codec:   codec,
		Catalog: catalog,
		Metrics: metrics,
	})
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}

	serverOptions := []server.Option{}
	if c.GetOidcIssuerURL() != "" {
		verifier, err := newIdentityVerifier(c)
		if err != nil {
			return fmt.Errorf("identity verifier: %w", err)
		}
		serverOptions = append(serverOptions, server.WithIdentityVerifier(verifier))
	}

	httpServer := &http.Server{
		Addr:    c.GetPort(),
		Handler: server.New(c, authService, userRepo, registry, serverOptions...),
	}
	go listenAndServe(httpServer)
	waitForStopSignal()
	return shutdown(httpServer)
}

func newIdentityVerifier(c config.Config) (*identity.Verifier, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return identity.NewVerifier(ctx, c)
}

func newStore(c config.Config) (refreshstore.Store, error) {
	addr := c.GetRedisAddr()
	if addr == "" {
		log.Warn().Msg("REDIS_ADDR not set, using in-memory refresh token store")
		return refreshstore.NewInMemoryStore(), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return refreshstore.NewRedisStore(ctx, addr, c.GetRedisPassword())
}

func listenAndServe(httpServer *http.Server) {
	log.Info().Str("addr", httpServer.Addr).Msg("server listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func displayAppname(name string) {
	banner := figure.NewFigure(name, "", true)
	banner.Print()
}
