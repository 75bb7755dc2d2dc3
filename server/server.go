// Package server wires the HTTP surface: echo, auth, rate limiting and the
// v1 API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/muhandis-ai/muhandis/internal/profile"
	"github.com/muhandis-ai/muhandis/plugin/generator"
	"github.com/muhandis-ai/muhandis/server/middleware"
	apiv1 "github.com/muhandis-ai/muhandis/server/router/api/v1"
	"github.com/muhandis-ai/muhandis/store"
)

// Server is the muhandis HTTP server.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	apiService *apiv1.APIV1Service
	logger     *slog.Logger
}

// NewServer creates the server with all middleware and routes registered.
func NewServer(_ context.Context, prof *profile.Profile, st *store.Store, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOriginFunc: func(string) (bool, error) { return true, nil },
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:    []string{"*"},
	}))
	e.Use(middleware.NewAuthenticator(prof.Secret).Middleware())
	e.Use(middleware.NewRateLimiter(10, 20).Middleware())

	// Without a configured provider the scripted producer keeps the instance
	// usable offline.
	producer, err := generator.New(prof)
	if err != nil {
		return nil, errors.Wrap(err, "create generator producer")
	}

	apiService := apiv1.NewAPIV1Service(prof.Secret, prof, st, producer, logger)
	apiService.RegisterRoutes(e)

	return &Server{
		Profile:    prof,
		Store:      st,
		echoServer: e,
		apiService: apiService,
		logger:     logger,
	}, nil
}

// Start runs the server until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.apiService.Stats.Start(ctx)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		addr := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
		s.logger.Info("server started", "addr", addr, "version", s.Profile.Version, "mode", s.Profile.Mode)
		if err := s.echoServer.Start(addr); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "start http server")
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		s.apiService.Stats.Stop()
		if err := s.echoServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("failed to shut down http server", "error", err)
		}
		return nil
	})

	return group.Wait()
}
