package medaware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/medaware/medaware/internal/config"
)

// Mount attaches a handler to the root router. With a Method the handler
// serves exactly Pattern; without one it is mounted as a sub-router.
type Mount struct {
	Pattern string
	Method  string
	Handler http.Handler
}

type RouterParams struct {
	fx.In

	Config config.Config
	Mounts []Mount `group:"routes"`
}

func NewRouter(params RouterParams) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.DefaultLogger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: params.Config.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	router.Use(middleware.AllowContentType("application/json"))
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		render.Render(w, r, Envelope{"message": "MedAware backend running"})
	})

	router.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("okay xD"))
	})

	for _, mount := range params.Mounts {
		if mount.Method != "" {
			router.Method(mount.Method, mount.Pattern, mount.Handler)
			continue
		}

		router.Mount(mount.Pattern, mount.Handler)
	}

	return router
}

func NewServer(lc fx.Lifecycle, cfg config.Config, router *chi.Mux, logger LoggerService) *http.Server {
	port := fmt.Sprintf(":%s", cfg.Port)

	srv := &http.Server{
		Addr:              port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}

			logger.Info("Starting HTTP server", "port", srv.Addr)

			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("HTTP server stopped", "error", err)
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down HTTP server")

			return srv.Shutdown(ctx)
		},
	})

	return srv
}

func NewFxLogger(logger LoggerService) fxevent.Logger {
	fxLogger := fxevent.SlogLogger{Logger: logger.Logger()}

	fxLogger.UseLogLevel(slog.LevelDebug)
	fxLogger.UseErrorLevel(slog.LevelError)

	return &fxLogger
}

func BuildServerOpts() []fx.Option {
	return []fx.Option{
		fx.Provide(NewRouter),
		fx.Provide(NewServer),
		fx.Invoke(func(*http.Server) {}),
		fx.Provide(NewAuthService),
		fx.Provide(NewDBService),
	}
}

// BuildAppOpts wires logging for an application built from cfg.
func BuildAppOpts(cfg config.Config) []fx.Option {
	return []fx.Option{
		fx.Supply(cfg),
		fx.WithLogger(NewFxLogger),
		fx.Provide(NewLoggerService),
	}
}
