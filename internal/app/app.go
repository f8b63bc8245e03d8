package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/vadimbarashkov/shortly/internal/config"
	"github.com/vadimbarashkov/shortly/internal/database/sqlite"
	"github.com/vadimbarashkov/shortly/internal/service"
	"golang.org/x/sync/errgroup"

	sqlitedb "github.com/vadimbarashkov/shortly/pkg/sqlite"

	myhttp "github.com/vadimbarashkov/shortly/internal/api/http"
)

// Run wires the application together and serves HTTP until ctx is cancelled.
// One database pool is built here and passed down explicitly; no package holds
// a global handle.
func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	db, err := sqlitedb.New(
		ctx,
		cfg.SQLite.DSN(),
		sqlitedb.WithConnMaxIdleTime(cfg.SQLite.ConnMaxIdleTime),
		sqlitedb.WithConnMaxLifetime(cfg.SQLite.ConnMaxLifetime),
		sqlitedb.WithMaxIdleConns(cfg.SQLite.MaxIdleConns),
		sqlitedb.WithMaxOpenConns(cfg.SQLite.MaxOpenConns),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}
	defer db.Close()

	if err := sqlitedb.RunMigrations("file://migrations", cfg.SQLite.Path); err != nil {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	svcOpts := []service.Option{service.WithMaxAttempts(cfg.ShortCode.MaxAttempts)}
	if cfg.CacheTTL > 0 {
		svcOpts = append(svcOpts, service.WithCache(cfg.CacheTTL))
	}

	urlRepo := sqlite.NewURLRepository(db)
	urlSvc := service.NewURLService(urlRepo, cfg.ShortCode.Length, svcOpts...)

	logger := httplog.NewLogger("shortly", httplog.Options{
		Concise: true,
		Tags:    map[string]string{"env": cfg.Env},
	})

	r := myhttp.NewRouter(logger, urlSvc, cfg.BaseURL, cfg.StaticDir)

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        r,
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}
