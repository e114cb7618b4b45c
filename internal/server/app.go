// Package server wires the configured services together and runs the HTTP
// API until a termination signal arrives.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/trackvault/internal/logging"
	"github.com/dmitrijs2005/trackvault/internal/server/config"
	"github.com/dmitrijs2005/trackvault/internal/server/httpserver"
	"github.com/dmitrijs2005/trackvault/internal/server/ingest"
	"github.com/dmitrijs2005/trackvault/internal/server/revocation"
	"github.com/dmitrijs2005/trackvault/internal/server/tracks"
	"github.com/dmitrijs2005/trackvault/internal/server/users"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	server   *httpserver.HTTPServer
	closers  []io.Closer
	registry *users.Registry
}

// logOutput is swapped in tests.
var logOutput io.Writer = os.Stdout

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogBackend, c.LogLevel, logOutput)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	registry, err := users.LoadRegistry(c.UsersDB, c.UsersFile)
	if err != nil {
		return nil, fmt.Errorf("user registry init error: %w", err)
	}

	app := &App{config: c, logger: logger, registry: registry}

	var revocations users.RevocationStore
	if c.RedisURL != "" {
		client, err := revocation.Connect(ctx, c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("revocation store init error: %w", err)
		}
		app.closers = append(app.closers, client)
		revocations = revocation.NewRedisStore(client)
	}

	tokens := users.NewService(registry, users.Options{
		AccessSecret:  []byte(c.AccessTokenSecret),
		RefreshSecret: []byte(c.RefreshTokenSecret),
		AccessTTL:     c.AccessTokenValidityDuration,
		RefreshTTL:    c.RefreshTokenValidityDuration,
		Revocations:   revocations,
	})

	api, presigner, err := tracks.NewS3Clients(ctx, tracks.S3Config{
		Endpoint:     c.S3BaseEndpoint,
		Region:       c.S3Region,
		AccessKey:    c.S3AccessKey,
		SecretKey:    c.S3SecretKey,
		UsePathStyle: c.S3UsePathStyle,
	})
	if err != nil {
		app.close()
		return nil, fmt.Errorf("s3 init error: %w", err)
	}
	trackService := tracks.NewService(api, presigner, tracks.Options{
		Bucket:       c.S3Bucket,
		SignedURLTTL: c.SignedURLTTL,
	})

	httpClient := &http.Client{}
	var resolver ingest.Resolver
	switch c.IngestResolver {
	case config.ResolverConverter:
		resolver = ingest.NewConverterResolver(c.ConverterEndpoint, c.AudioBitrate, httpClient)
	default:
		resolver = ingest.NewYouTubeResolver(httpClient)
	}
	pipeline := ingest.NewPipeline(resolver,
		&ingest.FFmpeg{Path: c.FFmpegPath, Bitrate: c.AudioBitrate, TempDir: c.TempDir},
		ingest.Options{
			FetchTimeout:  c.IngestFetchTimeout,
			Timeout:       c.IngestTimeout,
			MaxBytes:      c.IngestMaxBytes,
			MaxConcurrent: int64(c.IngestMaxConcurrent),
			HTTPClient:    httpClient,
		}, logger)

	router := httpserver.NewRouter(httpserver.Deps{
		Tokens:             tokens,
		Tracks:             trackService,
		Ingester:           pipeline,
		Logger:             logger,
		MaxUploadBytes:     c.MaxUploadBytes,
		LoginRatePerMinute: c.LoginRatePerMinute,
		LoginRateBurst:     c.LoginRateBurst,
	})
	app.server = httpserver.NewHTTPServer(c.EndpointAddrHTTP, router, logger, c.ShutdownTimeout)

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) error {
	err := app.server.Run(ctx)
	if err != nil {
		app.logger.Error(ctx, "http server failed", "error", err)
		cancelFunc()
	}
	return err
}

func (app *App) close() {
	for _, c := range app.closers {
		if err := c.Close(); err != nil {
			app.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
}

// Run blocks until ctx is cancelled, a termination signal arrives or the
// listener fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.close()

	app.logger.Info(ctx, "Starting app...",
		"users", app.registry.Len(),
		"bucket", app.config.S3Bucket,
		"resolver", app.config.IngestResolver,
		"revocation", app.config.RedisURL != "")

	app.initSignalHandler(cancelFunc)

	var (
		wg     sync.WaitGroup
		runErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.logger.Info(context.Background(), "app stopped")
	if s, ok := app.logger.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}
	return runErr
}
