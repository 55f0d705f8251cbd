package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/rolechat/internal/client/store"
	"github.com/aussiebroadwan/rolechat/internal/client/store/drivers/memory"
	"github.com/aussiebroadwan/rolechat/internal/client/store/drivers/redis"
	"github.com/aussiebroadwan/rolechat/internal/client/store/drivers/sqlite"
	"github.com/aussiebroadwan/rolechat/pkg/chatsdk"
	"github.com/aussiebroadwan/rolechat/pkg/httpx"
	"github.com/aussiebroadwan/rolechat/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application wires the chat SDK to a credential store and the terminal.
type Application struct {
	cfg    Config
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer

	kv      store.KV
	session *chatsdk.Session
	gateway *chatsdk.Gateway
	sdk     *chatsdk.SDKClient
	chat    *chatsdk.ChatClient
}

// New creates an Application with all dependencies initialized. Command
// output goes to stdout; logs, notices and prompts go to stderr.
func New(ctx context.Context, cfg Config, stdout, stderr io.Writer) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg:    cfg,
		stdout: stdout,
		stderr: stderr,
		logger: slogx.New(slogx.Config{
			Service: "rolechat",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Output:  stderr,
		}),
	}

	if err := app.initStore(ctx); err != nil {
		return nil, err
	}

	if err := app.initClients(ctx); err != nil {
		_ = app.kv.Close()
		return nil, err
	}

	return app, nil
}

// Close releases the credential store.
func (app *Application) Close() error {
	if err := app.kv.Close(); err != nil {
		app.logger.Error("error closing store", "error", err)
		return err
	}
	return nil
}

// initStore opens the configured KV driver, sealing it when a passphrase is
// set.
func (app *Application) initStore(ctx context.Context) error {
	var kv store.KV

	switch app.cfg.Store {
	case StoreMemory:
		kv = memory.New()

	case StoreRedis:
		rs, err := redis.Connect(ctx, redis.Config{
			Addr:     app.cfg.RedisAddr,
			Password: app.cfg.RedisPassword,
			DB:       app.cfg.RedisDB,
			Prefix:   app.cfg.RedisPrefix,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		kv = rs

	default:
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
		db, err := sqlite.NewStore(dsn)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := db.ApplyMigrations(); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply database migrations: %w", err)
		}
		kv = db
	}

	if app.cfg.StorePassphrase != "" {
		sealed, err := store.NewSealed(ctx, kv, app.cfg.StorePassphrase)
		if err != nil {
			_ = kv.Close()
			return fmt.Errorf("failed to open sealed store: %w", err)
		}
		kv = sealed
	}

	app.kv = kv
	app.logger.Debug("credential store ready", "driver", app.cfg.Store, "sealed", app.cfg.StorePassphrase != "")
	return nil
}

// initClients builds the session, the gateway and the API clients on one
// shared HTTP client.
func (app *Application) initClients(ctx context.Context) error {
	session, err := chatsdk.NewSession(ctx, app.kv)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	app.session = session

	httpClient := &http.Client{
		Timeout: app.cfg.HTTPTimeout,
		Transport: httpx.Chain(http.DefaultTransport,
			httpx.RequestID(),
			func(next http.RoundTripper) http.RoundTripper { return slogx.Transport(app.logger, next) },
			httpx.RateLimit(httpx.NewLimiter(app.cfg.RateLimit)),
		),
	}

	// The marker lives as long as the process, like a browser tab's session
	// storage.
	notice := chatsdk.NewExpiryNotice(memory.New(), terminalNotifier{w: app.stderr}, app.logger)

	app.gateway = chatsdk.NewGateway(app.cfg.APIBase, session,
		chatsdk.WithHTTPClient(httpClient),
		chatsdk.WithLogger(app.logger),
		chatsdk.WithNavigator(terminalNavigator{w: app.stderr}),
		chatsdk.WithExpiryNotice(notice),
		chatsdk.WithLoginPath(app.cfg.LoginPath),
		chatsdk.WithRefreshTimeout(app.cfg.RefreshTimeout),
	)

	app.sdk = chatsdk.NewSDKClient(app.cfg.APIBase, session)
	app.sdk.HTTPClient = httpClient

	app.chat = chatsdk.NewChatClient(app.gateway)

	session.Subscribe(func(c chatsdk.Credential) {
		app.logger.Debug("credential changed", "logged_in", c.AccessToken != "")
	})

	return nil
}
