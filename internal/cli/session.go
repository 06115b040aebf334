package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/cartengine/internal/cart"
	"github.com/roach88/cartengine/internal/catalog"
	"github.com/roach88/cartengine/internal/config"
	"github.com/roach88/cartengine/internal/errcode"
	"github.com/roach88/cartengine/internal/notify"
	"github.com/roach88/cartengine/internal/persist"
)

// Session is one wired-up cart: catalog, backend, persistence adapter,
// toast dispatcher and store. Commands open a session, act on it and close
// it; the shell keeps one open for its whole lifetime.
type Session struct {
	Config  config.Config
	Catalog *catalog.Live
	Adapter *persist.Adapter
	Toasts  *notify.Dispatcher
	Store   *cart.Store
}

// openSession loads configuration and wires a session. The store is
// hydrated from the backend, so a fresh process sees the cart left by the
// previous one.
func openSession(ctx context.Context, opts *RootOptions, logOut io.Writer) (*Session, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, &ExitError{Code: ExitCommandError, Message: "failed to load config", Err: err, ErrCode: errcode.Config}
	}
	setupLogging(logOut, cfg.LogLevel, opts.Verbose)

	slog.Debug("loading catalog", "path", cfg.Catalog)
	mem, err := catalog.LoadFile(cfg.Catalog)
	if err != nil {
		return nil, &ExitError{Code: ExitCommandError, Message: "failed to load catalog", Err: err, ErrCode: errcode.Catalog}
	}

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open storage", err)
	}
	slog.Debug("storage ready", "backend", cfg.Storage)

	s := &Session{
		Config:  cfg,
		Catalog: catalog.NewLive(mem),
		Adapter: persist.NewAdapter(backend),
		Toasts:  notify.New(notify.WithDuration(cfg.ToastDuration)),
	}
	s.Store = cart.New(s.Catalog,
		cart.WithState(s.Adapter.Load(ctx)),
		cart.WithPersister(s.Adapter),
		cart.WithNotifier(s.Toasts),
		cart.WithStockPolicy(cfg.Policy()),
	)
	return s, nil
}

// Close tears the session down in dependency order.
func (s *Session) Close() {
	s.Store.Close()
	s.Toasts.Close()
	if err := s.Adapter.Close(); err != nil {
		slog.Error("error closing storage", "error", err)
	}
}

// openBackend opens the storage backend named by cfg.Storage.
func openBackend(ctx context.Context, cfg config.Config) (persist.Backend, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return persist.NewMemory(), nil
	case config.StorageSQLite:
		db, err := persist.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.StorageRedis:
		rdb, err := persist.DialRedis(ctx, persist.RedisOptions{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			Namespace:  cfg.Redis.Namespace,
			MaxRetries: 3,
		})
		if err != nil {
			return nil, err
		}
		return rdb, nil
	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
}

// setupLogging installs the default slog logger. -v forces debug.
func setupLogging(w io.Writer, level string, verbose bool) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
