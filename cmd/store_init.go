package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/awards-cli/internal/store"
	"github.com/sells-group/awards-cli/pkg/jsonprovider"
)

// initStore opens the document store selected by store.driver. Database
// backed stores are migrated before use.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "file", "":
		return store.NewFileStore(cfg.Store.Path), nil
	case "http":
		return store.NewHTTPStore(jsonprovider.NewClient(cfg.Store.BaseURL)), nil
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "init postgres store")
		}
		return migrated(ctx, st)
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "awards.db"
		}
		st, err := store.NewSQLite(dsn)
		if err != nil {
			return nil, eris.Wrap(err, "init sqlite store")
		}
		return migrated(ctx, st)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func migrated(ctx context.Context, st store.Writer) (store.Store, error) {
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initWriter opens the configured store for writing. Only database drivers
// can be written.
func initWriter(ctx context.Context) (store.Writer, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	w, ok := st.(store.Writer)
	if !ok {
		_ = st.Close()
		return nil, eris.Errorf("store driver %q is read-only", cfg.Store.Driver)
	}
	return w, nil
}
