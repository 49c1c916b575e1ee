// cluster-server exposes the control-plane job API over HTTP: submit a
// clustering run, poll its status, scrape Prometheus metrics. Entry point
// is intentionally thin; routing lives in internal/server the same way
// this codebase keeps its query API separate from its main func.
package main

import (
	"net/http"
	"os"

	"github.com/jimspencer/spidermap/internal/config"
	"github.com/jimspencer/spidermap/internal/logger"
	"github.com/jimspencer/spidermap/internal/middleware"
	"github.com/jimspencer/spidermap/internal/migrate"
	"github.com/jimspencer/spidermap/internal/server"
	"github.com/jimspencer/spidermap/internal/store"
	"github.com/jimspencer/spidermap/internal/utils"
)

func main() {
	config.LoadDotEnv()
	l := logger.Setup()
	l.Debug("log_init_ok")

	cfg := config.FromEnv()

	var runs *store.RunStore
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
	} else if db != nil {
		if err := migrate.EnsureSchema(db); err != nil {
			l.Error("schema_error", "err", err)
			os.Exit(1)
		}
		runs = store.AttachDB(db)
		defer runs.Close()
		l.Info("db_open_ok")
	} else {
		l.Info("db_disabled")
	}

	srv := server.New(cfg, runs)
	mux := srv.BuildRoutes()

	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler)

	addr := cfg.ServerAddr
	l.Info("listening", "addr", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		l.Error("listen_error", "err", err)
		os.Exit(1)
	}
}
