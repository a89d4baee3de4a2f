package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"taskvault/config"
	"taskvault/identity"
	"taskvault/logging"
	"taskvault/session"
	"taskvault/store"
	"taskvault/tasklist"
	"taskvault/ui"
)

const usage = `taskvault - an authentication-gated task list

Usage:
  taskvault [flags] serve    run the HTTP server (default)
  taskvault [flags] ui       run the terminal interface

Flags:
  -config path    config file (default taskvault.toml when present)
`

func main() {
	fs := flag.NewFlagSet("taskvault", flag.ExitOnError)
	cfgPath := fs.String("config", "", "config file path")
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	fs.Parse(os.Args[1:])

	cmd := fs.Arg(0)
	if cmd == "" {
		cmd = "serve"
	}

	// A missing .env is fine; it only exists to supply TASKVAULT_* vars
	// during development.
	godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal("loading configuration failed", "err", err)
	}
	logger := logging.New(cfg.Log)

	kv, users, closeStores, err := openStores(cfg.Storage, logger)
	if err != nil {
		logger.Fatal("opening storage failed", "err", err)
	}
	defer closeStores()

	provider, err := identity.NewLocal(users, cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute, logger)
	if err != nil {
		logger.Fatal("initializing identity provider failed", "err", err)
	}
	defer provider.Close()

	holder := session.NewHolder(provider, logger)
	holder.Init()
	defer holder.Dispose()

	tasks := tasklist.New(kv, cfg.Storage.SlotKey, logger)

	switch cmd {
	case "serve":
		srv := &server{tasks: tasks, provider: provider, holder: holder, logger: logger}
		logger.Info("listening", "addr", cfg.Server.Addr, "driver", cfg.Storage.Driver)
		if err := http.ListenAndServe(cfg.Server.Addr, srv.routes()); err != nil {
			logger.Fatal("server failed", "err", err)
		}
	case "ui":
		deps := ui.Deps{Holder: holder, Provider: provider, Tasks: tasks, Logger: logger}
		if err := ui.Run(deps); err != nil {
			logger.Fatal("ui failed", "err", err)
		}
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

// openStores wires the configured backend. sqlite serves both the slot and
// the users from one file; postgres pairs a Postgres user table with a
// Redis slot; memory keeps everything in process.
func openStores(cfg config.StorageConfig, logger *log.Logger) (store.KV, store.Users, func(), error) {
	switch cfg.Driver {
	case "memory":
		m := store.NewMemory()
		return m, m, func() {}, nil
	case "sqlite":
		db, err := store.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Debug("sqlite storage ready", "path", cfg.Path)
		return db, db, closeAll(logger, db), nil
	case "postgres":
		pg, err := store.OpenPostgres(cfg.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		rd, err := store.OpenRedis(cfg.RedisAddr)
		if err != nil {
			pg.Close()
			return nil, nil, nil, err
		}
		logger.Debug("postgres/redis storage ready", "redis", cfg.RedisAddr)
		return rd, pg, closeAll(logger, rd, pg), nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func closeAll(logger *log.Logger, closers ...io.Closer) func() {
	return func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logger.Warn("closing storage failed", "err", err)
			}
		}
	}
}
