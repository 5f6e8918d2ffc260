package main

import (
	"fmt"
	"os"

	"github.com/keybrdist/makiso/internal/core"
	"github.com/keybrdist/makiso/internal/db"
	"github.com/keybrdist/makiso/internal/types"
	"github.com/keybrdist/makiso/internal/webhook"
	"github.com/rs/zerolog"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := core.LoadConfig()
	if err != nil {
		fatal(log, "load config", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		fatal(log, "ensure data dir", err)
	}
	if len(cfg.ParseRoutes()) == 0 {
		fatal(log, "configure routes", fmt.Errorf("no routes configured, set MAKISO_WEBHOOK_ROUTES (e.g. \"alerts=alerts\")"))
	}

	conn, err := db.OpenDatabase(cfg.DBPath())
	if err != nil {
		fatal(log, "open database", err)
	}
	defer conn.Close()
	if err := db.InitSchema(conn, core.DefaultOrg); err != nil {
		fatal(log, "init schema", err)
	}

	scope, err := db.ResolveScope(conn, cfg, types.ScopeOverrides{}, core.NoProbe{}, ".")
	if err != nil {
		fatal(log, "resolve scope", err)
	}

	server := webhook.NewServer(conn, cfg, scope, log)
	if err := server.ListenAndServe(); err != nil {
		fatal(log, "serve", err)
	}
}

func fatal(log zerolog.Logger, action string, err error) {
	log.Error().Err(err).Msg(action + " failed")
	os.Exit(1)
}
