package command

import (
	"database/sql"

	"github.com/keybrdist/makiso/internal/core"
	"github.com/keybrdist/makiso/internal/db"
	"github.com/spf13/cobra"
)

// CommandContext provides shared command resources.
type CommandContext struct {
	DB       *sql.DB
	Config   *core.Config
	JSONMode bool
}

// GetContext loads configuration and opens the database for a command.
func GetContext(cmd *cobra.Command) (*CommandContext, error) {
	jsonMode, _ := cmd.Flags().GetBool("json")

	cfg, err := core.LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, err
	}

	conn, err := db.OpenDatabase(cfg.DBPath())
	if err != nil {
		return nil, err
	}
	if err := db.InitSchema(conn, core.DefaultOrg); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &CommandContext{
		DB:       conn,
		Config:   cfg,
		JSONMode: jsonMode,
	}, nil
}
