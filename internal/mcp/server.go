package mcp

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/keybrdist/makiso/internal/core"
	"github.com/keybrdist/makiso/internal/db"
	mcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server exposes the event queue over MCP stdio.
type Server struct {
	server *mcp.Server
	conn   *sql.DB
}

// NewServer opens the database and registers the queue tools.
func NewServer(agent, version string) (*Server, error) {
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

	server := mcp.NewServer(&mcp.Implementation{Name: "makiso", Version: version}, nil)
	RegisterTools(server, &ToolContext{Agent: agent, DB: conn, Config: cfg})

	return &Server{server: server, conn: conn}, nil
}

// Run serves MCP over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Close releases the database.
func (s *Server) Close() error {
	return s.conn.Close()
}

// logf writes to stderr; stdout belongs to the MCP transport.
func logf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "[makiso-mcp] %s\n", fmt.Sprintf(format, args...))
}
