package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/keybrdist/makiso/internal/mcp"
)

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func main() {
	agent := "agent"
	if len(os.Args) >= 2 {
		agent = os.Args[1]
	}

	server, err := mcp.NewServer(agent, Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start MCP server: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		_ = server.Close()
		os.Exit(0)
	}()

	if err := server.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}
