package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mcpserver "barrel/internal/mcp"
)

// ServeMCP runs barrel as a standalone MCP server on stdin/stdout until
// interrupted.
func ServeMCP(dataDir, version string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := New(dataDir)
	if err := a.Startup(ctx); err != nil {
		return err
	}
	defer a.Shutdown(context.Background())

	srv := mcpserver.New(mcpserver.Deps{Seeds: a.Seeds(), Version: version})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
	case <-ctx.Done():
		log.Println("[MCP] Shutting down...")
	}
	return nil
}
