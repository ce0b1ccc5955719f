package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/spf13/cobra"

	"chat-relay/internal"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/storage"
	"chat-relay/ws"
)

var port int

func main() {
	rootCmd := &cobra.Command{
		Use:          "chat-relay-server",
		Short:        "WebSocket chat relay server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
	rootCmd.Flags().IntVarP(&port, "port", "p", 10808, "listen port")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so every defer (like database cleanup) runs
// before the process exits.
func run() error {
	// 1. Configuration & Logger
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := internal.NewLogger(config.LogFile, config.LogLevel)
	log.Info("Server starting...")

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. History, registry and relay wiring
	history := repositories.NewHistoryRepository(db, log)
	registry := runtime.NewRegistry()
	relay := runtime.NewBroadcaster(log, registry)
	sink := storage.NewHistorySink(history, log)

	recent, err := history.Recent(config.HistoryLimit)
	if err != nil {
		log.Warn("Could not load message history", "error", err)
	}
	for i := len(recent) - 1; i >= 0; i-- {
		fmt.Println(recent[i].Encode())
	}

	addr := fmt.Sprintf("%s:%d", config.Host, port)
	server := ws.NewServer(log, addr, registry, relay, sink)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Start & Wait
	if err := server.Start(); err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}
	fmt.Printf("Chat server running on %s\n", server.Addr())
	fmt.Println("Press Ctrl+C to stop")

	<-ctx.Done()
	log.Info("Shutting down gracefully...")

	// 6. Final Cleanup
	server.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
