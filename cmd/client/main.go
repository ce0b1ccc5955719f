package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"chat-relay/domain"
	"chat-relay/internal"
	"chat-relay/ws"
)

var (
	username  string
	serverURL string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "chat-relay-client",
		Short:        "WebSocket chat relay client",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
	rootCmd.Flags().StringVarP(&username, "username", "u", "", "name shown to other participants (required)")
	rootCmd.Flags().StringVarP(&serverURL, "server", "s", "ws://127.0.0.1:10808/ws", "server websocket URL")
	_ = rootCmd.MarkFlagRequired("username")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := internal.NewLogger(config.LogFile, config.LogLevel)
	log.Info("Client starting...")

	client := ws.NewClient(log, username, render)
	client.Connect(serverURL)
	if !client.Connected() {
		return fmt.Errorf("could not connect to %s", serverURL)
	}
	defer client.Disconnect()

	fmt.Printf("Connected to %s\n", serverURL)
	fmt.Println("Type your message and press Enter to send")
	fmt.Println("Type \\quit or \\exit to quit")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input == "\\quit" || input == "\\exit" {
			break
		}
		if input == "" {
			continue
		}
		if !client.Connected() {
			fmt.Println("Disconnected from server")
			break
		}
		client.Send(input)
	}

	return scanner.Err()
}

// render prints one inbound message, own messages in green, everyone
// else's in cyan.
func render(message domain.Message) {
	line := fmt.Sprintf("[%s] %s: %s",
		message.SentAt.Format("15:04:05"), message.Sender, message.Body)
	if message.Sender == username {
		line = color.New(color.FgGreen).Render(line)
	} else {
		line = color.New(color.FgCyan).Render(line)
	}
	fmt.Println(line)
}
