// Command shopchat-tui is a terminal client for one shopchat conversation.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/akinalp/shopchat/client"
	"github.com/akinalp/shopchat/config"
	"github.com/akinalp/shopchat/directory"
	"github.com/akinalp/shopchat/pkg/logger"
	"github.com/akinalp/shopchat/tui"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI; logs go to a file.
	log, err := logger.NewFile(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	api := client.New(cfg.APIURL, cfg.Token, cfg.Timeout)

	conversationID := cfg.ConversationID
	if len(os.Args) > 1 {
		conversationID = os.Args[1]
	}
	if conversationID == "" {
		if err := printConversations(api); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	dir := directory.New(api, cfg.DirectoryTTL, log)
	defer dir.Close()

	log.Info("opening conversation", zap.String("conversation_id", conversationID))

	p := tea.NewProgram(tui.New(conversationID, api, dir, log), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Error("ui exited with error", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// printConversations lists what the token can open when no conversation was
// given.
func printConversations(api *client.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	convs, err := api.ListConversations(ctx)
	if err != nil {
		return err
	}
	if len(convs) == 0 {
		fmt.Println("No conversations yet.")
		return nil
	}

	fmt.Println("Usage: shopchat-tui <conversation-id>")
	fmt.Println()
	for _, c := range convs {
		line := fmt.Sprintf("  %s  %s", c.ID, c.Subject)
		if c.OrderRef != nil {
			line += fmt.Sprintf(" (order %s)", *c.OrderRef)
		}
		fmt.Println(line)
	}
	return nil
}
