package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/jiminy/pkg/chatclient"
	"github.com/go-go-golems/jiminy/pkg/host"
	"github.com/go-go-golems/jiminy/pkg/host/tui"
	"github.com/go-go-golems/jiminy/pkg/kvstore"
)

func newChatCommand() *cobra.Command {
	var configPath string
	var check bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Run the chat widget in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd, configPath)
			if err != nil {
				return err
			}
			if check {
				return runCheck(cmd.Context(), settings)
			}
			return runChat(cmd.Context(), settings)
		},
	}

	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "YAML config file")
	f.BoolVar(&check, "check", false, "ping the backend and exit")
	f.String("api-base", "", "backend base URL")
	f.String("token", "", "session bearer token")
	f.Int64("token-expires-at", 0, "token expiry as unix seconds (0 means no expiry)")
	f.String("source", "", "source tag sent with every query")
	f.String("title", "", "widget title")
	f.String("state-dir", "", "directory for file-backed conversation state")
	f.String("notify-url", "", "relay websocket URL for geometry intents")
	f.String("notify-file", "", "file that receives geometry intents as JSON lines")

	return cmd
}

func buildClient(settings Settings) (*chatclient.Client, error) {
	var kv kvstore.Store
	if settings.StateDir != "" {
		fileStore, err := kvstore.NewFileStore(settings.StateDir)
		if err != nil {
			return nil, errors.Wrap(err, "open state dir")
		}
		kv = fileStore
	} else {
		kv = kvstore.NewInMemoryStore()
	}

	store := chatclient.NewConversationStore(kv, "", log.Logger)
	store.Restore()

	return chatclient.NewClient(chatclient.Config{
		APIBase: settings.APIBase,
		Source:  settings.Source,
		Guard:   chatclient.NewSessionGuard(settings.Token, settings.TokenExpiresAt),
		Store:   store,
		Reveal: chatclient.RevealConfig{
			Stride:   settings.RevealStride,
			Interval: settings.revealInterval(),
		},
		Logger: log.Logger,
	})
}

func runCheck(ctx context.Context, settings Settings) error {
	client, err := buildClient(settings)
	if err != nil {
		return err
	}
	if err := client.Ping(ctx); err != nil {
		return errors.Wrap(err, "backend unreachable")
	}
	fmt.Println("backend ok:", settings.APIBase)
	return nil
}

func runChat(ctx context.Context, settings Settings) error {
	client, err := buildClient(settings)
	if err != nil {
		return err
	}

	var notifiers []host.Notifier
	if settings.NotifyURL != "" {
		wsNotifier, err := host.DialNotifier(ctx, settings.NotifyURL)
		if err != nil {
			return errors.Wrap(err, "dial notify url")
		}
		defer func() { _ = wsNotifier.Close() }()
		notifiers = append(notifiers, wsNotifier)
	}
	if settings.NotifyFile != "" {
		f, err := os.OpenFile(settings.NotifyFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return errors.Wrap(err, "open notify file")
		}
		defer func() { _ = f.Close() }()
		notifiers = append(notifiers, host.NewWriterNotifier(f))
	}

	var notifier host.Notifier
	switch len(notifiers) {
	case 0:
		notifier = host.NopNotifier{}
	case 1:
		notifier = notifiers[0]
	default:
		notifier = host.FuncNotifier(func(g host.Geometry) {
			for _, n := range notifiers {
				n.Notify(g)
			}
		})
	}

	widgetHost := host.New(host.Config{
		Notifier: notifier,
		Logger:   log.Logger,
	})

	model := tui.New(tui.Config{
		Client: client,
		Host:   widgetHost,
		Title:  settings.Title,
	})

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return errors.Wrap(err, "run chat ui")
	}
	return nil
}
