// loom - a desktop chat workspace for the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/loomchat/loom/internal/backend"
	"github.com/loomchat/loom/internal/config"
	"github.com/loomchat/loom/internal/observability"
	"github.com/loomchat/loom/internal/storage"
	"github.com/loomchat/loom/internal/ui/chat"
	"github.com/loomchat/loom/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			fmt.Printf("loom %s (%s, built %s)\n", Version, GitCommit, BuildDate)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("loom - streaming chat workspace")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  loom            start the chat TUI")
	fmt.Println("  loom version    print version information")
	fmt.Println()
	fmt.Println("Configuration lives in ~/.loom/config.toml and is reloaded")
	fmt.Println("automatically when the file changes.")
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	config.SetGlobal(cfg)

	appDir, err := config.AppDir()
	if err != nil {
		return fmt.Errorf("resolving app directory: %w", err)
	}

	if err := observability.Init(filepath.Join(appDir, "loom.log"), "info"); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	observability.Infof("loom %s starting", Version)

	store, err := storage.Open(filepath.Join(appDir, "chat_history.db"))
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}
	defer store.Close()

	client := backend.NewClientWithConfig(&backend.ClientConfig{
		Timeout:   cfg.Timeout(),
		UserAgent: "loom/" + Version,
	})
	registry := backend.NewRegistry()

	bridge, err := backend.NewBridge(context.Background(), store, client, registry, cfg)
	if err != nil {
		return fmt.Errorf("initializing backend: %w", err)
	}

	theme := styles.NewTheme()
	m := chat.New(bridge, theme, cfg)

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.UI.MouseEnabled {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(m, opts...)

	// Backend goroutines reach the update loop through the pusher.
	bridge.SetPusher(chat.NewPusher(p))

	// Reload config edits live: the bridge picks up provider and rate
	// limit changes, the UI re-reads its display settings.
	if path, err := config.ConfigPath(); err == nil {
		watcher, err := config.NewWatcher(path, func(next *config.Config) {
			bridge.UpdateConfig(next)
			p.Send(chat.ConfigReloadedMsg{Config: next})
		})
		if err == nil {
			if err := watcher.Watch(); err != nil {
				observability.Warnf("config watcher disabled: %v", err)
			} else {
				defer watcher.Close()
			}
		}
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running loom: %w", err)
	}

	observability.Infof("loom shutting down")
	return nil
}
