package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"chatd/internal/client"
	"chatd/internal/config"
	"chatd/internal/orchestrator"
	"chatd/internal/prefs"
	"chatd/internal/registry"
	"chatd/internal/tui"
	"chatd/pkg/types"
)

// backend is an executor reachable in-process or over the network.
type backend interface {
	Send(types.Command)
	Events() <-chan types.Event
}

func newChatCmd(g *globalFlags) *cobra.Command {
	var remote string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat in the terminal",
		Long:  "Runs the model in-process, or attaches to a chatd server with --remote.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g, config.Config{})
			if err != nil {
				return err
			}
			return runChat(cmd.Context(), cfg, remote)
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "chatd server URL, e.g. http://127.0.0.1:8080")
	return cmd
}

func runChat(parent context.Context, cfg config.Config, remote string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGTERM)
	defer cancel()

	// The terminal belongs to the UI; logs go to a file.
	lf, err := openLogFile(cfg.LogFile)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer lf.Close()
	log := newLogger(lf, cfg.LogLevel)

	var (
		be   backend
		cat  *registry.Catalog
		done = make(chan struct{})
	)
	if remote != "" {
		models, err := client.FetchModels(ctx, remote)
		if err != nil {
			return fmt.Errorf("fetch models: %w", err)
		}
		if cat, err = registry.NewCatalog(models...); err != nil {
			return err
		}
		conn, err := client.Dial(ctx, remote, log)
		if err != nil {
			return err
		}
		defer conn.Close()
		be = conn
		close(done)
	} else {
		if cat, err = buildCatalog(cfg, log); err != nil {
			return err
		}
		exec, err := buildExecutor(cfg, cat, log)
		if err != nil {
			return err
		}
		be = exec
		go func() {
			defer close(done)
			if err := exec.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("executor stopped")
			}
		}()
	}

	store, err := prefs.Open(cfg.PrefsPath)
	if err != nil {
		log.Warn().Err(err).Msg("open preferences; selection will not persist")
		store = prefs.NewMemoryStore()
	}
	defer store.Close()

	feed := tui.NewFeed()
	defer feed.Close()
	orch := orchestrator.New(orchestrator.Options{
		Sender:        be,
		Catalog:       cat,
		Prefs:         store,
		Logger:        log,
		OnChange:      feed.OnChange,
		OnSelectModel: feed.OnSelectModel,
	})
	go func() {
		if err := orch.Init(ctx); err != nil {
			log.Error().Err(err).Msg("init session")
			return
		}
		_ = orch.Run(ctx, be.Events())
	}()

	prog := tea.NewProgram(tui.New(orch, cat, feed), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = prog.Run()
	cancel()
	<-done
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

