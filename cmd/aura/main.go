package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"aura/cmd/aura/chat"
	"aura/internal/backend"
	"aura/internal/config"
	"aura/internal/logging"
)

var (
	// Global flags
	verbose    bool
	cfgPath    string
	backendURL string

	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "aura",
	Short: "aura - terminal companion for the Aura wellness service",
	Long: `aura is a terminal client for the Aura multi-agent wellness service.

It connects to the agent backend (Kai for screening, Elara for conversation,
Vero for resources) and keeps your conversation history on your machine.

Run without arguments to start the interactive client.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The interactive UI logs to a file instead of the terminal.
		if cmd.CalledAs() == "aura" {
			return nil
		}
		var err error
		logger, err = logging.New(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive()
	},
}

// statusCmd reports the resolved configuration and backend reachability.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show resolved configuration and check the backend",
	RunE:  runStatus,
}

// configInitCmd writes a starter configuration file.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgPath
		if path == "" {
			path = config.DefaultPath()
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

func loadConfig() (config.Config, string, error) {
	path := cfgPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, path, err
	}
	if backendURL != "" {
		cfg.Backend.URL = backendURL
	}
	return cfg, path, nil
}

func runInteractive() error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	fileLogger, err := logging.NewFile(cfg.Logging.File, verbose || cfg.Logging.Verbose)
	if err != nil {
		fileLogger = zap.NewNop()
	}
	defer func() { _ = fileLogger.Sync() }()

	model, err := chat.New(cfg, path, fileLogger)
	if err != nil {
		return err
	}

	// Live-reload settings while the UI runs.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if watcher, werr := config.NewWatcher(path, fileLogger, model.ReloadConfig); werr != nil {
		fileLogger.Debug("config watcher unavailable", zap.Error(werr))
	} else if serr := watcher.Start(ctx); serr != nil {
		fileLogger.Debug("config watcher failed to start", zap.Error(serr))
	} else {
		defer watcher.Stop()
	}

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("config:      %s\n", path)
	fmt.Printf("backend:     %s\n", cfg.Backend.URL)
	fmt.Printf("transcripts: %s\n", cfg.Transcript.Adapter)
	fmt.Printf("theme:       %s\n", cfg.UI.Theme)

	client := backend.NewClient(backend.ClientConfig{
		BaseURL: cfg.Backend.URL,
		Timeout: 5 * time.Second,
		Logger:  logger,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Any HTTP response at all means the service is up, even an error about
	// the probe user.
	_, err = client.DailyTip(ctx, "status-probe")
	var apiErr *backend.APIError
	switch {
	case err == nil, errors.As(err, &apiErr):
		fmt.Println("backend:     reachable")
	default:
		fmt.Printf("backend:     unreachable (%v)\n", err)
	}
	return nil
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "override the backend URL")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(statusCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
