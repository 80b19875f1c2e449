package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/policywatch/internal/app"
	"github.com/nhle/policywatch/internal/logging"
	"github.com/nhle/policywatch/internal/model"
	"github.com/nhle/policywatch/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "policywatch: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := model.DefaultConfigPath()
	cfg, err := model.LoadConfig(cfgPath)
	if err != nil {
		return err
	}

	dataDir := model.DefaultDataDir()
	logger, err := logging.New(dataDir, os.Getenv("POLICYWATCH_DEBUG") != "")
	if err != nil {
		return err
	}
	defer logger.Sync()

	// First run: materialize the defaults so users have a file to edit.
	if _, statErr := os.Stat(cfgPath); errors.Is(statErr, os.ErrNotExist) {
		if saveErr := model.SaveConfig(cfgPath, cfg); saveErr != nil {
			logger.Warn("writing default config", zap.Error(saveErr))
		}
	}

	s, err := store.NewSQLiteStore(filepath.Join(dataDir, "policywatch.db"))
	if err != nil {
		return err
	}
	defer s.Close()

	p := tea.NewProgram(app.New(cfg, s, logger), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}
