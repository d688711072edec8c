package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Zachkp/folio/internal/config"
	"github.com/Zachkp/folio/internal/logger"
	"github.com/Zachkp/folio/internal/tui"
	"github.com/Zachkp/folio/internal/welcome"
)

func newWelcomeCommand() *cobra.Command {
	var (
		dwell    time.Duration
		exitHold time.Duration
		catalog  string
	)
	cmd := &cobra.Command{
		Use:   "welcome",
		Short: "Play the welcome splash in the terminal",
		Long:  `Play the multilingual welcome splash in the terminal. Press enter or q to skip.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := logger.Init(&cfg.Logger, false); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			durations := welcome.Durations{Dwell: cfg.Welcome.Dwell, ExitHold: cfg.Welcome.ExitHold}
			if cmd.Flags().Changed("dwell") {
				durations.Dwell = dwell
			}
			if cmd.Flags().Changed("exit-hold") {
				durations.ExitHold = exitHold
			}
			if !cmd.Flags().Changed("catalog") {
				catalog = cfg.Welcome.Catalog
			}
			return runWelcome(catalog, durations)
		},
	}
	cmd.Flags().DurationVar(&dwell, "dwell", welcome.DefaultDurations.Dwell, "How long each greeting stays on screen")
	cmd.Flags().DurationVar(&exitHold, "exit-hold", welcome.DefaultDurations.ExitHold, "How long the last greeting lingers before the splash closes")
	cmd.Flags().StringVar(&catalog, "catalog", "", "Path to a TOML greeting catalog (default: built-in)")
	return cmd
}

func runWelcome(catalog string, durations welcome.Durations) error {
	greetings, err := welcome.LoadCatalogFile(catalog)
	if err != nil {
		return err
	}
	model, err := tui.NewModel(greetings, welcome.WithDurations(durations))
	if err != nil {
		return err
	}
	defer model.Dispose()

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("welcome: %w", err)
	}
	logger.Debug("welcome splash finished", "outcome", model.Outcome(), "greetings", len(greetings))
	return nil
}
