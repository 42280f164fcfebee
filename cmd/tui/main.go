package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-hedge/internal/app"
	"github.com/rovshanmuradov/lp-hedge/internal/logger"
	"github.com/rovshanmuradov/lp-hedge/internal/ui"
	"github.com/rovshanmuradov/lp-hedge/internal/ui/router"
	"github.com/rovshanmuradov/lp-hedge/internal/ui/screen"
)

// AppModel represents the main TUI application model
type AppModel struct {
	router   *router.Router
	services ui.ServiceProvider
	logBuf   *logger.LogBuffer
	keys     ui.KeyMap
	width    int
	height   int
}

// NewAppModel creates a new application model
func NewAppModel(services ui.ServiceProvider, logBuf *logger.LogBuffer) *AppModel {
	return &AppModel{
		router:   router.New(screen.NewCalculatorScreen(services, logBuf)),
		services: services,
		logBuf:   logBuf,
		keys:     ui.DefaultKeyMap(),
	}
}

// Init initializes the application
func (m *AppModel) Init() tea.Cmd {
	return m.router.Init()
}

// Update handles application-level updates
func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}

	case ui.CurveMsg:
		// The calculator clears its busy state first, then the chart opens.
		var cmd tea.Cmd
		m.router, cmd = m.router.Update(msg)
		if msg.Err != nil || msg.Curve == nil {
			return m, cmd
		}
		return m, tea.Batch(cmd, m.router.Push(screen.NewCurveScreen(m.services, msg.Asset, msg.Curve, m.logBuf)))
	}

	var cmd tea.Cmd
	m.router, cmd = m.router.Update(msg)
	return m, cmd
}

// View renders the application
func (m *AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	return m.router.View()
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Logs go to the buffer so the alt screen stays clean.
	logBuf := logger.NewLogBuffer(500)
	a, err := app.New(rootCtx, app.Options{ConfigPath: *configPath, LogBuffer: logBuf})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Close(ctx)
	}()

	a.Logger.Info("Starting LP hedge TUI")

	program := tea.NewProgram(
		NewAppModel(ui.NewAppServiceProvider(rootCtx, a), logBuf),
		tea.WithAltScreen(),
		tea.WithContext(rootCtx),
	)

	if _, err := program.Run(); err != nil && rootCtx.Err() == nil {
		a.Logger.Error("TUI application failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "TUI failed: %v\n", err)
	}
	a.Logger.Info("Shutting down TUI application")
}
