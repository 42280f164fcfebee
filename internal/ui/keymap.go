package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines keyboard shortcuts for the application
type KeyMap struct {
	// Global navigation
	Quit key.Binding
	Back key.Binding
	Help key.Binding

	// Form navigation
	NextField key.Binding
	PrevField key.Binding
	NextAsset key.Binding
	PrevAsset key.Binding

	// Calculator
	Compute key.Binding
	Refresh key.Binding
	Reset   key.Binding

	// Curve
	Export     key.Binding
	ToggleLogs key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q/ctrl+c", "quit"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab/↓", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab/↑", "prev field"),
		),
		NextAsset: key.NewBinding(
			key.WithKeys("right", "]"),
			key.WithHelp("→", "next asset"),
		),
		PrevAsset: key.NewBinding(
			key.WithKeys("left", "["),
			key.WithHelp("←", "prev asset"),
		),
		Compute: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "calculate"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh spot"),
		),
		Reset: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "reset inputs"),
		),
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export"),
		),
		ToggleLogs: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "toggle logs"),
		),
	}
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Compute, k.Refresh, k.Back, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextField, k.PrevField, k.NextAsset, k.PrevAsset},
		{k.Compute, k.Refresh, k.Reset},
		{k.Export, k.ToggleLogs},
		{k.Back, k.Help, k.Quit},
	}
}

// ContextualHelp returns the bindings relevant to a route.
func (k KeyMap) ContextualHelp(route Route) []key.Binding {
	switch route {
	case RouteCalculator:
		return []key.Binding{k.PrevAsset, k.NextAsset, k.NextField, k.Compute, k.Refresh, k.ToggleLogs, k.Quit}
	case RouteCurve:
		return []key.Binding{k.Export, k.ToggleLogs, k.Back, k.Quit}
	default:
		return k.ShortHelp()
	}
}
