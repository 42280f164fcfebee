// Package router keeps the stack of terminal UI screens.
package router

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rovshanmuradov/lp-hedge/internal/ui"
)

// Screen represents a screen that can be navigated to
type Screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Screen, tea.Cmd)
	View() string
	SetSize(width, height int)
}

// Factory builds the screen for a route.
type Factory func() Screen

// Router manages navigation between screens using a stack-based approach.
// The first screen is the root and is never popped.
type Router struct {
	stack  []Screen
	routes map[ui.Route]Factory
	width  int
	height int
}

// New creates a new router with the root screen
func New(root Screen) *Router {
	return &Router{
		stack:  []Screen{root},
		routes: make(map[ui.Route]Factory),
	}
}

// Register binds a route to a screen factory for RouterMsg navigation.
func (r *Router) Register(route ui.Route, f Factory) {
	r.routes[route] = f
}

// Init initializes the root screen
func (r *Router) Init() tea.Cmd {
	return r.Current().Init()
}

// Update processes messages and updates the current screen
func (r *Router) Update(msg tea.Msg) (*Router, tea.Cmd) {
	switch msg := msg.(type) {
	case ui.RouterMsg:
		return r, r.navigate(msg.To)

	case tea.WindowSizeMsg:
		r.SetSize(msg.Width, msg.Height)
		return r, nil

	case tea.KeyMsg:
		if msg.String() == "esc" && r.CanGoBack() {
			return r, r.Pop()
		}
	}

	current, cmd := r.Current().Update(msg)
	r.stack[len(r.stack)-1] = current
	return r, cmd
}

func (r *Router) navigate(route ui.Route) tea.Cmd {
	f, ok := r.routes[route]
	if !ok {
		return r.Clear()
	}
	return r.Push(f())
}

// View renders the current screen
func (r *Router) View() string {
	return r.Current().View()
}

// SetSize sets the size for the router and current screen
func (r *Router) SetSize(width, height int) {
	r.width = width
	r.height = height
	r.Current().SetSize(width, height)
}

// Push adds a new screen to the navigation stack
func (r *Router) Push(screen Screen) tea.Cmd {
	screen.SetSize(r.width, r.height)
	r.stack = append(r.stack, screen)
	return screen.Init()
}

// Pop removes the current screen from the stack. The root stays.
func (r *Router) Pop() tea.Cmd {
	if !r.CanGoBack() {
		return nil
	}
	r.stack = r.stack[:len(r.stack)-1]
	r.Current().SetSize(r.width, r.height)
	return nil
}

// Replace swaps the current screen, or pushes when only the root is left.
func (r *Router) Replace(screen Screen) tea.Cmd {
	if !r.CanGoBack() {
		return r.Push(screen)
	}
	screen.SetSize(r.width, r.height)
	r.stack[len(r.stack)-1] = screen
	return screen.Init()
}

// Clear removes all screens except the root
func (r *Router) Clear() tea.Cmd {
	if !r.CanGoBack() {
		return nil
	}
	r.stack = r.stack[:1]
	r.Current().SetSize(r.width, r.height)
	return nil
}

// Current returns the current screen
func (r *Router) Current() Screen {
	return r.stack[len(r.stack)-1]
}

// Depth returns the current navigation depth
func (r *Router) Depth() int {
	return len(r.stack)
}

// CanGoBack returns true if there are screens to go back to
func (r *Router) CanGoBack() bool {
	return len(r.stack) > 1
}
