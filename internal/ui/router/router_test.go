package router

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/lp-hedge/internal/ui"
)

type fakeScreen struct {
	name          string
	inits         int
	width, height int
	msgs          []tea.Msg
}

func (f *fakeScreen) Init() tea.Cmd {
	f.inits++
	return nil
}

func (f *fakeScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	f.msgs = append(f.msgs, msg)
	return f, nil
}

func (f *fakeScreen) View() string { return f.name }

func (f *fakeScreen) SetSize(w, h int) { f.width, f.height = w, h }

func TestPushPopKeepsRoot(t *testing.T) {
	root := &fakeScreen{name: "root"}
	r := New(root)
	r.SetSize(80, 24)

	child := &fakeScreen{name: "child"}
	r.Push(child)
	assert.Equal(t, 2, r.Depth())
	assert.Equal(t, "child", r.View())
	assert.Equal(t, 1, child.inits)
	assert.Equal(t, 80, child.width)

	r.Pop()
	assert.Equal(t, "root", r.View())
	r.Pop()
	assert.Equal(t, 1, r.Depth())
	assert.False(t, r.CanGoBack())
}

func TestEscGoesBack(t *testing.T) {
	root := &fakeScreen{name: "root"}
	r := New(root)
	r.Push(&fakeScreen{name: "child"})

	r.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, "root", r.View())

	// On the root esc reaches the screen.
	r.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.Len(t, root.msgs, 1)
}

func TestRouterMsgUsesFactories(t *testing.T) {
	r := New(&fakeScreen{name: "root"})
	r.Register(ui.RouteCurve, func() Screen { return &fakeScreen{name: "curve"} })

	_, cmd := r.Update(ui.RouterMsg{To: ui.RouteCurve})
	assert.Nil(t, cmd)
	assert.Equal(t, "curve", r.View())

	r.Update(ui.RouterMsg{To: ui.RouteCalculator})
	assert.Equal(t, "root", r.View())
}

func TestReplaceAndResize(t *testing.T) {
	root := &fakeScreen{name: "root"}
	r := New(root)
	r.Replace(&fakeScreen{name: "a"})
	r.Replace(&fakeScreen{name: "b"})
	assert.Equal(t, 2, r.Depth())
	assert.Equal(t, "b", r.View())

	r.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	r.Clear()
	assert.Equal(t, 100, root.width)
	assert.Equal(t, 40, root.height)
}
