package ui

import (
	"github.com/rovshanmuradov/lp-hedge/internal/hedge"
	"github.com/rovshanmuradov/lp-hedge/internal/pricefeed"
)

// Tea message types for UI communication

// Route identifies a screen.
type Route int

const (
	RouteCalculator Route = iota
	RouteCurve
)

func (r Route) String() string {
	switch r {
	case RouteCalculator:
		return "calculator"
	case RouteCurve:
		return "curve"
	default:
		return "unknown"
	}
}

// RouterMsg represents navigation between screens
type RouterMsg struct {
	To Route
}

// SpotMsg carries the result of a spot price lookup.
type SpotMsg struct {
	Asset string
	Quote pricefeed.Quote
	Err   error
}

// CurveMsg carries a finished sweep.
type CurveMsg struct {
	Asset string
	Curve *hedge.Curve
	Err   error
}

// ExportedMsg reports where a curve was written.
type ExportedMsg struct {
	Path string
	Err  error
}

// ErrorMsg represents error conditions
type ErrorMsg struct {
	Error error
	Title string
}
