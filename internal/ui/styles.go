// Package ui holds terminal styling shared by the dm commands.
package ui

import "fmt"

// ANSI256 color codes.
const (
	colorAccent   = 74  // blue
	colorCmd      = 250 // light gray
	colorMuted    = 245 // medium gray
	colorFavorite = 204 // pink
	colorMatch    = 114 // green
	colorWarn     = 214 // orange
	colorError    = 203 // red
)

var noColor bool

func paint(code int, s string) string {
	if noColor || s == "" {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return paint(colorAccent, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return paint(colorCmd, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return paint(colorMuted, s) }

// RenderFavorite marks favorited dogs.
func RenderFavorite(s string) string { return paint(colorFavorite, s) }

// RenderMatch highlights the matched dog.
func RenderMatch(s string) string { return paint(colorMatch, s) }

// RenderWarn is used for dismissable notices.
func RenderWarn(s string) string { return paint(colorWarn, s) }

// RenderError is used for command failures.
func RenderError(s string) string { return paint(colorError, s) }

// FavoriteMark is the glyph shown next to favorited dogs, or "" if not one.
func FavoriteMark(fav bool) string {
	if !fav {
		return ""
	}
	if noColor {
		return "*"
	}
	return RenderFavorite("♥")
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

// ColorEnabled reports whether styling is on.
func ColorEnabled() bool { return !noColor }
