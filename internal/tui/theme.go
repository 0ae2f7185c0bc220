package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
)

type ThemeName string

const (
	ThemePorcelain ThemeName = "porcelain"
	ThemeMidnight  ThemeName = "midnight"
)

type Theme struct {
	Name ThemeName

	// Colors
	TextPrimary lipgloss.AdaptiveColor
	TextMuted   lipgloss.AdaptiveColor
	TextFaint   lipgloss.AdaptiveColor

	Accent   lipgloss.AdaptiveColor
	Error    lipgloss.AdaptiveColor
	Border   lipgloss.AdaptiveColor
	BorderHi lipgloss.AdaptiveColor

	// Styles
	TopBar      lipgloss.Style
	TopBarTitle lipgloss.Style
	TopBarMeta  lipgloss.Style
	Footer      lipgloss.Style
	InputBox    lipgloss.Style
	InputBoxF   lipgloss.Style
	Spinner     lipgloss.Style

	RoleYou lipgloss.Style
	RoleAI  lipgloss.Style
	RoleSys lipgloss.Style
	RoleErr lipgloss.Style

	StepBadge    lipgloss.Style
	VersionBadge lipgloss.Style
	Suggestion   lipgloss.Style

	ListItem lipgloss.Style
	ListSel  lipgloss.Style
}

func NewTheme() Theme {
	name := ThemeName(os.Getenv("AGENTUI_THEME"))
	if name == "" {
		name = ThemePorcelain
	}
	if os.Getenv("AGENTUI_NO_COLOR") == "1" {
		return buildTheme("no-color", palette{
			text:     lipgloss.AdaptiveColor{Light: "#000000", Dark: "#ffffff"},
			muted:    lipgloss.AdaptiveColor{Light: "#333333", Dark: "#dddddd"},
			faint:    lipgloss.AdaptiveColor{Light: "#555555", Dark: "#bbbbbb"},
			accent:   lipgloss.AdaptiveColor{Light: "#000000", Dark: "#ffffff"},
			errColor: lipgloss.AdaptiveColor{Light: "#000000", Dark: "#ffffff"},
			border:   lipgloss.AdaptiveColor{Light: "#555555", Dark: "#777777"},
			borderHi: lipgloss.AdaptiveColor{Light: "#000000", Dark: "#ffffff"},
		})
	}

	switch name {
	case ThemeMidnight:
		return buildTheme(ThemeMidnight, palette{
			text:     lipgloss.AdaptiveColor{Light: "#1a1b26", Dark: "#c0caf5"},
			muted:    lipgloss.AdaptiveColor{Light: "#414868", Dark: "#9aa5ce"},
			faint:    lipgloss.AdaptiveColor{Light: "#565f89", Dark: "#565f89"},
			accent:   lipgloss.AdaptiveColor{Light: "#2ac3de", Dark: "#7dcfff"},
			errColor: lipgloss.AdaptiveColor{Light: "#b3261e", Dark: "#f7768e"},
			border:   lipgloss.AdaptiveColor{Light: "#9aa5ce", Dark: "#3b4261"},
			borderHi: lipgloss.AdaptiveColor{Light: "#2ac3de", Dark: "#7dcfff"},
		})
	default:
		return buildTheme(ThemePorcelain, palette{
			text:     lipgloss.AdaptiveColor{Light: "#1d2433", Dark: "#f2f2f2"},
			muted:    lipgloss.AdaptiveColor{Light: "#4a5568", Dark: "#c7c7c7"},
			faint:    lipgloss.AdaptiveColor{Light: "#718096", Dark: "#9aa0a6"},
			accent:   lipgloss.AdaptiveColor{Light: "#2b6cb0", Dark: "#8ab4f8"},
			errColor: lipgloss.AdaptiveColor{Light: "#c53030", Dark: "#f28b82"},
			border:   lipgloss.AdaptiveColor{Light: "#a0aec0", Dark: "#4a4f57"},
			borderHi: lipgloss.AdaptiveColor{Light: "#2b6cb0", Dark: "#8ab4f8"},
		})
	}
}

type palette struct {
	text     lipgloss.AdaptiveColor
	muted    lipgloss.AdaptiveColor
	faint    lipgloss.AdaptiveColor
	accent   lipgloss.AdaptiveColor
	errColor lipgloss.AdaptiveColor
	border   lipgloss.AdaptiveColor
	borderHi lipgloss.AdaptiveColor
}

func buildTheme(name ThemeName, p palette) Theme {
	t := Theme{
		Name:        name,
		TextPrimary: p.text,
		TextMuted:   p.muted,
		TextFaint:   p.faint,
		Accent:      p.accent,
		Error:       p.errColor,
		Border:      p.border,
		BorderHi:    p.borderHi,
	}

	t.TopBar = lipgloss.NewStyle().Foreground(t.TextPrimary)
	t.TopBarTitle = lipgloss.NewStyle().Bold(true).Foreground(t.Accent)
	t.TopBarMeta = lipgloss.NewStyle().Foreground(t.TextMuted)
	t.Footer = lipgloss.NewStyle().Foreground(t.TextMuted)
	t.InputBox = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(t.Border).Padding(0, 1)
	t.InputBoxF = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(t.BorderHi).Padding(0, 1)
	t.Spinner = lipgloss.NewStyle().Bold(true).Foreground(t.Accent)

	t.RoleYou = lipgloss.NewStyle().Bold(true).Foreground(t.TextPrimary)
	t.RoleAI = lipgloss.NewStyle().Bold(true).Foreground(t.Accent)
	t.RoleSys = lipgloss.NewStyle().Foreground(t.TextMuted)
	t.RoleErr = lipgloss.NewStyle().Bold(true).Foreground(t.Error)

	t.StepBadge = lipgloss.NewStyle().Foreground(t.TextFaint)
	t.VersionBadge = lipgloss.NewStyle().Foreground(t.TextFaint)
	t.Suggestion = lipgloss.NewStyle().Foreground(t.TextMuted).Italic(true)

	t.ListItem = lipgloss.NewStyle().Foreground(t.TextPrimary)
	t.ListSel = lipgloss.NewStyle().Bold(true).Foreground(t.Accent)
	return t
}
