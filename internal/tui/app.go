package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/FILM6912/Agent-UI-sub001/internal/app"
)

// Navigator bridges controller navigation side effects into the bubbletea
// event stream.
type Navigator struct {
	events chan<- tea.Msg
}

func (n *Navigator) GoToSession(id string) {
	n.push(navChatMsg{sessionID: id})
}

func (n *Navigator) GoToSessionList() {
	n.push(navListMsg{})
}

func (n *Navigator) push(msg tea.Msg) {
	select {
	case n.events <- msg:
	default:
		// Drop if the UI can't keep up; the next refresh re-reads state.
	}
}

// Run wires the registry, controller and model together and blocks until
// the user quits.
func Run(registry *app.SessionRegistry, provider app.Provider, logger *app.Logger, cfg app.Config) error {
	events := make(chan tea.Msg, 256)

	nav := &Navigator{events: events}
	controller := app.NewController(registry, provider, nav, logger, cfg.Model, cfg.Language)

	// Open on the most recent session.
	if sessions := registry.List(); len(sessions) > 0 {
		controller.SetActiveSession(sessions[0].ID)
	}

	registry.SetObserver(func(sessionID string) {
		select {
		case events <- refreshMsg{sessionID: sessionID}:
		default:
		}
	})

	model := NewModel(controller, registry, events, cfg.StoreRoot)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
