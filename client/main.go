package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/nathanieltooley/pokebattle/client/networking"
	"github.com/nathanieltooley/pokebattle/client/views/teamselect"
	"github.com/nathanieltooley/pokebattle/global"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type model struct {
	currentView tea.Model
}

func (m model) Init() tea.Cmd {
	return m.currentView.Init()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Disables the closing of the program when pressing ESC
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEscape {
		return m, nil
	}

	newView, cmd := m.currentView.Update(msg)
	m.currentView = newView

	return m, cmd
}

func (m model) View() string {
	return m.currentView.View()
}

func main() {
	config, err := global.LoadConfig(global.DefaultConfigLocation())
	if err != nil {
		config = global.DefaultConfig()
	}

	// The terminal belongs to the ui, so logs only go to the file
	logger, err := global.CreateLogger(config, nil, "client.log")
	if err != nil {
		logger = zerolog.Nop()
	}
	global.Init(logger)

	client := networking.NewClientFromEnv()
	log.Info().Int("userId", client.UserID()).Msg("Starting client")

	m := model{
		currentView: teamselect.NewModel(client),
	}

	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Fatal().Err(err).Msg("Error running program")
	}
}
