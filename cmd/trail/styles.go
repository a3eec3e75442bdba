package main

import "github.com/charmbracelet/lipgloss"

var (
	answerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4")).
			Bold(true)

	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1D3")).
			Bold(true)
)
