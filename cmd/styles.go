package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/schemacanvas/schemacanvas/internal/validation"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).BorderStyle(lipgloss.DoubleBorder()).BorderBottom(true).Padding(0, 1)
	headingStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func printReport(r *validation.Report) {
	if r.Valid() {
		fmt.Println(successStyle.Render("Validation: " + r.Status))
	} else {
		fmt.Println(errStyle.Render(fmt.Sprintf("Validation: %s (%d errors)", r.Status, len(r.Errors))))
	}
	for _, fe := range r.Errors {
		fmt.Printf("  %s %s %s\n", errStyle.Render("x"), highlightStyle.Render(fe.Path), fe.Message)
	}
	for _, fe := range r.Warnings {
		fmt.Printf("  %s %s %s\n", warnStyle.Render("!"), highlightStyle.Render(fe.Path), fe.Message)
	}
}
