/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: style.go
Description: Terminal rendering for the analyzer commands. Summary cards, layer tables and
suggestion lists styled with lipgloss.
*/

package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/kleascm/gcode-analyzer/pkg/core"
	"github.com/kleascm/gcode-analyzer/pkg/optimize"
	"github.com/kleascm/gcode-analyzer/pkg/reporting"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)

	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Width(16)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Bold(true)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	badStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// scoreStyle colors a profile score
func scoreStyle(score int) lipgloss.Style {
	switch {
	case score >= 90:
		return okStyle
	case score >= 75:
		return warnStyle
	default:
		return badStyle
	}
}

// impactStyle colors a suggestion impact
func impactStyle(impact optimize.Impact) lipgloss.Style {
	switch impact {
	case optimize.ImpactHigh:
		return badStyle
	case optimize.ImpactMedium:
		return warnStyle
	default:
		return dimStyle
	}
}

// RenderSummary draws the headline card of a report
func RenderSummary(report *reporting.Report) string {
	s := report.Summary
	row := func(label, value string) string {
		return labelStyle.Render(label) + valueStyle.Render(value)
	}

	slicer := s.Slicer
	if slicer == "" {
		slicer = "unknown"
	}
	rows := []string{
		row("Slicer", slicer),
		row("Score", scoreStyle(s.Score).Render(fmt.Sprintf("%d/100", s.Score))),
		row("Layers", fmt.Sprintf("%d", s.Layers)),
		row("Print time", s.PrintTime),
		row("Filament", fmt.Sprintf("%.2f g", s.FilamentWeight)),
		row("Infill", fmt.Sprintf("%s %.1f%%", s.Pattern, s.InfillDensity)),
		row("Layer height", fmt.Sprintf("%.3f mm", s.LayerHeight)),
		row("Nozzle", fmt.Sprintf("%.2f mm", s.NozzleDiameter)),
	}
	if s.Warnings > 0 {
		rows = append(rows, row("Warnings", warnStyle.Render(fmt.Sprintf("%d", s.Warnings))))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(report.Source),
		cardStyle.Render(strings.Join(rows, "\n")),
	)
}

// RenderLayers draws one table row per layer. Anomalous layers are highlighted.
func RenderLayers(result *core.Result) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(result.Source))
	b.WriteString("\n")
	b.WriteString(headerStyle.Render(fmt.Sprintf("%5s %8s %8s %8s %12s %10s %10s  %-12s %7s",
		"#", "Z", "Height", "Cmds", "Volume mm³", "Travel mm", "Time s", "Pattern", "Infill")))
	b.WriteString("\n")

	if result.Analysis == nil || len(result.Analysis.Layers) == 0 {
		b.WriteString(dimStyle.Render("no layers"))
		b.WriteString("\n")
		return b.String()
	}

	for _, l := range result.Analysis.Layers {
		line := fmt.Sprintf("%5d %8.3f %8.3f %8d %12.2f %10.1f %10.1f  %-12s %6.1f%%",
			l.Index, l.Z, l.Thickness, l.CommandCount, l.ExtrusionVolume,
			l.TravelDistance, l.PrintTime, l.Pattern, l.InfillDensity)
		if l.Anomalous {
			line = badStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// RenderSuggestions lists suggestions at or above the minimum impact
func RenderSuggestions(source string, suggestions []optimize.Suggestion, minImpact optimize.Impact) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(source))
	b.WriteString("\n")

	shown := 0
	for _, s := range suggestions {
		if impactRank(s.Impact) < impactRank(minImpact) {
			continue
		}
		shown++
		b.WriteString(fmt.Sprintf("%s %s %s\n",
			impactStyle(s.Impact).Render(fmt.Sprintf("[%s]", s.Impact)),
			headerStyle.Render(s.Category),
			s.Description))
		b.WriteString(dimStyle.Render(fmt.Sprintf("    saves %.1f min, %.1f g  %s",
			s.PotentialTimeSaving, s.PotentialMaterialSaving, s.Implementation)))
		b.WriteString("\n")
	}
	if shown == 0 {
		b.WriteString(okStyle.Render("No suggestions, the print profile looks well tuned."))
		b.WriteString("\n")
	}
	return b.String()
}

func impactRank(i optimize.Impact) int {
	switch i {
	case optimize.ImpactHigh:
		return 2
	case optimize.ImpactMedium:
		return 1
	default:
		return 0
	}
}
