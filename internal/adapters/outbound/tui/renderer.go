package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/abdidvp/apiweave/internal/domain"
)

// ── warm palette ──
var (
	accent  = lipgloss.Color("#D97706") // amber
	fg      = lipgloss.Color("#E8E6E3") // warm light gray
	dim     = lipgloss.Color("#6B7280") // muted gray
	faint   = lipgloss.Color("#3F3F46") // very dim
	success = lipgloss.Color("#22C55E") // green
	danger  = lipgloss.Color("#EF4444") // red
	warning = lipgloss.Color("#F59E0B") // amber-yellow
	info    = lipgloss.Color("#8B949E") // soft blue-gray
	lime    = lipgloss.Color("#A3E635")
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Align(lipgloss.Center)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 4).
			Align(lipgloss.Center).
			Width(68)

	dimStyle           = lipgloss.NewStyle().Foreground(dim)
	faintStyle         = lipgloss.NewStyle().Foreground(faint)
	passStyle          = lipgloss.NewStyle().Foreground(success)
	failStyle          = lipgloss.NewStyle().Foreground(danger)
	warnStyle          = lipgloss.NewStyle().Foreground(warning)
	infoStyle          = lipgloss.NewStyle().Foreground(info)
	titleStyle         = lipgloss.NewStyle().Bold(true).Foreground(fg)
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	hintStyle          = lipgloss.NewStyle().Foreground(dim).Italic(true)
	separatorLine      = faintStyle.Render(strings.Repeat("─", 64))
)

// RenderPlan formats an integration plan for terminal output.
func RenderPlan(p domain.IntegrationPlan) string {
	var b strings.Builder

	// ── Header ──
	title := headerStyle.Render(p.Name)
	summary := dimStyle.Render(fmt.Sprintf("%s  ·  %s  ·  threshold %.2f",
		p.Summary.Direction, p.Summary.Trigger, p.Threshold))
	counts := passStyle.Render(fmt.Sprintf("%d flows", p.Summary.FlowCount)) + "  " +
		warnStyle.Render(fmt.Sprintf("%d backlog", p.Summary.BacklogCount))
	if p.Summary.OverrideCount > 0 {
		counts += "  " + infoStyle.Render(fmt.Sprintf("%d overrides", p.Summary.OverrideCount))
	}
	b.WriteString(boxStyle.Render(title + "\n" + summary + "\n\n" + counts))
	b.WriteString("\n\n")

	// ── Flow steps ──
	section(&b, "Flow Steps", len(p.FlowSteps))
	if len(p.FlowSteps) == 0 {
		b.WriteString("    " + dimStyle.Render("No mapping reached the threshold.") + "\n")
	}
	for i, s := range p.FlowSteps {
		renderStep(&b, i+1, s)
	}

	// ── Backlog ──
	b.WriteString("\n")
	section(&b, "Backlog", len(p.Backlog))
	if len(p.Backlog) == 0 {
		b.WriteString("    " + passStyle.Render("Nothing in the backlog.") + "\n")
	}
	for _, e := range p.Backlog {
		fmt.Fprintf(&b, "    %s %s  %s\n", warnStyle.Render("●"), titleStyle.Render(e.EntityPair), dimStyle.Render(e.Reason))
		fmt.Fprintf(&b, "      %s\n", hintStyle.Render(e.SuggestedAction))
	}

	// ── Risks ──
	b.WriteString("\n")
	section(&b, "Risks", len(p.Risks))
	for _, r := range p.Risks {
		fmt.Fprintf(&b, "    %s %s\n", failStyle.Render("!"), r)
	}

	// ── Implementation tasks ──
	if len(p.ImplementationTasks) > 0 {
		b.WriteString("\n")
		section(&b, "Implementation Tasks", len(p.ImplementationTasks))
		for i, task := range p.ImplementationTasks {
			fmt.Fprintf(&b, "    %s %s\n", dimStyle.Render(fmt.Sprintf("%d.", i+1)), task)
		}
	}

	b.WriteString("\n")
	b.WriteString("  " + separatorLine + "\n")
	b.WriteString("  " + faintStyle.Render("digest "+shortDigest(p.Digest)) + "\n")
	return b.String()
}

func renderStep(b *strings.Builder, n int, s domain.FlowStep) {
	marker := ""
	if s.Overridden {
		marker = "  " + warnStyle.Render("override")
	}
	fmt.Fprintf(b, "    %s %s  %s%s\n",
		dimStyle.Render(fmt.Sprintf("%d.", n)),
		titleStyle.Render(s.EntityPair),
		confidenceText(s.Confidence),
		marker,
	)
	fmt.Fprintf(b, "       %s\n", dimStyle.Render(fmt.Sprintf("%s via %s, owner %s, retry %dx %s",
		s.Direction, s.Trigger, s.Ownership, s.ErrorRetry.MaxAttempts, s.ErrorRetry.Backoff)))
	fmt.Fprintf(b, "       %s\n", faintStyle.Render(fmt.Sprintf("auth %s → %s", s.AuthStrategy.Source, s.AuthStrategy.Target)))
	if s.IdempotencyRequired {
		fmt.Fprintf(b, "       %s\n", infoStyle.Render("idempotent writes required"))
	}
	if len(s.Observability.Metrics) > 0 {
		watch := "metrics " + strings.Join(s.Observability.Metrics, ", ")
		if s.Observability.Owner != "" {
			watch += ", owner " + s.Observability.Owner
		}
		fmt.Fprintf(b, "       %s\n", faintStyle.Render(watch))
	}
	for i, step := range s.Steps {
		fmt.Fprintf(b, "       %s %s\n", dimStyle.Render(fmt.Sprintf("%c", 'a'+rune(i))), step)
	}
	for _, t := range s.Transformations {
		line := fmt.Sprintf("       %s → %s", t.SourceField, t.TargetField)
		if t.Kind == domain.TransformConvert {
			line += "  " + warnStyle.Render(t.Note)
		}
		b.WriteString(line + "\n")
	}
}

func section(b *strings.Builder, title string, n int) {
	fmt.Fprintf(b, "  %s %s\n", sectionHeaderStyle.Render(title), dimStyle.Render(fmt.Sprintf("(%d)", n)))
}

// RenderHistory formats plan history for terminal output.
func RenderHistory(entries []domain.PlanEntry) string {
	if len(entries) == 0 {
		return "  " + dimStyle.Render("No plan history found.") + "\n"
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("  " + titleStyle.Render("Plan History") + "\n")
	b.WriteString("  " + faintStyle.Render(strings.Repeat("─", 50)) + "\n\n")

	for i, e := range entries {
		hash := e.CommitHash
		if len(hash) > 7 {
			hash = hash[:7]
		}
		if hash == "" {
			hash = "·······"
		}
		date := e.Timestamp
		if len(date) > 10 {
			date = date[:10]
		}

		line := fmt.Sprintf("  %s  %s  %s  %s",
			dimStyle.Render(date),
			faintStyle.Render(hash),
			shortDigest(e.Digest),
			passStyle.Render(fmt.Sprintf("%d flows", e.FlowSteps))+" "+warnStyle.Render(fmt.Sprintf("%d backlog", e.BacklogItems)),
		)
		if i > 0 {
			diff := e.FlowSteps - entries[i-1].FlowSteps
			if diff > 0 {
				line += "  " + passStyle.Render(fmt.Sprintf("↑%d", diff))
			} else if diff < 0 {
				line += "  " + failStyle.Render(fmt.Sprintf("↓%d", -diff))
			}
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func confidenceText(c float64) string {
	return lipgloss.NewStyle().Bold(true).Foreground(confidenceColor(c)).Render(fmt.Sprintf("%.2f", c))
}

func confidenceColor(c float64) lipgloss.Color {
	switch {
	case c >= 0.8:
		return success
	case c >= 0.6:
		return lime
	case c >= 0.4:
		return warning
	default:
		return danger
	}
}

func coloredBar(c float64, width int) string {
	filled := max(0, min(int(c*float64(width)), width))
	filledStr := lipgloss.NewStyle().Foreground(confidenceColor(c)).Render(strings.Repeat("█", filled))
	emptyStr := lipgloss.NewStyle().Foreground(faint).Render(strings.Repeat("░", width-filled))
	return filledStr + emptyStr
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
