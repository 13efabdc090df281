package tui

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/abdidvp/apiweave/internal/domain"
)

// RenderMappingResult formats a mapping result: a summary box, the entity
// mapping grid, unmapped entities and warnings.
func RenderMappingResult(r domain.MappingResult) string {
	var b strings.Builder
	s := r.OverallConfidence

	title := headerStyle.Render("Entity Mapping")
	sides := dimStyle.Render(fmt.Sprintf("%s  ↔  %s", sideTitle(r, domain.SideA), sideTitle(r, domain.SideB)))
	stats := fmt.Sprintf("%s  %s  %s",
		passStyle.Render(fmt.Sprintf("%d mapped", s.MappedEntities)),
		warnStyle.Render(fmt.Sprintf("%d unmapped", s.UnmappedEntities)),
		failStyle.Render(fmt.Sprintf("%d failed pairs", s.FailedPairs)),
	)
	mean := dimStyle.Render("mean confidence ") + coloredBar(s.Mean, 20) + " " + confidenceText(s.Mean)
	b.WriteString(boxStyle.Render(title + "\n" + sides + "\n\n" + stats + "\n" + mean))
	b.WriteString("\n\n")

	if len(r.EntityMappings) > 0 {
		b.WriteString(MappingTable(r))
		b.WriteString("\n")
	}

	if len(r.UnmappedEntities) > 0 {
		b.WriteString("\n")
		section(&b, "Unmapped", len(r.UnmappedEntities))
		for _, u := range r.UnmappedEntities {
			fmt.Fprintf(&b, "    %s %s %s  %s\n",
				warnStyle.Render("●"), u.Name, dimStyle.Render("("+string(u.Side)+")"), faintStyle.Render(u.Reason))
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n")
		section(&b, "Warnings", len(r.Warnings))
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "    %s %s\n", warningTag(w.Code), dimStyle.Render(w.Message))
		}
	}

	b.WriteString("\n")
	b.WriteString("  " + hintStyle.Render("Answer the questionnaire, then run `apiweave plan` to generate the integration plan."))
	b.WriteString("\n")
	return b.String()
}

// MappingTable renders one row per field mapping, grouped by entity pair.
func MappingTable(r domain.MappingResult) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Entity pair", "Confidence", "Source field", "Target field", "Field conf.", "Transformation"})
	for _, m := range r.EntityMappings {
		pair := m.Pair().String()
		if m.Ambiguous {
			pair += " (ambiguous)"
		}
		conf := fmt.Sprintf("%.2f", m.Confidence)
		if len(m.FieldMappings) == 0 {
			tw.AppendRow(table.Row{pair, conf, "-", "-", "-", ""})
		}
		for i, fm := range m.FieldMappings {
			if i > 0 {
				pair, conf = "", ""
			}
			tw.AppendRow(table.Row{pair, conf, fm.SourceField, fm.TargetField, fmt.Sprintf("%.2f", fm.Confidence), fm.Transformation})
		}
		tw.AppendSeparator()
	}
	return tw.Render()
}

// RenderView formats a normalized view as an entity/field table.
func RenderView(v domain.NormalizedView) string {
	var b strings.Builder
	name := v.Title
	if name == "" {
		name = "API " + string(v.Side)
	}
	fmt.Fprintf(&b, "  %s %s\n\n", titleStyle.Render(name), dimStyle.Render(fmt.Sprintf("(side %s, auth %s)", v.Side, v.Auth.Strategy())))

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Entity", "Field", "Type", "Required", "Format"})
	for _, e := range v.Entities {
		entity := e.Name
		if len(e.Fields) == 0 {
			tw.AppendRow(table.Row{entity, "-", "", "", ""})
		}
		for i, f := range e.Fields {
			if i > 0 {
				entity = ""
			}
			tw.AppendRow(table.Row{entity, f.Name, f.Type, f.Required, f.Format})
		}
		tw.AppendSeparator()
	}
	b.WriteString(tw.Render())
	b.WriteString("\n")

	if len(v.Operations) > 0 {
		b.WriteString("\n")
		section(&b, "Operations", len(v.Operations))
		for _, op := range v.Operations {
			fmt.Fprintf(&b, "    %s %s\n", op.Key(), faintStyle.Render(op.Entity))
		}
	}
	return b.String()
}

// RenderViolations formats a contract check outcome.
func RenderViolations(kind string, vs domain.Violations) string {
	if vs.Valid() {
		return fmt.Sprintf("  %s %s\n", passStyle.Render("✓"), fmt.Sprintf("%s: valid", kind))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  %s %s %s\n\n", failStyle.Render("✗"), titleStyle.Render(kind), dimStyle.Render(fmt.Sprintf("(%d violations)", len(vs))))
	for _, v := range vs {
		field := v.Field
		if field == "" {
			field = "$"
		}
		fmt.Fprintf(&b, "    %s %s  %s\n", failStyle.Render(padRight(v.Rule, 12)), field, dimStyle.Render(v.Message))
	}
	return b.String()
}

func warningTag(code string) string {
	switch code {
	case domain.WarnExternalServiceFailure, domain.WarnContractViolation:
		return failStyle.Render("error")
	case domain.WarnAmbiguousMapping:
		return warnStyle.Render("warn ")
	default:
		return infoStyle.Render("info ")
	}
}

func sideTitle(r domain.MappingResult, s domain.Side) string {
	if t := r.Side(s).Title; t != "" {
		return t
	}
	return "API " + string(s)
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
