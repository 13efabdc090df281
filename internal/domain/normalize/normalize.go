// Package normalize turns an extraction into the canonical, deterministically
// ordered view every later stage reads.
package normalize

import (
	"sort"
	"strings"

	"github.com/abdidvp/apiweave/internal/domain"
	"github.com/abdidvp/apiweave/internal/domain/contract"
)

// UnknownType replaces a missing field type.
const UnknownType = "unknown"

// Normalize gates ext through the extracted_api contract and returns its
// canonical view for side. On violations the view is zero.
func Normalize(ext domain.Extraction, side domain.Side) (domain.NormalizedView, contract.Violations) {
	if side != domain.SideA && side != domain.SideB {
		var vs contract.Violations
		vs.Addf("side", contract.RuleEnum, "side must be A or B (got %q)", side)
		return domain.NormalizedView{}, vs
	}
	if vs := contract.Check(contract.KindExtractedAPI, ext, contract.Refs{Side: side}); !vs.Valid() {
		return domain.NormalizedView{}, vs
	}

	view := domain.NormalizedView{
		Side:       side,
		Title:      strings.TrimSpace(ext.Title),
		Entities:   make([]domain.Entity, 0, len(ext.Entities)),
		Operations: make([]domain.Operation, 0, len(ext.Operations)),
		Auth:       normalizeAuth(ext.Auth),
	}
	for _, e := range ext.Entities {
		view.Entities = append(view.Entities, normalizeEntity(e, side))
	}
	sort.Slice(view.Entities, func(i, j int) bool {
		return view.Entities[i].Name < view.Entities[j].Name
	})

	for _, op := range ext.Operations {
		view.Operations = append(view.Operations, domain.Operation{
			Method:  strings.ToUpper(strings.TrimSpace(op.Method)),
			Path:    strings.TrimSpace(op.Path),
			Entity:  strings.TrimSpace(op.Entity),
			Summary: strings.TrimSpace(op.Summary),
		})
	}
	sort.Slice(view.Operations, func(i, j int) bool {
		a, b := view.Operations[i], view.Operations[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Method < b.Method
	})
	return view, nil
}

// Denormalize converts a view back into an extraction. Normalizing the result
// yields the same view.
func Denormalize(v domain.NormalizedView) domain.Extraction {
	ext := domain.Extraction{
		Title:      v.Title,
		Entities:   make([]domain.Entity, 0, len(v.Entities)),
		Operations: append([]domain.Operation(nil), v.Operations...),
		Auth:       v.Auth,
	}
	for _, e := range v.Entities {
		ext.Entities = append(ext.Entities, domain.Entity{
			Name:   e.Name,
			Side:   e.Side,
			Fields: append([]domain.Field{}, e.Fields...),
		})
	}
	return ext
}

func normalizeEntity(e domain.Entity, side domain.Side) domain.Entity {
	out := domain.Entity{
		Name:   strings.TrimSpace(e.Name),
		Side:   side,
		Fields: make([]domain.Field, 0, len(e.Fields)),
	}
	for _, f := range e.Fields {
		typ := strings.ToLower(strings.TrimSpace(f.Type))
		if typ == "" {
			typ = UnknownType
		}
		out.Fields = append(out.Fields, domain.Field{
			Name:        strings.TrimSpace(f.Name),
			Type:        typ,
			Required:    f.Required,
			Example:     f.Example,
			Format:      strings.TrimSpace(f.Format),
			Description: strings.TrimSpace(f.Description),
		})
	}
	sort.Slice(out.Fields, func(i, j int) bool {
		return out.Fields[i].Name < out.Fields[j].Name
	})
	return out
}

func normalizeAuth(a domain.AuthMetadata) domain.AuthMetadata {
	out := domain.AuthMetadata{
		Type:   strings.TrimSpace(a.Type),
		Scheme: strings.ToLower(strings.TrimSpace(a.Scheme)),
		In:     strings.ToLower(strings.TrimSpace(a.In)),
		Name:   strings.TrimSpace(a.Name),
	}
	if len(a.Scopes) > 0 {
		out.Scopes = append([]string(nil), a.Scopes...)
		sort.Strings(out.Scopes)
	}
	return out
}
