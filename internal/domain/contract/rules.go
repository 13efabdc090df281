package contract

import (
	"fmt"
	"strings"

	"github.com/abdidvp/apiweave/internal/domain"
)

// Accessors used by cross rules. They return zero values on any shape
// mismatch; structural problems are already reported by the walk.

func objectAt(v any) map[string]any {
	m, _ := asObject(v)
	return m
}

func arrayAt(m map[string]any, key string) []any {
	if key == "" {
		return nil
	}
	a, _ := m[key].([]any)
	return a
}

func stringAt(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func numberAt(m map[string]any, key string) (float64, bool) {
	return toFloat(m[key])
}

func boolAt(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func index(path string, i int) string { return fmt.Sprintf("%s[%d]", path, i) }

func uniqueEntityNames() CrossRule {
	return CrossRule{Name: "unique_entity_names", Check: func(doc any, vs *Violations) {
		seen := make(map[string]int)
		for i, e := range arrayAt(objectAt(doc), "entities") {
			name := strings.TrimSpace(stringAt(objectAt(e), "name"))
			if name == "" {
				continue
			}
			if first, dup := seen[name]; dup {
				vs.Addf(index("entities", i)+".name", RuleUnique,
					"duplicate entity %q (first declared at entities[%d])", name, first)
				continue
			}
			seen[name] = i
		}
	}}
}

func uniqueFieldNames() CrossRule {
	return CrossRule{Name: "unique_field_names", Check: func(doc any, vs *Violations) {
		for i, e := range arrayAt(objectAt(doc), "entities") {
			entity := objectAt(e)
			seen := make(map[string]bool)
			for j, f := range arrayAt(entity, "fields") {
				name := strings.TrimSpace(stringAt(objectAt(f), "name"))
				if name == "" {
					continue
				}
				if seen[name] {
					vs.Addf(fmt.Sprintf("entities[%d].fields[%d].name", i, j), RuleUnique,
						"duplicate field %q in entity %q", name, stringAt(entity, "name"))
					continue
				}
				seen[name] = true
			}
		}
	}}
}

func entitySides(want domain.Side) CrossRule {
	return CrossRule{Name: "entity_sides", Check: func(doc any, vs *Violations) {
		for i, e := range arrayAt(objectAt(doc), "entities") {
			raw := stringAt(objectAt(e), "side")
			if raw == "" {
				continue
			}
			side, err := domain.ParseSide(raw)
			if err != nil {
				vs.Add(index("entities", i)+".side", RuleEnum, err.Error())
				continue
			}
			if want != "" && side != want {
				vs.Addf(index("entities", i)+".side", RuleSide,
					"entity declares side %s but the extraction is for side %s", side, want)
			}
		}
	}}
}

func uniqueOperations() CrossRule {
	return CrossRule{Name: "unique_operations", Check: func(doc any, vs *Violations) {
		seen := make(map[string]bool)
		for i, o := range arrayAt(objectAt(doc), "operations") {
			op := objectAt(o)
			key := strings.ToUpper(stringAt(op, "method")) + " " + stringAt(op, "path")
			if strings.TrimSpace(key) == "" {
				continue
			}
			if seen[key] {
				vs.Addf(index("operations", i), RuleUnique, "duplicate operation %q", key)
				continue
			}
			seen[key] = true
		}
	}}
}

func uniqueEntityMappings() CrossRule {
	return CrossRule{Name: "unique_entity_mappings", Check: func(doc any, vs *Violations) {
		seen := make(map[string]bool)
		for i, m := range arrayAt(objectAt(doc), "entityMappings") {
			em := objectAt(m)
			pair := domain.EntityPair{Source: stringAt(em, "sourceEntity"), Target: stringAt(em, "targetEntity")}
			if seen[pair.String()] {
				vs.Addf(index("entityMappings", i), RuleUnique, "duplicate entity mapping %s", pair)
				continue
			}
			seen[pair.String()] = true
		}
	}}
}

// uniqueSourceFields rejects a source field mapped twice inside one entity
// mapping. An empty listKey means the document itself is the entity mapping.
func uniqueSourceFields(listKey, fieldsKey string) CrossRule {
	return CrossRule{Name: "unique_source_fields", Check: func(doc any, vs *Violations) {
		root := objectAt(doc)
		check := func(prefix string, em map[string]any) {
			seen := make(map[string]bool)
			for j, f := range arrayAt(em, fieldsKey) {
				src := stringAt(objectAt(f), "sourceField")
				if src == "" {
					continue
				}
				if seen[src] {
					vs.Addf(join(prefix, index(fieldsKey, j))+".sourceField", RuleUnique,
						"source field %q is mapped more than once", src)
					continue
				}
				seen[src] = true
			}
		}
		if listKey == "" {
			check("", root)
			return
		}
		for i, m := range arrayAt(root, listKey) {
			check(index(listKey, i), objectAt(m))
		}
	}}
}

func mappingReferences(viewA, viewB *domain.NormalizedView) CrossRule {
	return CrossRule{Name: "mapping_references", Check: func(doc any, vs *Violations) {
		if viewA == nil || viewB == nil {
			return
		}
		root := objectAt(doc)
		for i, m := range arrayAt(root, "entityMappings") {
			em := objectAt(m)
			path := index("entityMappings", i)
			src, srcOK := viewA.Entity(stringAt(em, "sourceEntity"))
			if !srcOK {
				vs.Addf(path+".sourceEntity", RuleReference,
					"entity %q does not exist on side A", stringAt(em, "sourceEntity"))
			}
			dst, dstOK := viewB.Entity(stringAt(em, "targetEntity"))
			if !dstOK {
				vs.Addf(path+".targetEntity", RuleReference,
					"entity %q does not exist on side B", stringAt(em, "targetEntity"))
			}
			for j, f := range arrayAt(em, "fieldMappings") {
				fm := objectAt(f)
				fpath := path + "." + index("fieldMappings", j)
				if name := stringAt(fm, "sourceField"); srcOK && name != "" {
					if _, ok := src.Field(name); !ok {
						vs.Addf(fpath+".sourceField", RuleReference, "field %q does not exist on %s", name, src.Name)
					}
				}
				if name := stringAt(fm, "targetField"); dstOK && name != "" {
					if _, ok := dst.Field(name); !ok {
						vs.Addf(fpath+".targetField", RuleReference, "field %q does not exist on %s", name, dst.Name)
					}
				}
			}
		}
		for i, u := range arrayAt(root, "unmappedEntities") {
			um := objectAt(u)
			side, err := domain.ParseSide(stringAt(um, "side"))
			if err != nil {
				continue
			}
			view := viewA
			if side == domain.SideB {
				view = viewB
			}
			if _, ok := view.Entity(stringAt(um, "name")); !ok {
				vs.Addf(index("unmappedEntities", i)+".name", RuleReference,
					"entity %q does not exist on side %s", stringAt(um, "name"), side)
			}
		}
	}}
}

func candidateReferences(source, target *domain.Entity) CrossRule {
	return CrossRule{Name: "candidate_references", Check: func(doc any, vs *Violations) {
		root := objectAt(doc)
		if source != nil {
			if name := stringAt(root, "sourceEntity"); name != "" && name != source.Name {
				vs.Addf("sourceEntity", RuleReference, "candidate names %q but %q was requested", name, source.Name)
			}
		}
		if target != nil {
			if name := stringAt(root, "targetEntity"); name != "" && name != target.Name {
				vs.Addf("targetEntity", RuleReference, "candidate names %q but %q was requested", name, target.Name)
			}
		}
		for j, f := range arrayAt(root, "fieldMappings") {
			fm := objectAt(f)
			path := index("fieldMappings", j)
			if name := stringAt(fm, "sourceField"); source != nil && name != "" {
				if _, ok := source.Field(name); !ok {
					vs.Addf(path+".sourceField", RuleReference, "field %q does not exist on %s", name, source.Name)
				}
			}
			if name := stringAt(fm, "targetField"); target != nil && name != "" {
				if _, ok := target.Field(name); !ok {
					vs.Addf(path+".targetField", RuleReference, "field %q does not exist on %s", name, target.Name)
				}
			}
		}
	}}
}

func conflictStrategyForBidirectional() CrossRule {
	return CrossRule{Name: "conflict_strategy_for_bidirectional", Check: func(doc any, vs *Violations) {
		root := objectAt(doc)
		d, err := domain.ParseDirection(stringAt(root, "direction"))
		if err != nil || d != domain.DirectionBidirectional {
			return
		}
		if stringAt(root, "conflictStrategy") == "" {
			vs.Add("conflictStrategy", RuleRequiredIf, "conflictStrategy is required when direction is bidirectional")
		}
	}}
}

func ownershipCoversAccepted(accepted []domain.EntityPair) CrossRule {
	return CrossRule{Name: "ownership_covers_accepted", Check: func(doc any, vs *Violations) {
		ownership := objectAt(objectAt(doc)["ownership"])
		reported := make(map[string]bool)
		for _, p := range accepted {
			if _, ok := ownership[p.Source]; ok {
				continue
			}
			if _, ok := ownership[p.Target]; ok {
				continue
			}
			if reported[p.Source] {
				continue
			}
			reported[p.Source] = true
			vs.Addf("ownership."+p.Source, RuleRequired,
				"ownership must name side A or B for %s (accepted mapping %s)", p.Source, p)
		}
	}}
}

func overridesNameKnownPairs(known []domain.EntityPair) CrossRule {
	return CrossRule{Name: "overrides_name_known_pairs", Check: func(doc any, vs *Violations) {
		set := make(map[domain.EntityPair]bool, len(known))
		for _, p := range known {
			set[p] = true
		}
		for i, o := range arrayAt(objectAt(doc), "overrides") {
			s, _ := o.(string)
			if s == "" {
				continue
			}
			p, ok := domain.ParseEntityPair(s)
			if !ok {
				vs.Addf(index("overrides", i), RuleFormat, "%q is not an entity pair (want Source→Target)", s)
				continue
			}
			if known != nil && !set[p] {
				vs.Addf(index("overrides", i), RuleReference, "%s is not a mapping in the mapping result", p)
			}
		}
	}}
}

func flowStepsOrdered() CrossRule {
	return CrossRule{Name: "flow_steps_ordered", Check: func(doc any, vs *Violations) {
		prev := ""
		for i, s := range arrayAt(objectAt(doc), "flowSteps") {
			pair := stringAt(objectAt(s), "entityPair")
			switch {
			case i > 0 && pair == prev:
				vs.Addf(index("flowSteps", i)+".entityPair", RuleUnique, "duplicate flow step %q", pair)
			case i > 0 && pair < prev:
				vs.Addf(index("flowSteps", i)+".entityPair", RuleOrder, "flow step %q is out of order", pair)
			}
			prev = pair
		}
	}}
}

func backlogOrdered() CrossRule {
	return CrossRule{Name: "backlog_ordered", Check: func(doc any, vs *Violations) {
		var prevPair, prevReason string
		for i, b := range arrayAt(objectAt(doc), "backlog") {
			entry := objectAt(b)
			pair, reason := stringAt(entry, "entityPair"), stringAt(entry, "reason")
			if i > 0 && (pair < prevPair || (pair == prevPair && reason < prevReason)) {
				vs.Addf(index("backlog", i), RuleOrder, "backlog entry %q is out of order", pair)
			}
			prevPair, prevReason = pair, reason
		}
	}}
}

func flowBacklogDisjoint() CrossRule {
	return CrossRule{Name: "flow_backlog_disjoint", Check: func(doc any, vs *Violations) {
		root := objectAt(doc)
		steps := make(map[string]bool)
		for _, s := range arrayAt(root, "flowSteps") {
			steps[stringAt(objectAt(s), "entityPair")] = true
		}
		for i, b := range arrayAt(root, "backlog") {
			pair := stringAt(objectAt(b), "entityPair")
			if steps[pair] {
				vs.Addf(index("backlog", i), RuleDisjoint, "%s is both a flow step and a backlog entry", pair)
			}
		}
	}}
}

func flowStepsMeetThreshold() CrossRule {
	return CrossRule{Name: "flow_steps_meet_threshold", Check: func(doc any, vs *Violations) {
		root := objectAt(doc)
		threshold, ok := numberAt(root, "threshold")
		if !ok {
			return
		}
		for i, s := range arrayAt(root, "flowSteps") {
			step := objectAt(s)
			c, ok := numberAt(step, "confidence")
			if ok && c < threshold && !boolAt(step, "overridden") {
				vs.Addf(index("flowSteps", i)+".confidence", RuleThreshold,
					"confidence %.2f is below threshold %.2f and the step is not overridden", c, threshold)
			}
		}
	}}
}
