package questionnaire

import (
	"sort"

	"github.com/abdidvp/apiweave/internal/domain"
)

// Defaults returns a pre-filled answer set for a first run. Validation never
// merges these in; callers start from them explicitly.
func Defaults() domain.IntegrationAnswers {
	idempotent := true
	return domain.IntegrationAnswers{
		Direction:        domain.DirectionAToB,
		TriggerMode:      domain.TriggerWebhook,
		ConflictStrategy: domain.ConflictSourcePriority,
		RetryPolicy:      domain.RetryPolicy{MaxAttempts: 3, Backoff: domain.BackoffExponential},
		Ownership:        map[string]domain.Side{},
		Goal:             "sync",
		ErrorStrategy:    "retry_then_dlq",
		LatencySLO:       "near_realtime",
		Idempotency:      &idempotent,
		PIIHandling:      "mask",
	}
}

// Template returns Defaults with ownership pre-assigned to side A for the
// source entity of every accepted pair.
func Template(accepted []domain.EntityPair) domain.IntegrationAnswers {
	a := Defaults()
	for _, p := range accepted {
		a.Ownership[p.Source] = domain.SideA
	}
	return a
}

// OptionSets lists the allowed values of every enumerated answer, sorted.
func OptionSets() map[string][]string {
	sets := map[string][]string{
		"direction":        {string(domain.DirectionAToB), string(domain.DirectionBToA), string(domain.DirectionBidirectional)},
		"triggerMode":      stringsOf(domain.ValidTriggerModes),
		"conflictStrategy": stringsOf(domain.ValidConflictStrategies),
		"backoff":          stringsOf(domain.ValidBackoffs),
		"ownership":        stringsOf(domain.ValidSides),
		"goal":             append([]string(nil), domain.ValidGoals...),
		"errorStrategy":    append([]string(nil), domain.ValidErrorStrategies...),
		"latencySLO":       append([]string(nil), domain.ValidLatencySLOs...),
		"piiHandling":      append([]string(nil), domain.ValidPIIHandling...),
	}
	for _, v := range sets {
		sort.Strings(v)
	}
	return sets
}

func stringsOf[T ~string](values []T) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, string(v))
	}
	return out
}
