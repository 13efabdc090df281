package domain

import (
	"fmt"
	"strings"
)

// Direction is the data flow direction between the two APIs.
type Direction string

const (
	DirectionAToB          Direction = "A→B"
	DirectionBToA          Direction = "B→A"
	DirectionBidirectional Direction = "bidirectional"
)

// ValidDirections enumerates canonical directions.
var ValidDirections = []Direction{DirectionAToB, DirectionBToA, DirectionBidirectional}

var directionAliases = map[string]Direction{
	"a→b":           DirectionAToB,
	"a->b":          DirectionAToB,
	"a_to_b":        DirectionAToB,
	"b→a":           DirectionBToA,
	"b->a":          DirectionBToA,
	"b_to_a":        DirectionBToA,
	"bidirectional": DirectionBidirectional,
	"a<->b":         DirectionBidirectional,
}

// DirectionSpellings lists every accepted spelling, canonical ones first.
func DirectionSpellings() []string {
	return []string{
		string(DirectionAToB), string(DirectionBToA), string(DirectionBidirectional),
		"A->B", "B->A", "a_to_b", "b_to_a", "A<->B",
	}
}

// ParseDirection canonicalizes a direction spelling.
func ParseDirection(s string) (Direction, error) {
	if d, ok := directionAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return d, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

// Sources returns the sides data is read from for this direction.
func (d Direction) Sources() []Side {
	switch d {
	case DirectionBToA:
		return []Side{SideB}
	case DirectionBidirectional:
		return []Side{SideA, SideB}
	default:
		return []Side{SideA}
	}
}

// TriggerMode is how a flow is started.
type TriggerMode string

const (
	TriggerWebhook TriggerMode = "webhook"
	TriggerPoll    TriggerMode = "poll"
	TriggerManual  TriggerMode = "manual"
)

// ValidTriggerModes enumerates trigger modes.
var ValidTriggerModes = []TriggerMode{TriggerWebhook, TriggerPoll, TriggerManual}

// ConflictStrategy resolves concurrent writes in bidirectional sync.
type ConflictStrategy string

const (
	ConflictLastWriteWins  ConflictStrategy = "last_write_wins"
	ConflictSourcePriority ConflictStrategy = "source_priority"
	ConflictManualReview   ConflictStrategy = "manual_review"
)

// ValidConflictStrategies enumerates conflict strategies.
var ValidConflictStrategies = []ConflictStrategy{ConflictLastWriteWins, ConflictSourcePriority, ConflictManualReview}

// Backoff is the delay growth between retry attempts.
type Backoff string

const (
	BackoffExponential Backoff = "exponential"
	BackoffLinear      Backoff = "linear"
	BackoffFixed       Backoff = "fixed"
)

// ValidBackoffs enumerates backoff strategies.
var ValidBackoffs = []Backoff{BackoffExponential, BackoffLinear, BackoffFixed}

// Optional decision vocabularies.
var (
	ValidGoals           = []string{"sync", "enrich", "migrate"}
	ValidErrorStrategies = []string{"retry_then_dlq", "skip_and_log", "halt_pipeline"}
	ValidLatencySLOs     = []string{"realtime", "near_realtime", "hourly", "daily"}
	ValidPIIHandling     = []string{"none", "mask", "encrypt"}
)

// RetryPolicy is how failed flow executions are retried.
type RetryPolicy struct {
	MaxAttempts int     `json:"maxAttempts" yaml:"maxAttempts"`
	Backoff     Backoff `json:"backoff" yaml:"backoff"`
}

// IntegrationAnswers are the human decisions about how the APIs interoperate.
// Once validated they are treated as frozen.
type IntegrationAnswers struct {
	Direction        Direction        `json:"direction" yaml:"direction"`
	TriggerMode      TriggerMode      `json:"triggerMode" yaml:"triggerMode"`
	ConflictStrategy ConflictStrategy `json:"conflictStrategy,omitempty" yaml:"conflictStrategy,omitempty"`
	RetryPolicy      RetryPolicy      `json:"retryPolicy" yaml:"retryPolicy"`
	Ownership        map[string]Side  `json:"ownership" yaml:"ownership"`
	Overrides        []string         `json:"overrides,omitempty" yaml:"overrides,omitempty"`
	Goal             string           `json:"goal,omitempty" yaml:"goal,omitempty"`
	ErrorStrategy    string           `json:"errorStrategy,omitempty" yaml:"errorStrategy,omitempty"`
	LatencySLO       string           `json:"latencySLO,omitempty" yaml:"latencySLO,omitempty"`
	Idempotency      *bool            `json:"idempotency,omitempty" yaml:"idempotency,omitempty"`
	PIIHandling      string           `json:"piiHandling,omitempty" yaml:"piiHandling,omitempty"`
	OwnershipNotes   string           `json:"ownershipNotes,omitempty" yaml:"ownershipNotes,omitempty"`
}

// IsOverridden reports whether the pair was explicitly accepted despite its
// confidence.
func (a IntegrationAnswers) IsOverridden(p EntityPair) bool {
	for _, o := range a.Overrides {
		if op, ok := ParseEntityPair(o); ok && op == p {
			return true
		}
	}
	return false
}

// OwnerOf returns the owning side for an entity pair, preferring the source
// entity's assignment.
func (a IntegrationAnswers) OwnerOf(p EntityPair) (Side, bool) {
	if s, ok := a.Ownership[p.Source]; ok {
		return s, true
	}
	s, ok := a.Ownership[p.Target]
	return s, ok
}
