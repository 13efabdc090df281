package domain

// Transformation kinds.
const (
	TransformDirect  = "direct"
	TransformConvert = "convert"
)

// Transformation describes how one field is carried across.
type Transformation struct {
	SourceField string  `json:"sourceField"`
	TargetField string  `json:"targetField"`
	Confidence  float64 `json:"confidence"`
	Kind        string  `json:"kind"`
	Note        string  `json:"note,omitempty"`
}

// ErrorRetryRule is how a flow step reacts to failures.
type ErrorRetryRule struct {
	MaxAttempts int     `json:"maxAttempts"`
	Backoff     Backoff `json:"backoff"`
	Strategy    string  `json:"strategy,omitempty"`
}

// AuthStrategy is the auth metadata of both ends of a flow step, carried
// through from the extractions.
type AuthStrategy struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Observability is what a flow step reports and who watches it.
type Observability struct {
	Metrics []string `json:"metrics"`
	Owner   string   `json:"owner,omitempty"`
}

// FlowStep is one automated flow for an accepted entity mapping. Steps is
// the ordered runbook of one execution of the flow.
type FlowStep struct {
	EntityPair          string           `json:"entityPair"`
	SourceEntity        string           `json:"sourceEntity"`
	TargetEntity        string           `json:"targetEntity"`
	Direction           Direction        `json:"direction"`
	Trigger             TriggerMode      `json:"trigger"`
	Confidence          float64          `json:"confidence"`
	Overridden          bool             `json:"overridden"`
	Steps               []string         `json:"steps"`
	Transformations     []Transformation `json:"transformations"`
	ErrorRetry          ErrorRetryRule   `json:"errorRetry"`
	AuthStrategy        AuthStrategy     `json:"authStrategy"`
	IdempotencyRequired bool             `json:"idempotencyRequired"`
	Observability       Observability    `json:"observability"`
	Ownership           Side             `json:"ownership"`
	ConflictStrategy    ConflictStrategy `json:"conflictStrategy,omitempty"`
}

// BacklogEntry is a mapping or entity needing human resolution.
type BacklogEntry struct {
	EntityPair      string  `json:"entityPair"`
	Reason          string  `json:"reason"`
	SuggestedAction string  `json:"suggestedAction"`
	Confidence      float64 `json:"confidence"`
}

// PlanSummary is the headline of a plan.
type PlanSummary struct {
	Direction     Direction   `json:"direction"`
	Trigger       TriggerMode `json:"trigger"`
	Goal          string      `json:"goal,omitempty"`
	FlowCount     int         `json:"flowCount"`
	BacklogCount  int         `json:"backlogCount"`
	OverrideCount int         `json:"overrideCount"`
}

// IntegrationPlan is the deterministic output of plan generation.
// ImplementationTasks is the build work the plan implies, in order.
type IntegrationPlan struct {
	Name                string         `json:"name"`
	Summary             PlanSummary    `json:"summary"`
	FlowSteps           []FlowStep     `json:"flowSteps"`
	Backlog             []BacklogEntry `json:"backlog"`
	Risks               []string       `json:"risks"`
	ImplementationTasks []string       `json:"implementationTasks"`
	Threshold           float64        `json:"threshold"`
	Digest              string         `json:"digest"`
}

// Step returns the flow step for an entity pair name.
func (p IntegrationPlan) Step(pair string) (FlowStep, bool) {
	for _, s := range p.FlowSteps {
		if s.EntityPair == pair {
			return s, true
		}
	}
	return FlowStep{}, false
}

// BacklogFor returns every backlog entry recorded for an entity pair name.
func (p IntegrationPlan) BacklogFor(pair string) []BacklogEntry {
	var out []BacklogEntry
	for _, b := range p.Backlog {
		if b.EntityPair == pair {
			out = append(out, b)
		}
	}
	return out
}
