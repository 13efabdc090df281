package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for errors.Is checks at stage boundaries.
var (
	ErrContractViolation = errors.New("contract violation")
	ErrIncompleteAnswers = errors.New("incomplete answers")
	ErrPlanGeneration    = errors.New("plan generation failed")
)

// Violation is one failed contract rule.
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// String renders "field: message (rule)".
func (v Violation) String() string {
	field := v.Field
	if field == "" {
		field = "$"
	}
	return fmt.Sprintf("%s: %s (%s)", field, v.Message, v.Rule)
}

// Violations is an ordered list of contract violations. Empty means valid.
type Violations []Violation

// Add appends a violation.
func (vs *Violations) Add(field, rule, message string) {
	*vs = append(*vs, Violation{Field: field, Rule: rule, Message: message})
}

// Addf appends a violation with a formatted message.
func (vs *Violations) Addf(field, rule, format string, args ...any) {
	vs.Add(field, rule, fmt.Sprintf(format, args...))
}

// Valid reports whether no violations were recorded.
func (vs Violations) Valid() bool { return len(vs) == 0 }

// Fields returns the offending field paths in order.
func (vs Violations) Fields() []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Field)
	}
	return out
}

// Has reports whether a violation exists for field with the given rule.
// An empty rule matches any rule.
func (vs Violations) Has(field, rule string) bool {
	for _, v := range vs {
		if v.Field == field && (rule == "" || v.Rule == rule) {
			return true
		}
	}
	return false
}

func (vs Violations) String() string {
	parts := make([]string, 0, len(vs))
	for _, v := range vs {
		parts = append(parts, v.String())
	}
	return strings.Join(parts, "; ")
}

// ContractViolationError blocks progression past a stage boundary.
type ContractViolationError struct {
	Kind       string
	Violations Violations
}

func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("%s contract: %d violation(s): %s", e.Kind, len(e.Violations), e.Violations)
}

func (e *ContractViolationError) Unwrap() error { return ErrContractViolation }

// IncompleteAnswersError blocks plan generation until the caller fixes the
// listed fields.
type IncompleteAnswersError struct {
	Violations Violations
}

func (e *IncompleteAnswersError) Error() string {
	return fmt.Sprintf("integration answers incomplete: %s", e.Violations)
}

func (e *IncompleteAnswersError) Unwrap() error { return ErrIncompleteAnswers }

// PlanGenerationError is raised only for structurally invalid input.
type PlanGenerationError struct {
	Reason     string
	Violations Violations
}

func (e *PlanGenerationError) Error() string {
	if len(e.Violations) == 0 {
		return "plan generation: " + e.Reason
	}
	return fmt.Sprintf("plan generation: %s: %s", e.Reason, e.Violations)
}

func (e *PlanGenerationError) Unwrap() error { return ErrPlanGeneration }

// ViolationsOf extracts the violation list from any of the pipeline errors.
func ViolationsOf(err error) Violations {
	var cv *ContractViolationError
	if errors.As(err, &cv) {
		return cv.Violations
	}
	var ia *IncompleteAnswersError
	if errors.As(err, &ia) {
		return ia.Violations
	}
	var pg *PlanGenerationError
	if errors.As(err, &pg) {
		return pg.Violations
	}
	return nil
}

// Err returns nil when vs is valid, otherwise a ContractViolationError for kind.
func (vs Violations) Err(kind string) error {
	if vs.Valid() {
		return nil
	}
	return &ContractViolationError{Kind: kind, Violations: vs}
}
