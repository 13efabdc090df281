package domain

// RunRecord is one persisted pipeline run. Runs are keyed by Digest, the hash
// of both extraction inputs and the config, so a new extraction yields a new
// record instead of patching an old one.
type RunRecord struct {
	Digest        string              `json:"digest"`
	ExtractionA   string              `json:"extraction_a_hash"`
	ExtractionB   string              `json:"extraction_b_hash"`
	ConfigHash    string              `json:"config_hash"`
	MappingResult *MappingResult      `json:"mapping_result,omitempty"`
	Answers       *IntegrationAnswers `json:"answers,omitempty"`
	Plan          *IntegrationPlan    `json:"plan,omitempty"`
	PlanMarkdown  string              `json:"-"`
}

// IsInvalidated reports whether any input changed since the record was written.
func (r *RunRecord) IsInvalidated(extractionA, extractionB, configHash string) bool {
	return r.ExtractionA != extractionA || r.ExtractionB != extractionB || r.ConfigHash != configHash
}
