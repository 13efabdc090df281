package application

import (
	"github.com/abdidvp/apiweave/internal/domain"
	"github.com/abdidvp/apiweave/internal/domain/contract"
	"github.com/abdidvp/apiweave/internal/domain/questionnaire"
)

// ContractReport is the outcome of checking one artifact against its kind.
type ContractReport struct {
	Kind       contract.Kind     `json:"kind"`
	Valid      bool              `json:"valid"`
	Violations domain.Violations `json:"violations"`
}

// ValidateService checks standalone artifacts against their contracts, the
// same way the pipeline gates them between stages.
type ValidateService struct {
	configLoader domain.ConfigLoader
}

// NewValidateService creates a new ValidateService.
func NewValidateService(configLoader domain.ConfigLoader) *ValidateService {
	return &ValidateService{configLoader: configLoader}
}

// Validate checks doc as kindName. For answers, a mapping result enables the
// ownership and override rules, using the workspace threshold to decide which
// pairs are accepted. An unknown kind is reported as a violation.
func (s *ValidateService) Validate(workspace, kindName string, doc any, mapping *domain.MappingResult) (*ContractReport, error) {
	kind, err := contract.ParseKind(kindName)
	if err != nil {
		var vs contract.Violations
		vs.Add("", contract.RuleKind, err.Error())
		return report(contract.Kind(kindName), vs), nil
	}

	if kind == contract.KindAnswers && mapping != nil {
		cfg, err := s.configLoader.Load(workspace)
		if err != nil {
			return nil, err
		}
		_, vs := questionnaire.ValidateFor(doc, *mapping, cfg.ConfidenceThreshold)
		return report(kind, vs), nil
	}
	return report(kind, contract.ValidateKind(kind, doc, contract.Refs{})), nil
}

func report(kind contract.Kind, vs contract.Violations) *ContractReport {
	if vs == nil {
		vs = contract.Violations{}
	}
	return &ContractReport{Kind: kind, Valid: vs.Valid(), Violations: vs}
}
