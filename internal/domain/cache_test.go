package domain_test

import (
	"testing"

	"github.com/abdidvp/apiweave/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestRunRecord_IsInvalidated(t *testing.T) {
	rec := &domain.RunRecord{
		ExtractionA: "aaa",
		ExtractionB: "bbb",
		ConfigHash:  "cfg",
	}

	t.Run("same hashes", func(t *testing.T) {
		assert.False(t, rec.IsInvalidated("aaa", "bbb", "cfg"))
	})

	t.Run("different extraction a", func(t *testing.T) {
		assert.True(t, rec.IsInvalidated("changed", "bbb", "cfg"))
	})

	t.Run("different extraction b", func(t *testing.T) {
		assert.True(t, rec.IsInvalidated("aaa", "changed", "cfg"))
	})

	t.Run("different config", func(t *testing.T) {
		assert.True(t, rec.IsInvalidated("aaa", "bbb", "changed"))
	})
}
