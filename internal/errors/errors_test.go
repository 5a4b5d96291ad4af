package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderDefaults(t *testing.T) {
	t.Parallel()

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.False(t, ee.Timestamp.IsZero())
}

func TestBuilderFullChain(t *testing.T) {
	t.Parallel()

	ee := Newf("query failed for %s", "amerob").
		Component("ebird").
		Category(CategoryNetwork).
		Context("status_code", 503).
		Context("species_code", "amerob").
		Build()

	assert.Equal(t, "query failed for amerob", ee.Error())
	assert.Equal(t, "ebird", ee.GetComponent())
	assert.Equal(t, CategoryNetwork, ee.Category)

	status, ok := ee.GetContext("status_code")
	require.True(t, ok)
	assert.Equal(t, 503, status)
}

func TestUnwrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := NewStd("connection refused")
	ee := Newf("fetch failed: %w", cause).Category(CategoryNetwork).Build()

	assert.True(t, Is(ee, cause))
	assert.Equal(t, "fetch failed: connection refused", ee.Error())
}

func TestIsMatchesByCategory(t *testing.T) {
	t.Parallel()

	a := Newf("empty route").Category(CategoryValidation).Build()
	b := Newf("different message").Category(CategoryValidation).Build()
	c := Newf("other").Category(CategoryNetwork).Build()

	assert.True(t, Is(a, b))
	assert.False(t, Is(a, c))
}

func TestCategoryHelpers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		category ErrorCategory
		want     bool
	}{
		{"validation match", Newf("bad input").Category(CategoryValidation).Build(), CategoryValidation, true},
		{"network mismatch", Newf("timeout").Category(CategoryTimeout).Build(), CategoryNetwork, false},
		{"plain error", fmt.Errorf("plain"), CategoryValidation, false},
		{"wrapped enhanced", fmt.Errorf("outer: %w", Newf("inner").Category(CategoryNotFound).Build()), CategoryNotFound, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsCategory(tt.err, tt.category))
		})
	}
}

func TestAsExtractsEnhancedError(t *testing.T) {
	t.Parallel()

	ee := Newf("not found").Category(CategoryNotFound).Component("ebird").Build()
	wrapped := fmt.Errorf("outer: %w", ee)

	var got *EnhancedError
	require.True(t, As(wrapped, &got))
	assert.Equal(t, "ebird", got.GetComponent())
	assert.True(t, IsNotFound(wrapped))
}
