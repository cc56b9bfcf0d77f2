package idgen

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IsUniqueAndOrdered(t *testing.T) {
	t.Parallel()
	prev := New()
	for i := 0; i < 100; i++ {
		next := New()
		assert.NotEqual(t, prev, next)
		assert.Less(t, prev, next)
		prev = next
	}
}

func TestNew_IsUUIDv7(t *testing.T) {
	t.Parallel()
	id, err := uuid.Parse(New())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}
