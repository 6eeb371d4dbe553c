package connection

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_StoredIsReturnedUnchanged(t *testing.T) {
	r := NewResolver()

	for i := 0; i < 3; i++ {
		id, created := r.Resolve("existing-id")
		assert.Equal(t, "existing-id", id)
		assert.False(t, created)
	}
}

func TestResolver_GeneratesDistinctIDs(t *testing.T) {
	r := NewResolver()

	first, created := r.Resolve("")
	require.True(t, created)
	second, created := r.Resolve("")
	require.True(t, created)

	assert.NotEqual(t, first, second)
	_, err := uuid.Parse(first)
	assert.NoError(t, err)
	_, err = uuid.Parse(second)
	assert.NoError(t, err)
}
