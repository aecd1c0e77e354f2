package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortClause(t *testing.T) {
	t.Run("allowed field with explicit direction", func(t *testing.T) {
		assert.Equal(t, "price ASC", sortClause("price", "asc", listingSortFields, "created_at"))
		assert.Equal(t, "views DESC", sortClause("views", "DESC", listingSortFields, "created_at"))
	})

	t.Run("direction defaults to DESC", func(t *testing.T) {
		assert.Equal(t, "title DESC", sortClause("title", "", listingSortFields, "created_at"))
		assert.Equal(t, "title DESC", sortClause("title", "sideways", listingSortFields, "created_at"))
		assert.Equal(t, "title DESC", sortClause("title", "ASC; DROP TABLE listings", listingSortFields, "created_at"))
	})

	t.Run("unknown field falls back", func(t *testing.T) {
		assert.Equal(t, "created_at DESC", sortClause("", "", listingSortFields, "created_at"))
		assert.Equal(t, "created_at DESC", sortClause("credentials", "", listingSortFields, "created_at"))
		assert.Equal(t, "created_at ASC", sortClause("price; --", "asc", listingSortFields, "created_at"))
	})
}
