package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPending_SkipsAppliedAndSorts(t *testing.T) {
	all := []Migration{
		{ID: "3_c"},
		{ID: "1_a"},
		{ID: "2_b"},
	}

	got := pending(all, map[string]bool{"2_b": true})

	assert.Equal(t, []Migration{{ID: "1_a"}, {ID: "3_c"}}, got)
	assert.Equal(t, "3_c", all[0].ID, "input order must not change")
}

func TestPending_AllApplied(t *testing.T) {
	applied := map[string]bool{}
	for _, m := range allMigrations {
		applied[m.ID] = true
	}

	assert.Empty(t, pending(allMigrations, applied))
}

func TestAllMigrations_UniqueIDs(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range allMigrations {
		assert.False(t, seen[m.ID], "duplicate migration id %s", m.ID)
		seen[m.ID] = true
		assert.NotEmpty(t, m.UpSQL)
	}
}
