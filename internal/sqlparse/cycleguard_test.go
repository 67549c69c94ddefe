package sqlparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterSafeReferences(t *testing.T) {
	p := New("public", "postgres", nil)

	refs := []TableRef{
		{Table: "a"},
		{Schema: "public", Table: "b"},
		{Schema: "analytics", Table: "c"},
	}

	t.Run("self reference dropped even with empty set", func(t *testing.T) {
		got := p.FilterSafeReferences("public.a", refs, "public", NewInProgressSet())
		assert.Equal(t, []TableRef{{Schema: "public", Table: "b"}, {Schema: "analytics", Table: "c"}}, got)
	})

	t.Run("in-flight ancestor dropped, order preserved", func(t *testing.T) {
		set := NewInProgressSet()
		set.Mark("public.b")
		got := p.FilterSafeReferences("analytics.v", refs, "public", set)
		assert.Equal(t, []TableRef{{Table: "a"}, {Schema: "analytics", Table: "c"}}, got)
	})

	t.Run("matching is case insensitive", func(t *testing.T) {
		set := NewInProgressSet()
		set.Mark("analytics.c")
		got := p.FilterSafeReferences("x.y", []TableRef{{Schema: "Analytics", Table: "C"}}, "public", set)
		assert.Empty(t, got)
	})

	t.Run("set is not mutated", func(t *testing.T) {
		set := NewInProgressSet()
		set.Mark("public.b")
		_ = p.FilterSafeReferences("public.a", refs, "public", set)
		assert.True(t, set.Contains("public.b"))
		assert.False(t, set.Contains("public.a"))
	})
}

func TestInProgressSetMarkRelease(t *testing.T) {
	set := NewInProgressSet()

	release := set.Mark("public.v1")
	assert.True(t, set.Contains("public.v1"))

	nested := set.Mark("public.v2")
	assert.True(t, set.Contains("public.v2"))

	nested()
	assert.False(t, set.Contains("public.v2"))
	assert.True(t, set.Contains("public.v1"))

	release()
	assert.False(t, set.Contains("public.v1"))
}
