package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lineagraph/lineagraph/pkg/core"
)

func TestIdentitiesAreDeterministic(t *testing.T) {
	s1 := SourceID(core.PlatformPostgreSQL, "db.internal", "shop", "shop")
	s2 := SourceID(core.PlatformPostgreSQL, "db.internal", "shop", "shop")
	assert.Equal(t, s1, s2)

	o1 := ObjectID(s1, "public", "orders")
	o2 := ObjectID(s2, "public", "orders")
	assert.Equal(t, o1, o2)

	c1 := ColumnID(o1, "amount")
	c2 := ColumnID(o2, "amount")
	assert.Equal(t, c1, c2)
}

func TestIdentitiesSeparateByKey(t *testing.T) {
	s := SourceID(core.PlatformPostgreSQL, "db.internal", "shop", "shop")

	assert.NotEqual(t, s, SourceID(core.PlatformMySQL, "db.internal", "shop", "shop"))
	assert.NotEqual(t,
		ObjectID(s, "public", "orders"),
		ObjectID(s, "sales", "orders"))
	assert.NotEqual(t,
		ObjectID(s, "public", "orders"),
		ObjectID(s, "public", "Orders"))

	o := ObjectID(s, "public", "orders")
	assert.NotEqual(t, ColumnID(o, "amount"), ColumnID(o, "total"))
}

func TestEdgeIDIncludesKindAndDirection(t *testing.T) {
	s := SourceID(core.PlatformPostgreSQL, "h", "d", "n")
	a := ObjectID(s, "public", "a")
	b := ObjectID(s, "public", "b")

	assert.Equal(t,
		EdgeID(a, b, core.LineageDirect),
		EdgeID(a, b, core.LineageDirect))
	assert.NotEqual(t,
		EdgeID(a, b, core.LineageDirect),
		EdgeID(a, b, core.LineageDerived))
	assert.NotEqual(t,
		EdgeID(a, b, core.LineageDirect),
		EdgeID(b, a, core.LineageDirect))
}

func TestIdentifiersAreVersion5Style(t *testing.T) {
	s := SourceID(core.PlatformPostgreSQL, "h", "d", "n")
	assert.Equal(t, uuidVersion(s.String()), byte('5'))
}

func uuidVersion(s string) byte {
	// Version nibble sits at offset 14 of the canonical form.
	return s[14]
}
