package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"integer", "integer"},
		{"INT8", "bigint"},
		{"character varying(255)", "string"},
		{"numeric(10,2)", "decimal"},
		{"timestamp with time zone", "timestamp"},
		{"double precision", "double"},
		{"text[]", "array"},
		{"jsonb", "json"},
		{"some_enum", "some_enum"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeType(tt.in))
		})
	}
}
