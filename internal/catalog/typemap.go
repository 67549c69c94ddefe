package catalog

import "strings"

// pgTypeMap normalizes PostgreSQL type names to the canonical type
// vocabulary shared across platforms.
var pgTypeMap = map[string]string{
	"integer":                     "integer",
	"int":                         "integer",
	"int2":                        "integer",
	"int4":                        "integer",
	"int8":                        "bigint",
	"bigint":                      "bigint",
	"smallint":                    "integer",
	"serial":                      "integer",
	"bigserial":                   "bigint",
	"numeric":                     "decimal",
	"decimal":                     "decimal",
	"real":                        "float",
	"float4":                      "float",
	"float8":                      "double",
	"double precision":            "double",
	"money":                       "decimal",
	"character varying":           "string",
	"varchar":                     "string",
	"character":                   "string",
	"char":                        "string",
	"text":                        "string",
	"citext":                      "string",
	"name":                        "string",
	"boolean":                     "boolean",
	"bool":                        "boolean",
	"date":                        "date",
	"time":                        "time",
	"time without time zone":      "time",
	"time with time zone":         "time",
	"timestamp":                   "timestamp",
	"timestamp without time zone": "timestamp",
	"timestamp with time zone":    "timestamp",
	"timestamptz":                 "timestamp",
	"interval":                    "interval",
	"uuid":                        "uuid",
	"json":                        "json",
	"jsonb":                       "json",
	"xml":                         "string",
	"bytea":                       "binary",
	"inet":                        "string",
	"cidr":                        "string",
	"macaddr":                     "string",
	"array":                       "array",
	"user-defined":                "unknown",
}

// normalizeType maps a PostgreSQL data type to its canonical name.
// Parameterized types lose their arguments, arrays collapse to
// "array", and unmapped names pass through lowercased.
func normalizeType(pgType string) string {
	t := strings.ToLower(strings.TrimSpace(pgType))
	if t == "" {
		return "unknown"
	}
	if strings.HasSuffix(t, "[]") {
		return "array"
	}
	if idx := strings.IndexByte(t, '('); idx > 0 {
		t = strings.TrimSpace(t[:idx])
	}
	if mapped, ok := pgTypeMap[t]; ok {
		return mapped
	}
	return t
}
