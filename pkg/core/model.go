package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Platform identifies the kind of system a DataSource represents.
type Platform string

// Supported source platforms.
const (
	PlatformPostgreSQL Platform = "postgresql"
	PlatformMySQL      Platform = "mysql"
	PlatformSnowflake  Platform = "snowflake"
	PlatformBigQuery   Platform = "bigquery"
	PlatformRedshift   Platform = "redshift"
	PlatformTableau    Platform = "tableau"
	PlatformPowerBI    Platform = "powerbi"
	PlatformDBT        Platform = "dbt"
	PlatformUnknown    Platform = "unknown"
)

// ObjectType identifies the kind of a DataObject.
type ObjectType string

// Supported data object kinds.
const (
	ObjectTypeTable            ObjectType = "table"
	ObjectTypeView             ObjectType = "view"
	ObjectTypeMaterializedView ObjectType = "materialized_view"
	ObjectTypeFunction         ObjectType = "function"
	ObjectTypeProcedure        ObjectType = "procedure"
	ObjectTypeDashboard        ObjectType = "dashboard"
	ObjectTypeDataset          ObjectType = "dataset"
	ObjectTypeMetric           ObjectType = "metric"
	ObjectTypeUnknown          ObjectType = "unknown"
)

// LineageType describes how a target object is derived from its source.
type LineageType string

// Lineage edge kinds.
const (
	LineageDirect      LineageType = "direct"
	LineageDerived     LineageType = "derived"
	LineageAggregated  LineageType = "aggregated"
	LineageTransformed LineageType = "transformed"
	LineageReference   LineageType = "reference"
	LineageUnknown     LineageType = "unknown"
)

// TransformType labels how a single output column is computed from its
// source columns.
type TransformType string

// Column transformation labels produced by the classifier.
const (
	TransformDirect      TransformType = "direct"
	TransformWindow      TransformType = "window"
	TransformAggregation TransformType = "aggregation"
	TransformCase        TransformType = "case"
	TransformCalculation TransformType = "calculation"
)

// DataSource is a connected platform instance. Its identity is a pure
// function of (platform, host, database, name), so re-extraction of the
// same source always upserts the same node.
type DataSource struct {
	ID          uuid.UUID
	Name        string
	Platform    Platform
	Description string
	Host        string
	Port        int
	Database    string
	Metadata    map[string]any
}

// DataObject is a named entity inside a DataSource: a table, view,
// function, dashboard, and so on.
type DataObject struct {
	ID            uuid.UUID
	SourceID      uuid.UUID
	Type          ObjectType
	Name          string
	SchemaName    string
	DatabaseName  string
	Description   string
	SQLDefinition string
	Metadata      map[string]any
}

// QualifiedName returns the dot-separated fully-qualified name,
// omitting empty segments.
func (o DataObject) QualifiedName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{o.DatabaseName, o.SchemaName, o.Name} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ".")
}

// Column is a field of a DataObject.
type Column struct {
	ID          uuid.UUID
	ObjectID    uuid.UUID
	Name        string
	DataType    string
	Ordinal     int
	Nullable    bool
	PrimaryKey  bool
	Description string
	Metadata    map[string]any
}

// ColumnLineageMap maps one source column to one target column within a
// Lineage edge.
type ColumnLineageMap struct {
	SourceColumnID uuid.UUID     `json:"source_column_id"`
	TargetColumnID uuid.UUID     `json:"target_column_id"`
	Transformation TransformType `json:"transformation,omitempty"`
}

// Lineage is a directed data-flow edge from a source DataObject to a
// target DataObject. The two endpoints must always differ.
type Lineage struct {
	ID             uuid.UUID
	SourceObjectID uuid.UUID
	TargetObjectID uuid.UUID
	Type           LineageType
	SQL            string
	Description    string
	ColumnMappings []ColumnLineageMap
	Metadata       map[string]any
}

// NewLineage constructs a lineage edge, rejecting self-loops. A
// self-referential edge is a contract violation, never valid data.
func NewLineage(id, sourceID, targetID uuid.UUID, kind LineageType) (Lineage, error) {
	if sourceID == targetID {
		return Lineage{}, fmt.Errorf("lineage edge %s: source and target object must differ (%s)", id, sourceID)
	}
	return Lineage{
		ID:             id,
		SourceObjectID: sourceID,
		TargetObjectID: targetID,
		Type:           kind,
	}, nil
}

// ExtractionResult is the in-memory output of one extraction run over a
// single source. Persistence is the caller's concern.
type ExtractionResult struct {
	Source  DataSource
	Objects []DataObject
	Columns []Column
	Edges   []Lineage
}
