package core

import (
	"fmt"

	"github.com/google/uuid"
)

// Direction selects which way an impact traversal walks the edge
// relation.
type Direction string

// Traversal directions.
const (
	// Downstream follows edges forward: "what does this object affect".
	Downstream Direction = "downstream"
	// Upstream follows edges backward: "what feeds this object".
	Upstream Direction = "upstream"
)

// Depth bounds for impact traversals.
const (
	MinTraversalDepth = 1
	MaxTraversalDepth = 20
)

// ValidateDepth checks that maxDepth is within the traversal bounds.
func ValidateDepth(maxDepth int) error {
	if maxDepth < MinTraversalDepth || maxDepth > MaxTraversalDepth {
		return fmt.Errorf("max depth %d out of range [%d, %d]", maxDepth, MinTraversalDepth, MaxTraversalDepth)
	}
	return nil
}

// ValidateDirection checks that dir is a known traversal direction.
func ValidateDirection(dir Direction) error {
	switch dir {
	case Downstream, Upstream:
		return nil
	default:
		return fmt.Errorf("unknown traversal direction %q", dir)
	}
}

// ImpactRow is one traversal result: an object reached by one distinct
// path, the path's length, and the edge that terminated it. An object
// reachable by several paths appears once per path.
type ImpactRow struct {
	Object DataObject
	Depth  int
	EdgeID uuid.UUID
}
