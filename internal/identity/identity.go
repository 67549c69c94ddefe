// Package identity derives stable identifiers from semantic keys.
//
// Every identifier is a version-5 UUID: a SHA-1 digest of a fixed
// namespace and a delimiter-joined key string. The same key always
// yields the same identifier across processes and runs, which is what
// makes repeated extraction converge under upsert instead of
// duplicating nodes.
package identity

import (
	"github.com/google/uuid"

	"github.com/lineagraph/lineagraph/pkg/core"
)

// namespace scopes all lineagraph identifiers. Changing it would
// re-key every entity, so it is fixed for the life of the project.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:lineagraph:lineage"))

// SourceID returns the identity of a data source from its
// platform:host:database:name key.
func SourceID(platform core.Platform, host, database, name string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(string(platform)+":"+host+":"+database+":"+name))
}

// ObjectID returns the identity of a data object from its owning
// source, schema, and name.
func ObjectID(sourceID uuid.UUID, schema, name string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(sourceID.String()+":"+schema+":"+name))
}

// ColumnID returns the identity of a column from its owning object and
// name.
func ColumnID(objectID uuid.UUID, name string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(objectID.String()+":"+name))
}

// EdgeID returns the identity of a lineage edge. Keying on the two
// endpoints and the edge kind means re-extraction rewrites the same
// edge rather than accumulating duplicates.
func EdgeID(sourceObjectID, targetObjectID uuid.UUID, kind core.LineageType) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(sourceObjectID.String()+":"+targetObjectID.String()+":"+string(kind)))
}
