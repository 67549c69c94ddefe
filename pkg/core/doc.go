// Package core defines the shared domain model for lineagraph: data
// sources, data objects, columns, lineage edges, and the catalog feed
// row types that extraction consumes.
//
// These types are deliberately free of behavior beyond small invariant
// helpers so that every other package (extraction, persistence, CLI)
// can depend on them without pulling in heavier dependencies.
package core
