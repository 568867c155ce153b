// Package userstore provides per-user, path-sandboxed file storage whose
// mutating operations are mirrored into an external data product catalog.
//
// The root package holds the shared vocabulary: [DataProduct] and
// [ReplicaLocation] records, the [CatalogClient] and [PathIndex]
// collaborator interfaces, the [Actor] passed into every call, sentinel
// errors, and the PathIndex driver registry.
//
// # Packages
//
//   - datastore: path resolution, name allocation, file and directory operations over afero
//   - catalog: builds, registers, duplicates and locates data products
//   - storage: the facade composing datastore and catalog per operation
//   - pathindex: PathIndex drivers (memory, badger)
//   - config: viper-based configuration and component factories
//
// # Quick Start
//
//	import (
//	    "github.com/nuln/userstore"
//	    _ "github.com/nuln/userstore/pathindex/drivers"
//	)
//
//	index, err := userstore.OpenIndex(&userstore.IndexConfig{Type: "memory"})
//
// # Storage Layout
//
// Every user owns <base dir>/<username>. The top-level "tmp" directory of
// each root is the staging area for job input files.
package userstore
