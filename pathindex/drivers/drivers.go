// Package drivers is a convenience package that registers all built-in
// PathIndex drivers. Import it with a blank identifier to make all drivers
// available:
//
//	import _ "github.com/nuln/userstore/pathindex/drivers"
package drivers

import (
	"github.com/nuln/userstore"
	_ "github.com/nuln/userstore/pathindex/badger"
	_ "github.com/nuln/userstore/pathindex/memory"
)

// List returns a list of all registered index drivers.
func List() []string {
	return userstore.IndexDrivers()
}
