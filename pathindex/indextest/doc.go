// Package indextest provides a conformance suite for PathIndex drivers.
package indextest
