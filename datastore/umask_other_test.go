//go:build !unix

package datastore_test

func setUmask(int) int { return 0 }
