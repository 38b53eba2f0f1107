//go:build !unix

package batch

import "os"

// writable reports whether the process can write into dir. Platforms without
// access(2) probe by creating and removing a scratch file.
func writable(dir string) bool {
	f, err := os.CreateTemp(dir, ".submerge-probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}
