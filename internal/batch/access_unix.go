//go:build unix

package batch

import "golang.org/x/sys/unix"

// writable reports whether the process can write into dir.
func writable(dir string) bool {
	return unix.Access(dir, unix.W_OK) == nil
}
