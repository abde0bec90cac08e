//go:build linux

package api

import "golang.org/x/sys/unix"

// threadID is the kernel id of the OS thread running the caller.
func threadID() int {
	return unix.Gettid()
}
