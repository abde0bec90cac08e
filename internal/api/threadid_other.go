//go:build !linux

package api

import "os"

// No portable thread id outside Linux; the process id still tells replicas
// apart.
func threadID() int {
	return os.Getpid()
}
