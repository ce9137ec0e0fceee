//go:build !unix

package lock

import (
	"os"
	"sync"
)

// Without flock the lock only covers goroutines of this process.
var held sync.Map

func tryLock(f *os.File) (bool, error) {
	_, loaded := held.LoadOrStore(f.Name(), struct{}{})
	return !loaded, nil
}

func unlock(f *os.File) {
	held.Delete(f.Name())
}
