// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build unix

package heap

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// MapImageFile memory-maps path read-only and returns the mapped bytes
// along with a function to unmap them, matching spec.md §4.1.4 Restore:
// "map the image file into a contiguous region". This mirrors the
// teacher's own use of golang.org/x/sys/unix (internal/gocore's test
// harness maps a core file the same way) rather than reading the whole
// file into a heap buffer.
func MapImageFile(path string) (data []byte, unmap func() error, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("heap: open image %s: %w", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("heap: stat image %s: %w", path, err)
	}
	size := fi.Size()
	if size == 0 {
		return nil, nil, fmt.Errorf("heap: image %s is empty", path)
	}

	mapped, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, fmt.Errorf("heap: mmap image %s: %w", path, err)
	}
	return mapped, func() error { return unix.Munmap(mapped) }, nil
}
