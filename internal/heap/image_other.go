// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !unix

package heap

import (
	"fmt"
	"os"
)

// MapImageFile on non-Unix platforms falls back to a plain read, since
// there is no single portable mmap syscall in the standard library; the
// rest of RestoreImage is identical either way.
func MapImageFile(path string) (data []byte, unmap func() error, err error) {
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("heap: read image %s: %w", path, err)
	}
	return data, func() error { return nil }, nil
}
