// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright © 2014-2020 Kevin Boone.

//go:build linux

package buttonpipe

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// OpenPipe opens the named pipe at path for writing, creating it if
// absent. The open blocks until a reader attaches, which is the usual
// arrangement - the consumer opens its end first.
//
// Ideally the pipe exists before the program starts, so that its
// ownership and permissions can be set by whoever manages the
// consumer.
func OpenPipe(path string) (*os.File, error) {
	if err := unix.Mkfifo(path, 0o777); err != nil && err != unix.EEXIST {
		return nil, fmt.Errorf("create pipe %s: %w", path, err)
	}
	file, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open pipe %s for writing: %w", path, err)
	}
	return file, nil
}
