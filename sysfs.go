// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright © 2014-2020 Kevin Boone.

// Pin acquisition, release and sampling via the sysfs GPIO interface.

package buttonpipe

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultSysfsRoot is the kernel GPIO pseudo-filesystem.
const DefaultSysfsRoot = "/sys/class/gpio"

// Sysfs wraps the sysfs GPIO control files under a single root.
// The zero value uses DefaultSysfsRoot.
type Sysfs struct {
	Root string
}

func (s *Sysfs) root() string {
	if s.Root == "" {
		return DefaultSysfsRoot
	}
	return s.Root
}

func (s *Sysfs) pinDir(pin int) string {
	return fmt.Sprintf("%s/gpio%d", s.root(), pin)
}

func (s *Sysfs) writeFile(path, text string) error {
	file, err := os.OpenFile(path, os.O_WRONLY, os.ModeExclusive)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = file.WriteString(text)
	return err
}

// Export makes pin available through sysfs and waits for its control
// files to appear.
func (s *Sysfs) Export(pin int) error {
	err := s.writeFile(s.root()+"/export", strconv.Itoa(pin))
	if e, ok := err.(*os.PathError); ok && e.Err == unix.EBUSY {
		return nil // EBUSY -> the pin has already been exported
	}
	if err != nil {
		return err
	}
	// Exporting can take > 100ms on older boards.
	return s.waitExported(pin)
}

// Unexport removes pin from sysfs control.
func (s *Sysfs) Unexport(pin int) error {
	return s.writeFile(s.root()+"/unexport", strconv.Itoa(pin))
}

// SetDirection configures pin as an input ("in") or output ("out").
func (s *Sysfs) SetDirection(pin int, direction string) error {
	return s.writeFile(s.pinDir(pin)+"/direction", direction)
}

// SetEdge selects the transitions that raise interrupts on pin.
func (s *Sysfs) SetEdge(pin int, edge Edge) error {
	return s.writeFile(s.pinDir(pin)+"/edge", string(edge))
}

// Acquire exports pin and configures it as an interrupt-generating
// input. The edge file is always set to "both"; a physical actuation
// bounces through both edges regardless of the reporting policy.
func (s *Sysfs) Acquire(pin int) error {
	if err := s.Export(pin); err != nil {
		return fmt.Errorf("export pin %d: %w", pin, err)
	}
	if err := s.SetDirection(pin, "in"); err != nil {
		return fmt.Errorf("set direction on pin %d: %w", pin, err)
	}
	if err := s.SetEdge(pin, EdgeBoth); err != nil {
		return fmt.Errorf("set edge on pin %d: %w", pin, err)
	}
	return nil
}

// OpenValue opens a read handle on the live value of pin, suitable for
// registration in an interrupt wait set.
func (s *Sysfs) OpenValue(pin int) (*os.File, error) {
	return os.OpenFile(s.pinDir(pin)+"/value", os.O_RDONLY, os.ModeExclusive)
}

// ReadLevel samples the current logic level of pin.
//
// A valid sample is exactly two bytes - the digit 0 or 1 and a
// terminator. Anything else returns ErrBadSample and the caller must
// treat the pin state as unknown.
func (s *Sysfs) ReadLevel(pin int) (Level, error) {
	file, err := os.Open(s.pinDir(pin) + "/value")
	if err != nil {
		return Low, err
	}
	defer file.Close()
	buf := make([]byte, 3)
	n, _ := file.Read(buf)
	if n != 2 || buf[1] != '\n' || (buf[0] != '0' && buf[0] != '1') {
		return Low, ErrBadSample
	}
	return Level(buf[0] == '1'), nil
}

// Wait for the sysfs control files of pin to become writeable.
func (s *Sysfs) waitExported(pin int) error {
	if err := waitWriteable(s.pinDir(pin) + "/value"); err != nil {
		return err
	}
	return waitWriteable(s.pinDir(pin) + "/edge")
}

func waitWriteable(path string) error {
	for try := 0; ; try++ {
		fileInfo, err := os.Stat(path)
		if err == nil && fileInfo.Mode()&0o220 != 0 {
			return nil
		}
		if try >= 10 {
			return fmt.Errorf("%s: not writeable", path)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
