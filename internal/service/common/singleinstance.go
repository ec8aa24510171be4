//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"errors"
	"fmt"
	"strings"

	ps "github.com/mitchellh/go-ps"
)

// ErrAlreadyRunning indicates another monitor process owns the sensor.
var ErrAlreadyRunning = errors.New("another instance is already running")

// EnsureSingleInstance scans the process table for another process with the
// given executable name. Two monitors polling one HC-SR04 corrupt each
// other's echo timing, so startup refuses to continue.
func EnsureSingleInstance(selfPID int, executable string) error {
	processes, err := ps.Processes()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	for _, process := range processes {
		if process.Pid() == selfPID {
			continue
		}

		if strings.TrimSuffix(process.Executable(), ".exe") == executable {
			return fmt.Errorf("%w: pid %d", ErrAlreadyRunning, process.Pid())
		}
	}

	return nil
}
