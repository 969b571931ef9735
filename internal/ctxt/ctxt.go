// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package ctxt selects the GPU driver used by the renderer.
package ctxt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gviegas/vstream/driver"
)

// ErrNoDriver means that no registered driver matched
// the requested name.
var ErrNoDriver = errors.New("ctxt: driver not found")

// Load attempts to open any registered driver whose name
// contains the name string. It is case insensitive.
// If name is the empty string, then all registered
// drivers are considered.
// Drivers are tried in registration order, and the first
// one that opens successfully is returned.
func Load(name string) (driver.Driver, driver.GPU, error) {
	var errs []error
	lname := strings.ToLower(name)
	for _, drv := range driver.Drivers() {
		if !strings.Contains(strings.ToLower(drv.Name()), lname) {
			continue
		}
		gpu, err := drv.Open()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", drv.Name(), err))
			continue
		}
		return drv, gpu, nil
	}
	if len(errs) == 0 {
		return nil, nil, fmt.Errorf("%w: %q", ErrNoDriver, name)
	}
	return nil, nil, errors.Join(append([]error{fmt.Errorf("%w: %q", ErrNoDriver, name)}, errs...)...)
}
