// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package driver_test

import (
	"github.com/gviegas/vstream/driver"
	_ "github.com/gviegas/vstream/driver/soft"
)

// Variables set by init.
var (
	drv driver.Driver
	gpu driver.GPU
)

func init() {
	for _, d := range driver.Drivers() {
		u, err := d.Open()
		if err != nil {
			continue
		}
		drv, gpu = d, u
		return
	}
	panic("driver_test: no driver could be opened")
}
