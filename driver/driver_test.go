// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package driver_test

import (
	"testing"

	"github.com/gviegas/vstream/driver"
)

func TestDrivers(t *testing.T) {
	drivers := driver.Drivers()
	for i := range drivers {
		name := drivers[i].Name()
		for j := range i {
			if name == drivers[j].Name() {
				t.Error("driver.Drivers: Driver.Name is not unique")
			}
		}
	}
	drivers2 := driver.Drivers()
	if len(drivers) != len(drivers2) {
		t.Error("driver.Drivers: length mismatch")
	} else {
		for i := range drivers {
			if drivers[i].Name() != drivers2[i].Name() {
				t.Error("driver.Drivers: Driver.Name mismatch")
			}
		}
	}
	drivers[0] = nil
	if driver.Drivers()[0] == nil {
		t.Error("driver.Drivers: returned slice aliases the registry")
	}
}

type fakeDriver struct{ name string }

func (d *fakeDriver) Open() (driver.GPU, error) { return nil, driver.ErrNoDevice }
func (d *fakeDriver) Name() string              { return d.name }
func (d *fakeDriver) Close()                    {}

func TestRegister(t *testing.T) {
	n := len(driver.Drivers())
	first := &fakeDriver{"fake-register"}
	driver.Register(first)
	if have, want := len(driver.Drivers()), n+1; have != want {
		t.Fatalf("driver.Register: len(Drivers()):\nhave %d\nwant %d", have, want)
	}
	second := &fakeDriver{"fake-register"}
	driver.Register(second)
	if have, want := len(driver.Drivers()), n+1; have != want {
		t.Fatalf("driver.Register: len(Drivers()) after replacement:\nhave %d\nwant %d", have, want)
	}
	for _, d := range driver.Drivers() {
		if d == driver.Driver(first) {
			t.Fatal("driver.Register: driver was not replaced")
		}
	}
}

func TestDriverName(t *testing.T) {
	name := drv.Name()
	if name == "" {
		t.Error("Driver.Name: name is empty")
	}
	drv.Close()
	if drv.Name() != name {
		t.Error("Driver.Name: unexpected name after call to Close")
	}
	u, err := drv.Open()
	if err != nil {
		t.Fatal("Failed to re-Open drv - cannot continue")
	}
	gpu = u
	if drv.Name() != name {
		t.Error("Driver.Name: unexpected name after call to Open")
	}
}
