// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package ctxt

import (
	"errors"
	"testing"

	"github.com/gviegas/vstream/driver"
	_ "github.com/gviegas/vstream/driver/soft"
)

// failing is a driver that never opens.
type failing struct{}

func (failing) Open() (driver.GPU, error) { return nil, driver.ErrNoDevice }
func (failing) Name() string              { return "failing-test" }
func (failing) Close()                    {}

func init() {
	driver.Register(failing{})
}

func TestLoad(t *testing.T) {
	for _, name := range [...]string{"", "soft", "SOFT", "of"} {
		drv, gpu, err := Load(name)
		if err != nil {
			t.Fatalf("Load(%q):\nhave %v\nwant nil", name, err)
		}
		if drv == nil || gpu == nil {
			t.Fatalf("Load(%q): unexpected nil driver/GPU", name)
		}
		if drv.Name() != "soft" {
			t.Fatalf("Load(%q).Name():\nhave %s\nwant soft", name, drv.Name())
		}
		if gpu.Driver() != drv {
			t.Fatalf("Load(%q): GPU not owned by driver", name)
		}
	}
}

func TestLoadFailure(t *testing.T) {
	if _, _, err := Load("vulkan"); !errors.Is(err, ErrNoDriver) {
		t.Fatalf("Load(\"vulkan\"):\nhave %v\nwant %v", err, ErrNoDriver)
	}
	_, _, err := Load("failing")
	if !errors.Is(err, ErrNoDriver) || !errors.Is(err, driver.ErrNoDevice) {
		t.Fatalf("Load(\"failing\"):\nhave %v\nwant %v and %v", err, ErrNoDriver, driver.ErrNoDevice)
	}
}
