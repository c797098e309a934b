package generate

import (
	"fmt"

	"github.com/chazu/hydrogrid/pkg/config"
	"github.com/chazu/hydrogrid/pkg/kernel"
	"github.com/chazu/hydrogrid/pkg/kernel/memhost"
	"github.com/chazu/hydrogrid/pkg/kernel/sdfx"
)

// NewHost returns the host a configuration selects.
func NewHost(c config.HostConfig) (kernel.Host, error) {
	switch c.Kind {
	case "", config.HostMemory:
		return memhost.New(), nil
	case config.HostSDF:
		return &sdfx.Host{Cells: c.Cells}, nil
	}
	return nil, fmt.Errorf("generate: unknown host %q", c.Kind)
}
