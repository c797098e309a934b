package generate

import (
	"context"
	"errors"
	"testing"

	"github.com/chazu/hydrogrid/pkg/config"
	"github.com/chazu/hydrogrid/pkg/kernel/memhost"
)

func TestConcurrentRunIsRejected(t *testing.T) {
	host := memhost.New()
	g := New(host, nil)
	g.mu.Lock()
	_, err := g.Generate(context.Background(), config.DefaultParams())
	g.mu.Unlock()
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("Generate while busy = %v, want ErrBusy", err)
	}
	if n := len(host.Objects()); n != 0 {
		t.Errorf("busy run touched the scene: %d objects", n)
	}

	if _, err := g.Generate(context.Background(), config.DefaultParams()); err != nil {
		t.Errorf("Generate after release: %v", err)
	}
}
