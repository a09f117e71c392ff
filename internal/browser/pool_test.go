package browser

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/playwright-community/playwright-go"
	"github.com/shirenchuang/bilibili-data-mcp/pkg/config"
)

func newTestPool(t *testing.T) *Pool {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	return NewPool(cfg, nil)
}

func TestPoolIsLazy(t *testing.T) {
	p := newTestPool(t)

	stats := p.Stats()
	if stats["started"] != false || stats["total"] != 0 {
		t.Errorf("new pool should not start browsers, stats = %v", stats)
	}
}

func TestClosedPoolRejectsGet(t *testing.T) {
	p := newTestPool(t)
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close should be a no-op: %v", err)
	}

	if _, err := p.Get(context.Background()); err == nil {
		t.Fatal("expected error from closed pool")
	}
	if stats := p.Stats(); stats["closed"] != true {
		t.Errorf("stats = %v", stats)
	}
}

// stubLaunch 替换playwright启动，返回不带真实浏览器的实例
func stubLaunch(t *testing.T, launch func(p *Pool) (*Instance, error)) {
	t.Helper()
	origRun, origLaunch := runPlaywright, launchInstance
	t.Cleanup(func() {
		runPlaywright, launchInstance = origRun, origLaunch
	})
	runPlaywright = func(...*playwright.RunOptions) (*playwright.Playwright, error) {
		return nil, nil
	}
	launchInstance = launch
}

func TestPoolRetriesAfterPartialStart(t *testing.T) {
	calls := 0
	stubLaunch(t, func(p *Pool) (*Instance, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("chromium crashed")
		}
		return &Instance{Created: time.Now()}, nil
	})

	p := newTestPool(t)
	p.config.Browser.PoolSize = 2
	p.available = make(chan *Instance, 2)
	defer p.Close()

	if _, err := p.Get(context.Background()); err == nil {
		t.Fatal("expected launch failure")
	}
	if stats := p.Stats(); stats["started"] != false || stats["total"] != 0 {
		t.Fatalf("failed start left instances behind: %v", stats)
	}
	if len(p.available) != 0 {
		t.Fatalf("available queue holds %d stale instances", len(p.available))
	}

	done := make(chan error, 1)
	go func() {
		_, err := p.Get(context.Background())
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("second Get: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("second Get blocked after a failed start")
	}

	stats := p.Stats()
	if stats["started"] != true || stats["total"] != 2 || stats["in_use"] != 1 {
		t.Errorf("stats = %v", stats)
	}
	if calls != 4 {
		t.Errorf("launch calls = %d, want 4", calls)
	}
}

var _ Fetcher = (*Pool)(nil)
