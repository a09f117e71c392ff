package browser

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/playwright-community/playwright-go"
	"github.com/shirenchuang/bilibili-data-mcp/pkg/config"
	"github.com/shirenchuang/bilibili-data-mcp/pkg/logger"
)

var (
	runPlaywright  = playwright.Run
	launchInstance = (*Pool).createInstance
)

// Pool 浏览器池，第一次使用时才启动playwright
type Pool struct {
	browsers   []*Instance
	available  chan *Instance
	mu         sync.Mutex
	config     *config.Config
	cookies    []playwright.OptionalCookie
	playwright *playwright.Playwright
	started    bool
	closed     bool
}

// Instance 浏览器实例
type Instance struct {
	Browser playwright.Browser
	InUse   bool
	Created time.Time
	LastUse time.Time
}

// NewPool 创建浏览器池，cookies会注入到每个新建的浏览器上下文
func NewPool(cfg *config.Config, cookies []playwright.OptionalCookie) *Pool {
	return &Pool{
		browsers:  make([]*Instance, 0, cfg.Browser.PoolSize),
		available: make(chan *Instance, cfg.Browser.PoolSize),
		config:    cfg,
		cookies:   cookies,
	}
}

// start 启动playwright并创建浏览器实例
func (p *Pool) start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.New("浏览器池已关闭")
	}
	if p.started {
		return nil
	}

	logger.Info("初始化浏览器池...")
	pw, err := runPlaywright()
	if err != nil {
		return errors.Wrap(err, "启动playwright失败，请先安装浏览器驱动")
	}
	p.playwright = pw

	// 全部实例启动成功后才放入可用队列，失败时不留下已关闭的实例
	launched := make([]*Instance, 0, p.config.Browser.PoolSize)
	for i := 0; i < p.config.Browser.PoolSize; i++ {
		instance, err := launchInstance(p)
		if err != nil {
			p.browsers = launched
			p.shutdown()
			return errors.Wrapf(err, "创建浏览器实例 %d 失败", i)
		}
		launched = append(launched, instance)
	}
	p.browsers = launched
	for _, instance := range launched {
		p.available <- instance
	}

	p.started = true
	logger.Infof("浏览器池初始化完成，池大小: %d", p.config.Browser.PoolSize)
	return nil
}

// Get 获取一个可用的浏览器实例
func (p *Pool) Get(ctx context.Context) (*Instance, error) {
	if err := p.start(); err != nil {
		return nil, err
	}

	select {
	case instance, ok := <-p.available:
		if !ok {
			return nil, errors.New("浏览器池已关闭")
		}
		p.mu.Lock()
		instance.InUse = true
		instance.LastUse = time.Now()
		p.mu.Unlock()
		return instance, nil
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "等待浏览器实例被取消")
	case <-time.After(30 * time.Second):
		return nil, errors.New("获取浏览器实例超时")
	}
}

// Put 归还浏览器实例到池中
func (p *Pool) Put(instance *Instance) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	instance.InUse = false

	select {
	case p.available <- instance:
	default:
		logger.Warn("浏览器池已满，无法归还实例")
	}
}

// NewPage 获取带cookies的新页面，调用方用完后必须调用cleanup
func (p *Pool) NewPage(ctx context.Context) (playwright.Page, func(), error) {
	instance, err := p.Get(ctx)
	if err != nil {
		return nil, nil, err
	}

	bctx, err := instance.Browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(p.config.Browser.UserAgent),
		Viewport: &playwright.Size{
			Width:  p.config.Browser.Viewport.Width,
			Height: p.config.Browser.Viewport.Height,
		},
	})
	if err != nil {
		p.Put(instance)
		return nil, nil, errors.Wrap(err, "创建浏览器上下文失败")
	}

	if len(p.cookies) > 0 {
		if err := bctx.AddCookies(p.cookies); err != nil {
			bctx.Close()
			p.Put(instance)
			return nil, nil, errors.Wrap(err, "设置cookies失败")
		}
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		p.Put(instance)
		return nil, nil, errors.Wrap(err, "创建页面失败")
	}

	cleanup := func() {
		page.Close()
		bctx.Close()
		p.Put(instance)
	}
	return page, cleanup, nil
}

// Fetch 用无头浏览器打开页面并返回渲染后的HTML
func (p *Pool) Fetch(ctx context.Context, rawURL string, opts FetchOptions) (*Page, error) {
	page, cleanup, err := p.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = p.config.Browser.Timeout
	}
	timeoutMs := float64(timeout.Milliseconds())

	gotoOpts := playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(timeoutMs),
	}
	if opts.Referer != "" {
		gotoOpts.Referer = playwright.String(opts.Referer)
	}

	logger.Debugf("浏览器打开页面: %s", rawURL)
	resp, err := page.Goto(rawURL, gotoOpts)
	if err != nil {
		return nil, errors.Wrapf(err, "导航到页面失败: %s", rawURL)
	}

	result := &Page{URL: page.URL()}
	if resp != nil {
		result.StatusCode = resp.Status()
	}

	if opts.WaitSelector != "" {
		if _, err := page.WaitForSelector(opts.WaitSelector, playwright.PageWaitForSelectorOptions{
			Timeout: playwright.Float(timeoutMs / 3),
		}); err != nil {
			logger.Warnf("等待元素 %s 超时，继续解析当前页面", opts.WaitSelector)
		}
	}

	html, err := page.Content()
	if err != nil {
		return nil, errors.Wrap(err, "读取页面内容失败")
	}
	result.HTML = html
	return result, nil
}

// Close 关闭浏览器池
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	close(p.available)
	p.shutdown()

	logger.Info("浏览器池已关闭")
	return nil
}

// shutdown 关闭所有实例，调用方需持有锁
func (p *Pool) shutdown() {
	for _, instance := range p.browsers {
		if instance.Browser != nil {
			instance.Browser.Close()
		}
	}
	p.browsers = nil

	if p.playwright != nil {
		p.playwright.Stop()
		p.playwright = nil
	}
}

// createInstance 创建浏览器实例
func (p *Pool) createInstance() (*Instance, error) {
	browser, err := p.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(p.config.Browser.Headless),
		Args: []string{
			"--no-sandbox",
			"--disable-setuid-sandbox",
			"--disable-dev-shm-usage",
			"--disable-blink-features=AutomationControlled",
			"--no-first-run",
			"--disable-gpu",
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "启动浏览器失败")
	}

	return &Instance{
		Browser: browser,
		Created: time.Now(),
		LastUse: time.Now(),
	}, nil
}

// Stats 获取浏览器池统计信息
func (p *Pool) Stats() map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	inUseCount := 0
	for _, instance := range p.browsers {
		if instance.InUse {
			inUseCount++
		}
	}

	return map[string]interface{}{
		"total":     len(p.browsers),
		"in_use":    inUseCount,
		"available": len(p.browsers) - inUseCount,
		"started":   p.started,
		"closed":    p.closed,
	}
}
