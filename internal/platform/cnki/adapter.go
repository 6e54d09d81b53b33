package cnki

import (
	"context"
	"fmt"
	"iter"

	"CNKIHunter/internal/browser"
	"CNKIHunter/internal/core"
	"CNKIHunter/internal/models"
	"CNKIHunter/internal/platform"
	"CNKIHunter/pkg/logger"
)

// SessionFactory 为每次检索创建新的浏览会话
type SessionFactory func(cfg *Config) (browser.Session, error)

type Adapter struct {
	config     *Config
	newSession SessionFactory
	log        *logger.Logger
}

type Option func(*Adapter)

// WithSessionFactory 替换默认的 HTTP 会话，测试中用于注入 browsertest.Session
func WithSessionFactory(f SessionFactory) Option {
	return func(a *Adapter) { a.newSession = f }
}

func NewAdapter(config *Config, opts ...Option) (*Adapter, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	a := &Adapter{
		config:     config,
		newSession: newHTTPSession,
		log:        logger.WithPrefix("CNKI"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func newHTTPSession(cfg *Config) (browser.Session, error) {
	client, err := core.NewSessionClient(cfg.Timeout, cfg.Proxy)
	if err != nil {
		return nil, err
	}
	return browser.NewHTTPSession(client, browser.HTTPOptions{
		UserAgent:    cfg.UserAgent,
		Charset:      cfg.Charset,
		PageInterval: cfg.PageInterval,
		PollInterval: cfg.PollInterval,
	}), nil
}

func (a *Adapter) Name() string { return "cnki" }

func (a *Adapter) GetConfig() platform.Config { return a.config }

// Open 打开首页并提交检索，返回的游标持有会话，调用方必须 Close
func (a *Adapter) Open(ctx context.Context, q platform.Query) (platform.Cursor, error) {
	if q.Keyword == "" {
		return nil, fmt.Errorf("keyword is required")
	}
	maxPages := a.config.MaxPages
	if q.MaxPages > 0 && q.MaxPages < maxPages {
		maxPages = q.MaxPages
	}

	session, err := a.newSession(a.config)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	a.log.Info("正在搜尋中國期刊網……")
	a.log.Info("關鍵字：「%s」", q.Keyword)

	if err := session.Open(ctx, a.config.BaseURL); err != nil {
		session.Close()
		return nil, fmt.Errorf("open %s: %w", a.config.BaseURL, err)
	}
	if err := NewSearchForm(session, a.config).Query(ctx, q.Keyword); err != nil {
		session.Close()
		return nil, err
	}

	return &cursor{
		ctx:     ctx,
		session: session,
		walker:  NewWalker(NewNavigator(session, a.config), maxPages),
	}, nil
}

func (a *Adapter) Search(ctx context.Context, q platform.Query) (platform.Result, error) {
	cur, err := a.Open(ctx, q)
	if err != nil {
		return platform.Result{}, err
	}
	defer cur.Close()

	res, err := platform.Collect(cur)
	if err != nil {
		return res, err
	}
	a.log.Info("检索完成，共取回 %d 条记录", len(res.Records))
	return res, nil
}

type cursor struct {
	ctx     context.Context
	session browser.Session
	walker  *Walker
}

func (c *cursor) Records() iter.Seq2[*models.Record, error] {
	return c.walker.Records(c.ctx)
}

func (c *cursor) Total() int { return c.walker.Metadata().TotalResults }

// Pages 已访问的结果页数
func (c *cursor) Pages() int { return c.walker.Pages() }

func (c *cursor) Close() error { return c.session.Close() }

var _ platform.Platform = (*Adapter)(nil)
