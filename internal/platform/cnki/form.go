package cnki

import (
	"context"
	"errors"
	"fmt"

	"CNKIHunter/internal/browser"
)

const (
	fieldKeyword   = "txt_1_value1"
	selResultFrame = `iframe[name="iframeResult"]`
	// 每页条数切换链接中的第三个是最大值
	selMaxContent = "#id_grid_display_num > a:nth-child(3)"
)

// SearchForm 首页检索表单：提交关键词并进入结果框架
type SearchForm struct {
	session browser.Session
	cfg     *Config
}

func NewSearchForm(session browser.Session, cfg *Config) *SearchForm {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &SearchForm{session: session, cfg: cfg}
}

func (f *SearchForm) SubmitSearch(ctx context.Context, keyword string) error {
	if keyword == "" {
		return errors.New("keyword is required")
	}
	input, err := f.session.WaitFor(ctx, browser.Name(fieldKeyword), f.cfg.LoadTimeout)
	if err != nil {
		return fmt.Errorf("search field: %w", err)
	}
	if err := f.session.Fill(input, keyword); err != nil {
		return fmt.Errorf("fill keyword: %w", err)
	}
	if err := f.session.Submit(ctx, input); err != nil {
		return fmt.Errorf("submit search: %w", err)
	}
	return nil
}

// SwitchToFrame 进入结果 iframe 并等待结果表格出现
func (f *SearchForm) SwitchToFrame(ctx context.Context) error {
	frame, err := f.session.WaitFor(ctx, browser.CSS(selResultFrame), f.cfg.FrameTimeout)
	if err != nil {
		return fmt.Errorf("result frame: %w", err)
	}
	if err := f.session.SwitchToFrame(ctx, frame); err != nil {
		return fmt.Errorf("switch to result frame: %w", err)
	}
	if _, err := f.session.WaitFor(ctx, browser.CSS(selResultsTable), f.cfg.FrameTimeout); err != nil {
		return fmt.Errorf("results table: %w", err)
	}
	return nil
}

// MaxContent 把每页显示条数切换到最大
func (f *SearchForm) MaxContent(ctx context.Context) error {
	link, err := f.session.Find(browser.CSS(selMaxContent))
	if err != nil {
		return fmt.Errorf("page size switch: %w", err)
	}
	if err := f.session.Click(ctx, link); err != nil {
		return fmt.Errorf("maximize page size: %w", err)
	}
	return nil
}

// Query 依次提交检索、进入结果框架、切换每页最大条数
func (f *SearchForm) Query(ctx context.Context, keyword string) error {
	if err := f.SubmitSearch(ctx, keyword); err != nil {
		return err
	}
	if err := f.SwitchToFrame(ctx); err != nil {
		return err
	}
	if f.cfg.Maximize {
		return f.MaxContent(ctx)
	}
	return nil
}
