package cnki

import (
	"fmt"
)

// ParseError 结果行缺少必需区域或内容格式不对。遍历遇到即中止，不会产出残缺记录
type ParseError struct {
	Row   int // 数据行序号，从 1 开始；0 表示未知
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("parse row %d: %s: %v", e.Row, e.Field, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NavigationError 页面缺少结果总数或每页条数区域
type NavigationError struct {
	Region string
	Err    error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation: %s: %v", e.Region, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }
