// Package cron 实现简化的五段式 cron 表达式匹配：
// 分 时 日 月 星期，支持 *、逗号列表、区间和 */步长（步长只允许基于 *）。
// 语义是"给定时刻是否命中表达式"，供周期驱动循环在每个 tick 判定。
package cron

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Matches 判断时刻 t 是否命中表达式 expr。
// 表达式非法时返回错误；调用方通常按"不命中"处理并记录日志。
func Matches(expr string, t time.Time) (bool, error) {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return false, fmt.Errorf("cron: expression must have 5 fields, got %q", expr)
	}

	fields := []struct {
		spec  string
		value int
	}{
		{parts[0], t.Minute()},
		{parts[1], t.Hour()},
		{parts[2], t.Day()},
		{parts[3], int(t.Month())},
		{parts[4], int(t.Weekday())}, // 0 = 周日，与 cron 约定一致
	}
	for _, f := range fields {
		ok, err := matchField(f.spec, f.value)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Validate 只做语法校验，不关心时刻。
func Validate(expr string) error {
	_, err := Matches(expr, time.Now())
	return err
}

func matchField(spec string, value int) (bool, error) {
	if spec == "*" {
		return true, nil
	}

	// 逗号列表：任意一项命中即可
	if strings.Contains(spec, ",") {
		for _, part := range strings.Split(spec, ",") {
			n, err := strconv.Atoi(part)
			if err != nil {
				return false, fmt.Errorf("cron: invalid list item %q", part)
			}
			if n == value {
				return true, nil
			}
		}
		return false, nil
	}

	// 区间：start-end
	if strings.Contains(spec, "-") {
		bounds := strings.SplitN(spec, "-", 2)
		start, err1 := strconv.Atoi(bounds[0])
		end, err2 := strconv.Atoi(bounds[1])
		if err1 != nil || err2 != nil {
			return false, fmt.Errorf("cron: invalid range %q", spec)
		}
		return start <= value && value <= end, nil
	}

	// 步长：仅支持 */n
	if strings.Contains(spec, "/") {
		parts := strings.SplitN(spec, "/", 2)
		if parts[0] != "*" {
			return false, fmt.Errorf("cron: step is only supported from *, got %q", spec)
		}
		step, err := strconv.Atoi(parts[1])
		if err != nil || step <= 0 {
			return false, fmt.Errorf("cron: invalid step %q", spec)
		}
		return value%step == 0, nil
	}

	n, err := strconv.Atoi(spec)
	if err != nil {
		return false, fmt.Errorf("cron: invalid field %q", spec)
	}
	return n == value, nil
}
