// Package clock 提供可注入的时间源，计息/计收益统一从这里取当前时间
package clock

import "time"

// Clock 时间源接口
type Clock interface {
	Now() time.Time
}

// SystemClock 系统时钟
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// New 返回默认系统时钟
func New() Clock { return SystemClock{} }

// FixedClock 固定时钟，测试中用于模拟时间流逝
type FixedClock struct {
	t time.Time
}

func NewFixed(t time.Time) *FixedClock { return &FixedClock{t: t} }

func (f *FixedClock) Now() time.Time { return f.t }

// Advance 前进指定时长
func (f *FixedClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

// Set 设置当前时间
func (f *FixedClock) Set(t time.Time) { f.t = t }
