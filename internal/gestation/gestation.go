// Package gestation 根据末次月经日期（LMP）计算孕周
package gestation

import "time"

// Clock 时钟提供者
type Clock interface {
	Now() time.Time
}

// ClockFunc 函数形式的时钟
type ClockFunc func() time.Time

// Now 实现 Clock
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock 系统时钟
type SystemClock struct{}

// Now 实现 Clock
func (SystemClock) Now() time.Time { return time.Now() }

// Weeks 计算完整孕周：floor(日历天数差 / 7)
// 两个时间都按 LMP 所在时区截断到当天零点；不做合理性校验，负值原样返回
func Weeks(lmp, now time.Time) int {
	loc := lmp.Location()
	start := time.Date(lmp.Year(), lmp.Month(), lmp.Day(), 0, 0, 0, 0, time.UTC)
	n := now.In(loc)
	end := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)

	// 不使用 Sub：time.Duration 上限约 292 年
	days := int(end.Unix()/secondsPerDay - start.Unix()/secondsPerDay)
	return floorDiv(days, 7)
}

const secondsPerDay = 24 * 60 * 60

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Calculator 绑定时钟的孕周计算器
type Calculator struct {
	clock Clock
}

// NewCalculator 创建孕周计算器，clock 为 nil 时使用系统时钟
func NewCalculator(clock Clock) *Calculator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Calculator{clock: clock}
}

// WeeksSince 从 LMP 到当前时钟的完整孕周
func (c *Calculator) WeeksSince(lmp time.Time) int {
	return Weeks(lmp, c.clock.Now())
}
