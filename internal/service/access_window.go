package service

import (
	"fmt"
	"strings"
	"time"

	"gate-control/internal/model"
)

// DateLayout 用户可通行日期的格式
const DateLayout = "2006-01-02"

// AccessWindow 用户的可通行窗口
// 日期区间两端包含，时段为 [HourFrom, HourTo)；HourFrom 与 HourTo 都为 0 表示全天
type AccessWindow struct {
	DateFrom string
	DateTo   string
	HourFrom int
	HourTo   int
}

// WindowOf 取出用户记录上的可通行窗口
func WindowOf(user *model.User) AccessWindow {
	return AccessWindow{
		DateFrom: user.DateFrom,
		DateTo:   user.DateTo,
		HourFrom: user.HourFrom,
		HourTo:   user.HourTo,
	}
}

// ValidWindow 判断 now 是否落在可通行窗口内
// now 先换算到 loc（固定偏移时区）的墙上时间再比较。
// 日期为空或 "0000-00-00" 表示该端不限；无法解析的日期视为不可通行。
// 参数:
//   - now: 当前时刻
//   - loc: 业务时区
//   - w: 可通行窗口
//
// 返回:
//   - bool: 是否允许通行
func ValidWindow(now time.Time, loc *time.Location, w AccessWindow) bool {
	local := now.In(loc)

	if !isUnbounded(w.DateFrom) {
		start, err := time.ParseInLocation(DateLayout, w.DateFrom, loc)
		if err != nil || local.Before(start) {
			return false
		}
	}

	if !isUnbounded(w.DateTo) {
		end, err := time.ParseInLocation(DateLayout, w.DateTo, loc)
		if err != nil {
			return false
		}
		// 截止日当天整天有效，边界为次日 00:00
		if !local.Before(end.AddDate(0, 0, 1)) {
			return false
		}
	}

	if w.HourFrom+w.HourTo != 0 {
		hour := local.Hour()
		if hour < w.HourFrom || hour > w.HourTo-1 {
			return false
		}
	}

	return true
}

// Validate 校验窗口字段本身是否合法（创建/修改用户时调用）
// 返回:
//   - error: 不合法时返回包装了 ErrValidationFailed 的错误
func (w AccessWindow) Validate() error {
	from, err := parseBound(w.DateFrom)
	if err != nil {
		return fmt.Errorf("%w: date_from must be YYYY-MM-DD", ErrValidationFailed)
	}
	to, err := parseBound(w.DateTo)
	if err != nil {
		return fmt.Errorf("%w: date_to must be YYYY-MM-DD", ErrValidationFailed)
	}
	if from != nil && to != nil && from.After(*to) {
		return fmt.Errorf("%w: date_from is after date_to", ErrValidationFailed)
	}

	if w.HourFrom < 0 || w.HourFrom > 23 {
		return fmt.Errorf("%w: hour_from must be between 0 and 23", ErrValidationFailed)
	}
	if w.HourTo < 0 || w.HourTo > 24 {
		return fmt.Errorf("%w: hour_to must be between 0 and 24", ErrValidationFailed)
	}
	if w.HourFrom+w.HourTo != 0 && w.HourFrom >= w.HourTo {
		return fmt.Errorf("%w: hour_from must be less than hour_to", ErrValidationFailed)
	}
	return nil
}

// normalizeDate 空日期统一为不限占位值
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.UnboundedDate
	}
	return s
}

func isUnbounded(s string) bool {
	return s == "" || s == model.UnboundedDate
}

func parseBound(s string) (*time.Time, error) {
	if isUnbounded(s) {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
