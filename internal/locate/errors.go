package locate

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrPermissionDenied   = errors.New("location permission denied")
	ErrServiceUnavailable = errors.New("location service unavailable")
	ErrPositionTimeout    = errors.New("position fix timed out")
	ErrRetriesExhausted   = errors.New("location recovery retries exhausted")
)

// 定位失败码（与设备端约定一致）
const (
	CodePermissionDenied    = 1
	CodePositionUnavailable = 2
	CodeTimeout             = 3
)

// PositionError：设备定位失败，Code 取值 1/2/3
type PositionError struct {
	Code    int
	Message string
}

func (e *PositionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("position error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("position error %d", e.Code)
}

// 文档注释：定位失败归类
// 约束：未知错误码与非 PositionError 归入 ServiceUnavailable；调用方超时归入 PositionTimeout。
func classify(err error) error {
	var pe *PositionError
	if errors.As(err, &pe) {
		switch pe.Code {
		case CodePermissionDenied:
			return ErrPermissionDenied
		case CodeTimeout:
			return ErrPositionTimeout
		}
		return ErrServiceUnavailable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrPositionTimeout
	}
	return ErrServiceUnavailable
}
