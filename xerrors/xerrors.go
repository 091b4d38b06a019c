// Package xerrors 在标准库 errors 之上提供包装、错误码与合并。
//
// 错误码用于跨包传递机器可读的失败类别，调用方通过 GetCode/HasCode 判断，
// 不需要依赖具体的哨兵错误：
//
//	err := xerrors.WithCode(xerrors.Wrap(cause, "presence update"), xerrors.CodeStoreUnavailable)
//	if xerrors.HasCode(err, xerrors.CodeStoreUnavailable) { ... }
package xerrors

import (
	"errors"
	"fmt"
	"strings"
)

// 错误码，与 clog.ErrorWithCode 配合输出
const (
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeInvalidAddress   = "INVALID_ADDRESS"
	CodeInvalidMessage   = "INVALID_MESSAGE"
)

// ErrInvalidInput 参数或配置不合法
var ErrInvalidInput = errors.New("invalid input")

// Wrap 在 err 前追加 msg，err 为 nil 时返回 nil
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// CodedError 携带错误码的错误，Error() 形如 "[CODE] cause"
type CodedError struct {
	Code  string
	Cause error
}

// WithCode 为 err 附加错误码，err 为 nil 时返回 nil
func WithCode(err error, code string) error {
	if err == nil {
		return nil
	}
	return &CodedError{Code: code, Cause: err}
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return "[" + e.Code + "]"
	}
	return "[" + e.Code + "] " + e.Cause.Error()
}

func (e *CodedError) Unwrap() error { return e.Cause }

// GetCode 返回错误链上最外层的错误码，没有时返回空串
func GetCode(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}

// HasCode 错误链上任意一层带有 code 时返回 true
func HasCode(err error, code string) bool {
	for err != nil {
		if coded, ok := err.(*CodedError); ok && coded.Code == code {
			return true
		}
		switch u := err.(type) {
		case interface{ Unwrap() error }:
			err = u.Unwrap()
		case interface{ Unwrap() []error }:
			for _, e := range u.Unwrap() {
				if HasCode(e, code) {
					return true
				}
			}
			return false
		default:
			return false
		}
	}
	return false
}

// Must 用于字面量与初始化，err 非 nil 时 panic
func Must[T any](v T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("must: %v", err))
	}
	return v
}

// MultiError 多个独立失败的集合，例如同时关闭多个订阅
type MultiError struct {
	Errors []error
}

func (m *MultiError) Error() string {
	msgs := make([]string, len(m.Errors))
	for i, err := range m.Errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (m *MultiError) Unwrap() []error { return m.Errors }

// Combine 丢弃 nil 后合并：零个返回 nil，一个原样返回
func Combine(errs ...error) error {
	var kept []error
	for _, err := range errs {
		if err != nil {
			kept = append(kept, err)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return &MultiError{Errors: kept}
}

var (
	New    = errors.New
	Is     = errors.Is
	As     = errors.As
	Errorf = fmt.Errorf
)
