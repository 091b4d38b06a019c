package config

import "github.com/ceyewan/hydra/xerrors"

// ErrValidationFailed 配置验证失败
var ErrValidationFailed = xerrors.New("configuration validation failed")

// IsValidationError 检查错误是否由验证失败引起
func IsValidationError(err error) bool {
	return xerrors.Is(err, ErrValidationFailed)
}
