package hydra

import (
	"github.com/ceyewan/hydra/umf"
	"github.com/ceyewan/hydra/xerrors"
)

// Sentinel Errors
var (
	// ErrInvalidAddress to 字段无法解析，未发生任何写入
	ErrInvalidAddress = umf.ErrInvalidAddress
	// ErrInvalidMessage 信封缺少 from/to/body，未发生任何写入
	ErrInvalidMessage = umf.ErrInvalidMessage

	ErrStoreUnavailable   = xerrors.New("hydra: store unavailable")
	ErrInvalidConfig      = xerrors.New("hydra: invalid config")
	ErrAlreadyInitialized = xerrors.New("hydra: already initialized")
	ErrClosed             = xerrors.New("hydra: service closed")
)

// storeError 包装 Redis 错误：同时满足 errors.Is(err, ErrStoreUnavailable)
// 与 xerrors.GetCode(err) == STORE_UNAVAILABLE
func storeError(err error, op string) error {
	return xerrors.WithCode(
		xerrors.Errorf("hydra: %s: %w: %w", op, ErrStoreUnavailable, err),
		xerrors.CodeStoreUnavailable,
	)
}

// invalidAddress 为地址错误附加 INVALID_ADDRESS 错误码
func invalidAddress(err error) error {
	return xerrors.WithCode(err, xerrors.CodeInvalidAddress)
}

// invalidMessage 为信封错误附加 INVALID_MESSAGE 错误码
func invalidMessage(err error) error {
	return xerrors.WithCode(err, xerrors.CodeInvalidMessage)
}
