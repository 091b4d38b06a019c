// Package jsoncodec 是 hydra 线上报文与存储值统一使用的 JSON 编解码入口。
package jsoncodec

import (
	"github.com/bytedance/sonic"
)

// ConfigStd 与 encoding/json 行为保持一致：map key 排序、html 转义、RawMessage 压缩
var defaultConfig = sonic.ConfigStd

// numberConfig 在 ConfigStd 基础上把数字解码为 json.Number，大整数与小数不失真
var numberConfig = sonic.Config{
	EscapeHTML:       true,
	SortMapKeys:      true,
	CompactMarshaler: true,
	CopyString:       true,
	ValidateString:   true,
	UseNumber:        true,
}.Froze()

func Marshal(v any) ([]byte, error) {
	return defaultConfig.Marshal(v)
}

func MarshalString(v any) (string, error) {
	return defaultConfig.MarshalToString(v)
}

func Unmarshal(data []byte, v any) error {
	return defaultConfig.Unmarshal(data, v)
}

// UnmarshalNumber 同 Unmarshal，但 interface{} 中的数字解码为 json.Number
func UnmarshalNumber(data []byte, v any) error {
	return numberConfig.Unmarshal(data, v)
}

func UnmarshalString(data string, v any) error {
	return defaultConfig.UnmarshalFromString(data, v)
}
