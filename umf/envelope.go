// Package umf 实现 UMF (Universal Messaging Format) 消息信封的编解码。
//
// 信封在内存中只有一种规范结构 Envelope；线上报文既可以使用长字段名
// (from/body/...) 也可以使用短字段名 (frm/bdy/...)，解码时统一归一化，
// 编码时始终输出短格式。
//
//	env := umf.New(umf.Envelope{
//		To:   "orders:[post]/v1/orders",
//		From: "billing:/",
//		Body: umf.MustBody(map[string]any{"id": 42}),
//	})
//	data, _ := json.Marshal(env) // {"to":"orders:[post]/v1/orders","frm":"billing:/",...}
package umf

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/ceyewan/hydra/internal/jsoncodec"
	"github.com/ceyewan/hydra/xerrors"
)

const (
	// Version 未显式指定 version 时使用的协议版本
	Version = "UMF/1.4.6"

	// TimestampLayout ISO-8601 UTC，微秒精度，Z 结尾
	TimestampLayout = "2006-01-02T15:04:05.000000Z"
)

var (
	// ErrInvalidMessage 信封缺少 from/to/body
	ErrInvalidMessage = xerrors.New("umf: invalid message")

	// ErrInvalidAddress to 字段无法解析为路由地址
	ErrInvalidAddress = xerrors.New("umf: invalid address")
)

// Envelope 规范化后的 UMF 信封。构造完成后视为不可变，修改请使用返回副本的方法。
//
// 字符串字段为空表示字段缺失；Body 为 nil 表示缺失，空对象 {} 视为存在。
type Envelope struct {
	To            string
	From          string
	Headers       map[string]any
	Mid           string
	Rmid          string
	Signature     string
	Timeout       json.RawMessage
	Timestamp     string
	Type          string
	Version       string
	Via           string
	Forward       string
	Body          json.RawMessage
	Authorization string

	raw []byte
}

// wireEnvelope 短格式报文，字段顺序与 aliases 一致
type wireEnvelope struct {
	To            string          `json:"to,omitempty"`
	From          string          `json:"frm,omitempty"`
	Headers       map[string]any  `json:"hdr,omitempty"`
	Mid           string          `json:"mid,omitempty"`
	Rmid          string          `json:"rmid,omitempty"`
	Signature     string          `json:"sig,omitempty"`
	Timeout       json.RawMessage `json:"tmo,omitempty"`
	Timestamp     string          `json:"ts,omitempty"`
	Type          string          `json:"typ,omitempty"`
	Version       string          `json:"ver,omitempty"`
	Via           string          `json:"via,omitempty"`
	Forward       string          `json:"fwd,omitempty"`
	Body          json.RawMessage `json:"bdy,omitempty"`
	Authorization string          `json:"aut,omitempty"`
}

// New 复制 e 并补齐 mid、timestamp、version 默认值
func New(e Envelope) *Envelope {
	out := e.clone()
	out.complete()
	return out
}

// Build 从字段映射构造信封：先归一化长短字段名，再补齐默认值
func Build(fields map[string]any) (*Envelope, error) {
	data, err := jsoncodec.Marshal(fields)
	if err != nil {
		return nil, xerrors.Wrap(err, "umf: encode fields")
	}
	e, err := Parse(data)
	if err != nil {
		return nil, err
	}
	e.raw = nil
	return e, nil
}

// Parse 解码一条线上报文（长短格式均可）并补齐默认值。
// 返回的信封会记住原始字节，见 Raw。
func Parse(data []byte) (*Envelope, error) {
	var e Envelope
	if err := e.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	e.complete()
	e.raw = slices.Clone(data)
	return &e, nil
}

// Raw 返回 Parse 时的原始报文；通过其他方式构造的信封返回 nil
func (e *Envelope) Raw() []byte {
	return e.raw
}

func (e *Envelope) complete() {
	if e.Mid == "" {
		e.Mid = NewMessageID()
	}
	if e.Timestamp == "" {
		e.Timestamp = Timestamp()
	}
	if e.Version == "" {
		e.Version = Version
	}
}

func (e *Envelope) clone() *Envelope {
	out := *e
	out.Headers = maps.Clone(e.Headers)
	out.Body = slices.Clone(e.Body)
	out.Timeout = slices.Clone(e.Timeout)
	out.raw = nil
	return &out
}

// Validate from、to 非空且 body 存在时信封有效
func (e *Envelope) Validate() error {
	switch {
	case e == nil:
		return ErrInvalidMessage
	case e.From == "":
		return xerrors.Wrap(ErrInvalidMessage, "missing from")
	case e.To == "":
		return xerrors.Wrap(ErrInvalidMessage, "missing to")
	case e.Body == nil:
		return xerrors.Wrap(ErrInvalidMessage, "missing body")
	}
	return nil
}

func (e *Envelope) IsValid() bool {
	return e.Validate() == nil
}

// MarshalJSON 始终输出短格式，缺失字段不输出
func (e Envelope) MarshalJSON() ([]byte, error) {
	return jsoncodec.Marshal(wireEnvelope{
		To:            e.To,
		From:          e.From,
		Headers:       e.Headers,
		Mid:           e.Mid,
		Rmid:          e.Rmid,
		Signature:     e.Signature,
		Timeout:       e.Timeout,
		Timestamp:     e.Timestamp,
		Type:          e.Type,
		Version:       e.Version,
		Via:           e.Via,
		Forward:       e.Forward,
		Body:          e.Body,
		Authorization: e.Authorization,
	})
}

// UnmarshalJSON 接受长短两种字段名，按 Normalize 规则归一化；不补默认值
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := jsoncodec.Unmarshal(data, &raw); err != nil {
		return xerrors.Wrap(err, "umf: decode envelope")
	}

	var out Envelope
	strs := out.stringFields()
	for key, val := range normalize(raw) {
		if isNull(val) {
			continue
		}
		var err error
		switch key {
		case "headers":
			err = jsoncodec.Unmarshal(val, &out.Headers)
		case "timeout":
			out.Timeout = json.RawMessage(slices.Clone(val))
		case "body":
			out.Body = json.RawMessage(slices.Clone(val))
		default:
			err = jsoncodec.Unmarshal(val, strs[key])
		}
		if err != nil {
			return xerrors.Wrapf(err, "umf: decode field %q", key)
		}
	}
	*e = out
	return nil
}

func (e *Envelope) stringFields() map[string]*string {
	return map[string]*string{
		"to":            &e.To,
		"from":          &e.From,
		"mid":           &e.Mid,
		"rmid":          &e.Rmid,
		"signature":     &e.Signature,
		"timestamp":     &e.Timestamp,
		"type":          &e.Type,
		"version":       &e.Version,
		"via":           &e.Via,
		"forward":       &e.Forward,
		"authorization": &e.Authorization,
	}
}

// TimeoutSeconds 将 timeout 解释为秒数，数字或数字字符串均可
func (e *Envelope) TimeoutSeconds() (time.Duration, bool) {
	if e.Timeout == nil {
		return 0, false
	}
	var v any
	if err := jsoncodec.UnmarshalNumber(e.Timeout, &v); err != nil {
		return 0, false
	}
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = t
	default:
		return 0, false
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

// ToShort 返回短字段名的映射，缺失字段不出现；
// timeout 与 body 解码为通用值，数字保持为 json.Number
func (e *Envelope) ToShort() map[string]any {
	out := make(map[string]any, len(aliases))
	for long, v := range e.present() {
		out[ShortName(long)] = v
	}
	return out
}

// ToLong 返回长字段名的映射
func (e *Envelope) ToLong() map[string]any {
	return e.present()
}

func (e *Envelope) present() map[string]any {
	out := make(map[string]any, len(aliases))
	for key, p := range e.stringFields() {
		if *p != "" {
			out[key] = *p
		}
	}
	if e.Headers != nil {
		out["headers"] = e.Headers
	}
	if e.Timeout != nil {
		var tmo any
		if err := jsoncodec.UnmarshalNumber(e.Timeout, &tmo); err == nil {
			out["timeout"] = tmo
		}
	}
	if e.Body != nil {
		var body any
		if err := jsoncodec.UnmarshalNumber(e.Body, &body); err == nil {
			out["body"] = body
		}
	}
	return out
}

// DecodeBody 将 body 解码到 v
func (e *Envelope) DecodeBody(v any) error {
	if e.Body == nil {
		return xerrors.Wrap(ErrInvalidMessage, "missing body")
	}
	return jsoncodec.Unmarshal(e.Body, v)
}

// WithBodyField 返回 body 中 key 被设置为 value 的副本；body 缺失时视为空对象
func (e *Envelope) WithBodyField(key string, value any) (*Envelope, error) {
	body := map[string]any{}
	if e.Body != nil && !isNull(e.Body) {
		if err := jsoncodec.Unmarshal(e.Body, &body); err != nil {
			return nil, xerrors.Wrap(ErrInvalidMessage, "body is not an object")
		}
	}
	body[key] = value

	encoded, err := EncodeBody(body)
	if err != nil {
		return nil, err
	}
	out := e.clone()
	out.Body = encoded
	return out, nil
}

// WithBody 返回 body 替换为 v 的编码结果的副本
func (e *Envelope) WithBody(v any) (*Envelope, error) {
	encoded, err := EncodeBody(v)
	if err != nil {
		return nil, err
	}
	out := e.clone()
	out.Body = encoded
	return out, nil
}

// WithHeaders 返回 headers 替换为 h 的副本
func (e *Envelope) WithHeaders(h map[string]any) *Envelope {
	out := e.clone()
	out.Headers = maps.Clone(h)
	return out
}

// Reply 构造一条回复：to 为原消息的 via（缺失时为 from），from 为原消息的 to，
// rmid 为原消息的 mid；fields 最后覆盖，冲突时以 fields 为准
func (e *Envelope) Reply(fields map[string]any) (*Envelope, error) {
	to := e.Via
	if to == "" {
		to = e.From
	}
	base := map[string]any{
		"to":   to,
		"from": e.To,
		"rmid": e.Mid,
	}
	maps.Copy(base, Normalize(fields))
	return Build(base)
}

// EncodeBody 将任意值编码为 body
func EncodeBody(v any) (json.RawMessage, error) {
	data, err := jsoncodec.Marshal(v)
	if err != nil {
		return nil, xerrors.Wrap(err, "umf: encode body")
	}
	return data, nil
}

// MustBody 同 EncodeBody，失败时 panic，仅用于字面量
func MustBody(v any) json.RawMessage {
	return xerrors.Must(EncodeBody(v))
}

// Timestamp 返回当前 UTC 时间的 UMF 时间戳
func Timestamp() string {
	return time.Now().UTC().Format(TimestampLayout)
}

// ParseTimestamp 解析 UMF 时间戳，兼容小写 z 结尾
func ParseTimestamp(s string) (time.Time, error) {
	if n := len(s); n > 0 && s[n-1] == 'z' {
		s = s[:n-1] + "Z"
	}
	return time.Parse(time.RFC3339Nano, s)
}

func isNull(v []byte) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
