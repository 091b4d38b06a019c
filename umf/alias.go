package umf

// alias 描述一个 UMF 字段的长/短两种名称
type alias struct {
	long  string
	short string
}

// aliases 的顺序即短格式报文的字段顺序
var aliases = []alias{
	{"to", "to"},
	{"from", "frm"},
	{"headers", "hdr"},
	{"mid", "mid"},
	{"rmid", "rmid"},
	{"signature", "sig"},
	{"timeout", "tmo"},
	{"timestamp", "ts"},
	{"type", "typ"},
	{"version", "ver"},
	{"via", "via"},
	{"forward", "fwd"},
	{"body", "bdy"},
	{"authorization", "aut"},
}

// Normalize 把短字段名映射为规范的长字段名。
//
// 同一字段的长短两种写法同时出现时，长字段优先；未知字段被丢弃。
// 不填充 mid/timestamp/version 等默认值，默认值由 Build 负责。
func Normalize(raw map[string]any) map[string]any {
	return normalize(raw)
}

func normalize[V any](raw map[string]V) map[string]V {
	out := make(map[string]V, len(raw))
	for _, a := range aliases {
		if v, ok := raw[a.long]; ok {
			out[a.long] = v
			continue
		}
		if v, ok := raw[a.short]; ok {
			out[a.long] = v
		}
	}
	return out
}

// ShortName 返回规范字段名对应的短字段名，未知字段返回空串
func ShortName(long string) string {
	for _, a := range aliases {
		if a.long == long {
			return a.short
		}
	}
	return ""
}
