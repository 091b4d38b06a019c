package hydra

import "strings"

// 队列的三个列表
const (
	listReceived   = "received"
	listInProgress = "in-progress"
	listIncomplete = "incomplete"
)

// keyspace 所有键共享同一个前缀
//
//	{prefix}:{svc}:service               服务描述
//	{prefix}:{svc}:service:routes        路由集合
//	{prefix}:{svc}:{id}:presence         存活标记 (TTL)
//	{prefix}:{svc}:{id}:health           健康快照 (TTL)
//	{prefix}:{svc}:{id}:health:log       健康日志过期标记 (1 周)
//	{prefix}:nodes                       实例索引 hash
//	{prefix}:{svc}:{list}                可靠队列
//	{prefix}:mc:{svc}[:{id}]             广播/直连通道
type keyspace struct {
	prefix string
}

func (k keyspace) join(parts ...string) string {
	return k.prefix + ":" + strings.Join(parts, ":")
}

func (k keyspace) service(svc string) string      { return k.join(svc, "service") }
func (k keyspace) routes(svc string) string       { return k.join(svc, "service", "routes") }
func (k keyspace) presence(svc, id string) string { return k.join(svc, id, "presence") }
func (k keyspace) health(svc, id string) string   { return k.join(svc, id, "health") }
func (k keyspace) healthLog(svc, id string) string {
	return k.join(svc, id, "health", "log")
}
func (k keyspace) nodes() string                     { return k.join("nodes") }
func (k keyspace) queue(svc, list string) string     { return k.join(svc, list) }
func (k keyspace) broadcast(svc string) string       { return k.join("mc", svc) }
func (k keyspace) direct(svc, id string) string      { return k.join("mc", svc, id) }
func (k keyspace) presencePattern(svc string) string { return k.presence(svc, "*") }

// instanceFromPresence 从 presence 键中取出 instanceID，不匹配时返回空串
func (k keyspace) instanceFromPresence(svc, key string) string {
	head := k.join(svc) + ":"
	if !strings.HasPrefix(key, head) || !strings.HasSuffix(key, ":presence") {
		return ""
	}
	id := strings.TrimSuffix(strings.TrimPrefix(key, head), ":presence")
	if id == "" || strings.Contains(id, ":") {
		return ""
	}
	return id
}
