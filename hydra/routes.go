package hydra

import (
	"context"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/hydra/clog"
	"github.com/ceyewan/hydra/umf"
	"github.com/ceyewan/hydra/xerrors"
)

// routerService 负责聚合路由表的服务名，路由变更后通知它刷新
const routerService = "hydra-router"

// routeEntry 路由集合中的一条记录："[method]path"，method 小写
func routeEntry(method, path string) string {
	return "[" + strings.ToLower(method) + "]" + path
}

// implicitRoutes 每个服务都带有的三条 GET 路由
func implicitRoutes(svc string) []string {
	return []string{
		routeEntry("get", "/"+svc),
		routeEntry("get", "/"+svc+"/"),
		routeEntry("get", "/"+svc+"/:rest"),
	}
}

// RegisterRoutes 用 routes 整体替换本服务的路由集合，并广播刷新通知给 hydra-router。
// 删除与写入在同一个事务中完成，读者不会看到空集合。
func (s *Service) RegisterRoutes(ctx context.Context, routes []Route) error {
	svc := s.cfg.ServiceName
	members := implicitRoutes(svc)
	for _, r := range routes {
		if r.Path == "" {
			return xerrors.Wrap(ErrInvalidConfig, "route path is required")
		}
		for _, m := range r.Methods {
			members = append(members, routeEntry(m, r.Path))
		}
	}

	key := s.keys.routes(svc)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.SAdd(ctx, key, toAny(members)...)
		return nil
	})
	if err != nil {
		return storeError(err, "register routes")
	}
	s.logger.InfoContext(ctx, "routes registered", clog.Int("count", len(members)))

	refresh, err := umf.Build(map[string]any{
		"to":   routerService + ":/refresh",
		"from": svc + ":/",
		"body": map[string]any{
			"action":      "refresh",
			"serviceName": svc,
		},
	})
	if err != nil {
		return err
	}
	return s.publish(ctx, s.keys.broadcast(routerService), channelBroadcast, refresh)
}

// GetRoutes 读取服务的路由集合，按字典序返回
func (s *Service) GetRoutes(ctx context.Context, serviceName string) ([]string, error) {
	members, err := s.client.SMembers(ctx, s.keys.routes(serviceName)).Result()
	if err != nil {
		return nil, storeError(err, "read routes")
	}
	slices.Sort(members)
	return members, nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
