package hydra

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPresence_LiveInstancesOnly(t *testing.T) {
	f := newFixture(t)
	a := f.start(t, "orders")
	b := f.start(t, "orders")
	other := f.start(t, "billing")

	live, err := other.GetPresence(f.kit.Ctx, "orders")
	require.NoError(t, err)
	ids := instanceIDs(live)
	assert.ElementsMatch(t, []string{a.InstanceID(), b.InstanceID()}, ids)
	for _, inst := range live {
		assert.Equal(t, "orders", inst.ServiceName)
		assert.Positive(t, inst.UpdatedOnTS)
		assert.InDelta(t, time.Now().Unix(), inst.UpdatedOnTS, 5)
	}

	// b 停止心跳后过期，a 刷新后仍存活
	require.NoError(t, b.Close())
	f.mr.FastForward(4 * time.Second)
	require.NoError(t, a.presenceUpdate(f.kit.Ctx))

	live, err = other.GetPresence(f.kit.Ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, []string{a.InstanceID()}, instanceIDs(live))

	// 索引中的记录仍在，只是被忽略
	assert.NotEmpty(t, f.mr.HGet("hydra:service:nodes", b.InstanceID()))
}

func TestGetPresence_SkipsMissingAndMalformedRecords(t *testing.T) {
	f := newFixture(t)
	a := f.start(t, "orders")

	require.NoError(t, f.mr.Set("hydra:service:orders:orphan:presence", "orphan"))
	require.NoError(t, f.mr.Set("hydra:service:orders:broken:presence", "broken"))
	f.mr.HSet("hydra:service:nodes", "broken", "{not json")
	// 形似 presence 但属于其他层级的键
	require.NoError(t, f.mr.Set("hydra:service:orders:x:y:presence", "x"))

	live, err := a.GetPresence(f.kit.Ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, []string{a.InstanceID()}, instanceIDs(live))
}

func TestGetPresence_Empty(t *testing.T) {
	f := newFixture(t)
	svc := f.newService(t, "orders", nil)

	live, err := svc.GetPresence(f.kit.Ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, live)
}

func TestGetPresence_ScansPastFirstBatch(t *testing.T) {
	f := newFixture(t)
	svc := f.start(t, "orders")

	const n = 3 * scanCount
	for i := range n {
		id := "bulk" + strconv.Itoa(i)
		require.NoError(t, f.mr.Set("hydra:service:bulk:"+id+":presence", id))
		f.mr.HSet("hydra:service:nodes", id, `{"serviceName":"bulk","instanceID":"`+id+`"}`)
	}

	live, err := svc.GetPresence(f.kit.Ctx, "bulk")
	require.NoError(t, err)
	assert.Len(t, live, n)
}

// 随机顺序的首元素在各实例间近似均匀分布
func TestGetPresence_UniformFirstPick(t *testing.T) {
	f := newFixture(t)
	instances := []*Service{f.start(t, "orders"), f.start(t, "orders"), f.start(t, "orders")}

	counts := make(map[string]int)
	const calls = 3000
	for range calls {
		live, err := instances[0].GetPresence(f.kit.Ctx, "orders")
		require.NoError(t, err)
		require.Len(t, live, 3)
		counts[live[0].InstanceID]++
	}

	for _, svc := range instances {
		c := counts[svc.InstanceID()]
		assert.True(t, c > 800 && c < 1200, "instance %s picked %d times", svc.InstanceID(), c)
	}
}

func TestGetPresence_RecordsLookupLatency(t *testing.T) {
	f := newFixture(t)
	svc := f.start(t, "orders")

	_, err := svc.GetPresence(f.kit.Ctx, "orders")
	require.NoError(t, err)
	assert.Contains(t, scrape(t, f.kit.Meter), "hydra_presence_lookup_seconds_count")
}

func instanceIDs(live []ServiceInstance) []string {
	ids := make([]string, 0, len(live))
	for _, inst := range live {
		ids = append(ids, inst.InstanceID)
	}
	return ids
}
