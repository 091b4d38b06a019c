// Package health 采集进程与主机的健康快照。
package health

import (
	"context"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/ceyewan/hydra/umf"
	"github.com/ceyewan/hydra/xerrors"
)

// Snapshot 一次健康采样。ServiceName 与 InstanceID 由调用方填写。
type Snapshot struct {
	ServiceName    string  `json:"serviceName"`
	InstanceID     string  `json:"instanceID"`
	HostName       string  `json:"hostName"`
	SampledOn      string  `json:"sampledOn"`
	ProcessID      int     `json:"processID"`
	Architecture   string  `json:"architecture"`
	Platform       string  `json:"platform"`
	RuntimeVersion string  `json:"runtimeVersion"`
	Memory         Memory  `json:"memory"`
	UptimeSeconds  float64 `json:"uptimeSeconds"`
}

// Memory 内存占用，单位字节
type Memory struct {
	RSS       uint64 `json:"rss"`
	VMS       uint64 `json:"vms"`
	HeapAlloc uint64 `json:"heapAlloc"`
	HeapInuse uint64 `json:"heapInuse"`
}

// Sample 采集当前进程的快照。uptimeSeconds 为主机启动至今的秒数。
func Sample(ctx context.Context) (Snapshot, error) {
	pid := os.Getpid()
	hostName, _ := os.Hostname()

	snap := Snapshot{
		HostName:       hostName,
		SampledOn:      umf.Timestamp(),
		ProcessID:      pid,
		Architecture:   runtime.GOARCH,
		Platform:       runtime.GOOS,
		RuntimeVersion: runtime.Version(),
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	snap.Memory.HeapAlloc = ms.HeapAlloc
	snap.Memory.HeapInuse = ms.HeapInuse

	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return snap, xerrors.Wrap(err, "health: open process")
	}
	mem, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return snap, xerrors.Wrap(err, "health: read memory info")
	}
	snap.Memory.RSS = mem.RSS
	snap.Memory.VMS = mem.VMS

	uptime, err := host.UptimeWithContext(ctx)
	if err != nil {
		return snap, xerrors.Wrap(err, "health: read host uptime")
	}
	snap.UptimeSeconds = float64(uptime)
	return snap, nil
}
