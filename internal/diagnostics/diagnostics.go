// Package diagnostics assembles the operator-facing status snapshot
// exposed at /api/status (SPEC_FULL.md A9): process uptime, store
// reachability, live connection count, and media-node fleet size.
package diagnostics

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/rjsadow/aurora/internal/mediafleet"
	"github.com/rjsadow/aurora/internal/rpc"
	"github.com/rjsadow/aurora/internal/store"
)

// Collector gathers a point-in-time status snapshot from the running
// server's dependencies.
type Collector struct {
	mongo     *store.Mongo
	redis     *store.Redis
	registry  *rpc.Registry
	directory *mediafleet.Directory
	started   time.Time
}

// NewCollector builds a Collector over the given dependencies. started is
// the process start time, used to compute uptime.
func NewCollector(mongo *store.Mongo, redis *store.Redis, registry *rpc.Registry, directory *mediafleet.Directory, started time.Time) *Collector {
	return &Collector{
		mongo:     mongo,
		redis:     redis,
		registry:  registry,
		directory: directory,
		started:   started,
	}
}

// Bundle is the full status snapshot.
type Bundle struct {
	GeneratedAt time.Time    `json:"generated_at"`
	System      SystemInfo   `json:"system"`
	Stores      StoreHealth  `json:"stores"`
	Sessions    SessionStats `json:"sessions"`
	MediaFleet  MediaFleet   `json:"media_fleet"`
	Runtime     RuntimeInfo  `json:"runtime"`
}

// SystemInfo contains basic process and host information.
type SystemInfo struct {
	GoVersion     string  `json:"go_version"`
	GOOS          string  `json:"goos"`
	GOARCH        string  `json:"goarch"`
	NumCPU        int     `json:"num_cpu"`
	Hostname      string  `json:"hostname"`
	Uptime        string  `json:"uptime"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// ComponentHealth represents the health of a single external dependency.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message"`
}

// StoreHealth summarizes the document store and shared KV store.
type StoreHealth struct {
	Mongo ComponentHealth `json:"mongo"`
	Redis ComponentHealth `json:"redis"`
}

// SessionStats describes live connection counts.
type SessionStats struct {
	ConnectedSessions int `json:"connected_sessions"`
}

// MediaFleet describes the live media-node directory (C8).
type MediaFleet struct {
	LiveNodes int `json:"live_nodes"`
}

// RuntimeInfo contains Go runtime memory and goroutine statistics.
type RuntimeInfo struct {
	NumGoroutine int         `json:"num_goroutine"`
	Memory       MemoryStats `json:"memory"`
}

// MemoryStats contains memory statistics.
type MemoryStats struct {
	AllocMB      float64 `json:"alloc_mb"`
	TotalAllocMB float64 `json:"total_alloc_mb"`
	SysMB        float64 `json:"sys_mb"`
	NumGC        uint32  `json:"num_gc"`
}

// Collect gathers all diagnostic information into a Bundle.
func (c *Collector) Collect(ctx context.Context) *Bundle {
	return &Bundle{
		GeneratedAt: time.Now().UTC(),
		System:      c.collectSystemInfo(),
		Stores:      c.collectStoreHealth(ctx),
		Sessions:    SessionStats{ConnectedSessions: c.registry.Len()},
		MediaFleet:  MediaFleet{LiveNodes: c.directory.Len()},
		Runtime:     c.collectRuntimeInfo(),
	}
}

func (c *Collector) collectSystemInfo() SystemInfo {
	hostname, _ := os.Hostname()
	uptime := time.Since(c.started)

	return SystemInfo{
		GoVersion:     runtime.Version(),
		GOOS:          runtime.GOOS,
		GOARCH:        runtime.GOARCH,
		NumCPU:        runtime.NumCPU(),
		Hostname:      hostname,
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: uptime.Seconds(),
	}
}

func (c *Collector) collectStoreHealth(ctx context.Context) StoreHealth {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return StoreHealth{
		Mongo: pingMongo(pingCtx, c.mongo),
		Redis: pingRedis(pingCtx, c.redis),
	}
}

func pingMongo(ctx context.Context, mongo *store.Mongo) ComponentHealth {
	if mongo == nil || mongo.Client == nil {
		return ComponentHealth{Healthy: false, Message: "not configured"}
	}
	if err := mongo.Client.Ping(ctx, nil); err != nil {
		return ComponentHealth{Healthy: false, Message: err.Error()}
	}
	return ComponentHealth{Healthy: true, Message: "OK"}
}

func pingRedis(ctx context.Context, redis *store.Redis) ComponentHealth {
	if redis == nil || redis.Client == nil {
		return ComponentHealth{Healthy: false, Message: "not configured"}
	}
	if err := redis.Client.Ping(ctx).Err(); err != nil {
		return ComponentHealth{Healthy: false, Message: err.Error()}
	}
	return ComponentHealth{Healthy: true, Message: "OK"}
}

func (c *Collector) collectRuntimeInfo() RuntimeInfo {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return RuntimeInfo{
		NumGoroutine: runtime.NumGoroutine(),
		Memory: MemoryStats{
			AllocMB:      float64(memStats.Alloc) / 1024 / 1024,
			TotalAllocMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			SysMB:        float64(memStats.Sys) / 1024 / 1024,
			NumGC:        memStats.NumGC,
		},
	}
}
