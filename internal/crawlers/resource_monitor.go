package crawlers

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/RecoveryAshes/rufus/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ResourceMonitor 系统资源监控器
// 职责: 采样内存和CPU,计算可同时运行的浏览器页面/种子数量上限
type ResourceMonitor struct {
	config ResourceMonitorConfig

	// 系统总内存(字节)
	totalMemory uint64

	// 最近一次采样
	lastMemStats runtime.MemStats
	lastCPUUsage float64
	mu           sync.RWMutex

	// CalculateMaxSlots 结果缓存(1秒)
	cachedMaxSlots int
	lastCacheTime  time.Time
	cacheMu        sync.Mutex

	cancelFunc context.CancelFunc
	isRunning  bool
}

// ResourceMonitorConfig 资源监控器配置
type ResourceMonitorConfig struct {
	SafetyReserveMemory int64 // 安全保留内存(字节)
	SafetyThreshold     int64 // 安全阈值(字节)
	CPULoadThreshold    int   // CPU负载阈值(%),>=200视为禁用
	MaxSlots            int   // 绝对上限
	SlotMemoryUsage     int64 // 单个槽位平均内存消耗(字节)
}

// ResourceMonitorConfigFrom 将配置文件中的MB数值换算为字节
func ResourceMonitorConfigFrom(rc models.ResourceConfig) ResourceMonitorConfig {
	return ResourceMonitorConfig{
		SafetyReserveMemory: int64(rc.SafetyReserveMemory) * 1024 * 1024,
		SafetyThreshold:     int64(rc.SafetyThreshold) * 1024 * 1024,
		CPULoadThreshold:    rc.CPULoadThreshold,
		MaxSlots:            rc.MaxSlots,
	}
}

// NewResourceMonitor 创建资源监控器实例
func NewResourceMonitor(config ResourceMonitorConfig) *ResourceMonitor {
	if config.SlotMemoryUsage == 0 {
		config.SlotMemoryUsage = 100 * 1024 * 1024
	}
	if config.MaxSlots <= 0 {
		config.MaxSlots = 8
	}

	var totalMem uint64
	vmStat, err := mem.VirtualMemory()
	if err != nil {
		log.Warn().Err(err).Msg("获取系统内存失败,使用默认值4GB")
		totalMem = 4 * 1024 * 1024 * 1024
	} else {
		totalMem = vmStat.Total
		log.Debug().Msgf("系统总内存: %.2f GB", float64(totalMem)/(1024*1024*1024))
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return &ResourceMonitor{
		config:       config,
		totalMemory:  totalMem,
		lastMemStats: memStats,
	}
}

// StartMonitoring 启动后台采样(幂等)
func (rm *ResourceMonitor) StartMonitoring(interval time.Duration) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.isRunning {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	rm.cancelFunc = cancel
	rm.isRunning = true

	go rm.monitoringLoop(ctx, interval)
}

func (rm *ResourceMonitor) monitoringLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var memStats runtime.MemStats
			runtime.ReadMemStats(&memStats)
			cpuUsage := sampleCPU()

			rm.mu.Lock()
			rm.lastMemStats = memStats
			rm.lastCPUUsage = cpuUsage
			rm.mu.Unlock()
		}
	}
}

// sampleCPU 所有核心的平均CPU使用率
func sampleCPU() float64 {
	percentages, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(percentages) == 0 {
		log.Debug().Err(err).Msg("获取CPU使用率失败")
		return 0.0
	}
	return percentages[0]
}

// StopMonitoring 停止后台采样
func (rm *ResourceMonitor) StopMonitoring() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.isRunning && rm.cancelFunc != nil {
		rm.cancelFunc()
		rm.isRunning = false
		rm.cancelFunc = nil
	}
}

// availableMemory 可用内存 = 总内存 - 已分配 - 安全保留
func (rm *ResourceMonitor) availableMemory() int64 {
	rm.mu.RLock()
	alloc := rm.lastMemStats.Alloc
	rm.mu.RUnlock()
	return int64(rm.totalMemory) - int64(alloc) - rm.config.SafetyReserveMemory
}

// CalculateMaxSlots 基于可用内存、CPU核数和配置上限计算槽位数,至少为1
func (rm *ResourceMonitor) CalculateMaxSlots() int {
	rm.cacheMu.Lock()
	defer rm.cacheMu.Unlock()

	if time.Since(rm.lastCacheTime) < time.Second && rm.cachedMaxSlots > 0 {
		return rm.cachedMaxSlots
	}

	byMemory := 1
	if available := rm.availableMemory(); available > rm.config.SafetyThreshold {
		byMemory = int((available - rm.config.SafetyThreshold) / rm.config.SlotMemoryUsage)
	}

	result := min(byMemory, runtime.NumCPU(), rm.config.MaxSlots)
	if result < 1 {
		result = 1
	}

	rm.cachedMaxSlots = result
	rm.lastCacheTime = time.Now()
	return result
}

// CheckResourceAvailability 检查是否允许再占用一个槽位
func (rm *ResourceMonitor) CheckResourceAvailability() (bool, string) {
	available := rm.availableMemory()
	if available < rm.config.SafetyThreshold {
		return false, fmt.Sprintf("内存不足(当前%dMB)", available/(1024*1024))
	}

	if rm.config.CPULoadThreshold > 0 && rm.config.CPULoadThreshold < 200 {
		rm.mu.RLock()
		usage := rm.lastCPUUsage
		rm.mu.RUnlock()
		if usage > float64(rm.config.CPULoadThreshold) {
			return false, fmt.Sprintf("CPU负载过高(当前%.1f%%)", usage)
		}
	}

	return true, ""
}
