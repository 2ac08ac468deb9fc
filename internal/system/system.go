package system

import (
	"log"
	"runtime"
	"syscall"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// framesPerWorker is a rough upper bound of full-size RGBA buffers one panel
// worker keeps alive: source, scaled canvas, base, bubble copies.
const framesPerWorker = 8

// InitResourceLimits поднимает лимит открытых файлов: пул записи кадров
// держит много файлов одновременно.
func InitResourceLimits(logger *log.Logger) {
	if logger == nil {
		logger = log.Default()
	}
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		logger.Printf("[!] Не удалось получить лимит файлов: %v", err)
		return
	}

	if rLimit.Cur >= 2048 {
		return
	}
	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		logger.Printf("[!] Не удалось установить лимит файлов: %v", err)
	} else {
		logger.Printf("[*] Системный лимит открытых файлов увеличен до %d", rLimit.Cur)
	}
}

// Host is a snapshot of the machine the build runs on.
type Host struct {
	CPUs           int
	AvailableBytes uint64 // 0 when unknown
}

// Probe reads CPU and memory figures, falling back to runtime values.
func Probe() Host {
	h := Host{CPUs: runtime.NumCPU()}
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		h.CPUs = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		h.AvailableBytes = vm.Available
	}
	return h
}

// Workers sizes the panel pool: one worker per CPU, bounded by how many
// width×height panels fit into available memory.
func (h Host) Workers(width, height int) int {
	n := max(h.CPUs, 1)
	perWorker := uint64(width) * uint64(height) * 4 * framesPerWorker
	if h.AvailableBytes > 0 && perWorker > 0 {
		if byMem := int(h.AvailableBytes / perWorker); byMem < n {
			n = byMem
		}
	}
	return max(n, 1)
}

// DefaultWorkers is Probe().Workers(width, height).
func DefaultWorkers(width, height int) int {
	return Probe().Workers(width, height)
}
