package metrics

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
)

var startedAt = time.Now()

// SysHealth represents real-time system metrics.
type SysHealth struct {
	AllocMB      uint64        `json:"alloc_mb"`
	SysMB        uint64        `json:"sys_mb"`
	NumGC        uint32        `json:"num_gc"`
	Goroutines   int           `json:"goroutines"`
	Uptime       time.Duration `json:"uptime"`
	DataDiskSize string        `json:"data_disk_size"`
}

// GetSysHealth collects real-time health data. dataPath is the directory
// holding the SQLite file.
func GetSysHealth(dataPath string) SysHealth {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SysHealth{
		AllocMB:      m.Alloc / 1024 / 1024,
		SysMB:        m.Sys / 1024 / 1024,
		NumGC:        m.NumGC,
		Goroutines:   runtime.NumGoroutine(),
		Uptime:       time.Since(startedAt).Truncate(time.Second),
		DataDiskSize: humanize.Bytes(dirSize(dataPath)),
	}
}

func dirSize(path string) uint64 {
	var size uint64
	_ = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += uint64(info.Size())
		}
		return nil
	})
	return size
}
