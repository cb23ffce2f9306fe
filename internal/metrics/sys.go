package metrics

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"time"
)

var startedAt = time.Now()

// SysHealth is a snapshot of the process and its data directory.
type SysHealth struct {
	HeapMB       uint64 `json:"heap_mb"`
	SysMB        uint64 `json:"sys_mb"`
	NumGC        uint32 `json:"num_gc"`
	Goroutines   int    `json:"goroutines"`
	Uptime       string `json:"uptime"`
	DataDirBytes int64  `json:"data_dir_bytes"`
	DataDiskSize string `json:"data_dir_size"`
}

// GetSysHealth reads runtime memory statistics and sums the files under
// dataPath. An unreadable directory reports zero bytes.
func GetSysHealth(dataPath string) SysHealth {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	const mb = 1 << 20
	size := dirSize(dataPath)
	return SysHealth{
		HeapMB:       m.HeapAlloc / mb,
		SysMB:        m.Sys / mb,
		NumGC:        m.NumGC,
		Goroutines:   runtime.NumGoroutine(),
		Uptime:       time.Since(startedAt).Truncate(time.Second).String(),
		DataDirBytes: size,
		DataDiskSize: formatSize(size),
	}
}

func dirSize(root string) int64 {
	var total int64
	_ = filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

// formatSize renders a byte count with binary prefixes, e.g. "1.5 KB".
func formatSize(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	value := float64(n)
	for _, prefix := range "KMGTPE" {
		value /= 1024
		if value < 1024 {
			return fmt.Sprintf("%.1f %cB", value, prefix)
		}
	}
	return fmt.Sprintf("%.1f EB", value)
}
