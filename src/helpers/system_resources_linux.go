//go:build linux

package helpers

import "os"

// TotalSystemMemoryMB returns the total physical memory in MB, or 0.
func TotalSystemMemoryMB() int {
	file, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0
	}
	defer file.Close()
	return parseMemInfo(file)
}
