package helpers

import (
	"bufio"
	"io"
	"runtime/debug"
	"strconv"
	"strings"
)

const fallbackMemoryLimitMB = 512

// RecommendedMemoryLimitMB keeps the process at 75% of the host memory, with a
// 512MB floor. An unknown total (0) yields the floor.
func RecommendedMemoryLimitMB(totalMB int) int {
	if totalMB <= 0 {
		return fallbackMemoryLimitMB
	}

	limit := int(float64(totalMB) * 0.75)
	if limit < fallbackMemoryLimitMB {
		if totalMB < fallbackMemoryLimitMB {
			return totalMB
		}
		return fallbackMemoryLimitMB
	}
	return limit
}

// -----------------------------------------------------------------------------

// ApplyMemoryLimit sets the runtime soft memory limit from the host memory and
// returns it in MB.
func ApplyMemoryLimit() int {
	limit := RecommendedMemoryLimitMB(TotalSystemMemoryMB())
	debug.SetMemoryLimit(int64(limit) << 20)
	return limit
}

// -----------------------------------------------------------------------------

// parseMemInfo reads MemTotal from a /proc/meminfo style listing.
func parseMemInfo(r io.Reader) int {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[0] == "MemTotal:" {
			kb, err := strconv.Atoi(fields[1])
			if err != nil {
				return 0
			}
			return kb / 1024
		}
	}
	return 0
}
