package bytes

import "fmt"

var units = []string{"B", "KB", "MB", "GB", "TB"}

// FmtMem renders a byte count with its two most significant units, e.g. "3MB 512KB".
func FmtMem(bytes uint64) string {
	if bytes < 1024 {
		return fmt.Sprintf("%dB", bytes)
	}

	unit, div := 0, uint64(1)
	for unit < len(units)-1 && bytes >= div*1024 {
		unit++
		div *= 1024
	}
	return fmt.Sprintf("%d%s %d%s", bytes/div, units[unit], bytes%div/(div/1024), units[unit-1])
}
