package utils

import "strconv"

var memUnits = [...]string{"B", "KB", "MB", "GB", "TB"}

// FmtMem renders a byte count with a binary unit, e.g. "12.50MB".
func FmtMem(bytes int64) string {
	if bytes < 1024 {
		return strconv.FormatInt(bytes, 10) + memUnits[0]
	}
	v := float64(bytes)
	unit := 0
	for v >= 1024 && unit < len(memUnits)-1 {
		v /= 1024
		unit++
	}
	return strconv.FormatFloat(v, 'f', 2, 64) + memUnits[unit]
}
