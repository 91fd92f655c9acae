package model

import (
	"math"
	"strconv"
)

var sizeUnits = []string{"Bytes", "KB", "MB", "GB", "TB"}

// FormatSize форматирует размер в байтах: основание 1024,
// округление до двух знаков, без хвостовых нулей.
// 0 → "0 Bytes", 1536 → "1.5 KB", 1048576 → "1 MB".
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}

	const k = 1024.0
	value := float64(bytes)
	i := 0
	for value >= k && i < len(sizeUnits)-1 {
		value /= k
		i++
	}

	value = math.Round(value*100) / 100

	return strconv.FormatFloat(value, 'f', -1, 64) + " " + sizeUnits[i]
}
