package sourcemap

import "math"

// Locate finds the record for a source line with a binary search over
// Start. A record whose range contains the line is returned as soon as it
// is visited. Otherwise the visited record closest to the line wins, the
// first one visited on ties. It reports false only for an empty map.
func Locate(m *SourceMap, line int) (Record, bool) {
	if m.Len() == 0 {
		return Record{}, false
	}

	records := m.records
	lo, hi := 0, len(records)-1
	closest, closestDistance := -1, math.MaxInt

	for lo <= hi {
		mid := int(uint(lo+hi) >> 1)
		rec := records[mid]

		if rec.Contains(line) {
			return rec, true
		}

		if d := rec.Distance(line); d < closestDistance {
			closest, closestDistance = mid, d
		}

		if line < rec.Start {
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}

	return records[closest], true
}
