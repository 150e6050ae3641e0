package rangehttp

import "fmt"

// Range is an inclusive byte range of the remote resource. Its bytes are
// written to the output file at the same offsets.
type Range struct {
	Start int64
	End   int64
}

func (r Range) ID() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

func (r Range) Size() int64 {
	return r.End - r.Start + 1
}

func (r Range) Header() string {
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End)
}

// Partition splits [0, size-1] into parts contiguous ranges of size/parts
// bytes; the last range absorbs the remainder. parts is clamped to [1, size].
func Partition(size int64, parts int) []Range {
	if size <= 0 {
		return nil
	}
	if parts < 1 {
		parts = 1
	}
	if int64(parts) > size {
		parts = int(size)
	}
	partSize := size / int64(parts)
	ranges := make([]Range, 0, parts)
	for i := range parts {
		start := int64(i) * partSize
		end := start + partSize - 1
		if i == parts-1 {
			end = size - 1
		}
		ranges = append(ranges, Range{Start: start, End: end})
	}
	return ranges
}
