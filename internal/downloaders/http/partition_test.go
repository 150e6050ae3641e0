package rangehttp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionCoversResource(t *testing.T) {
	sizes := []int64{1, 2, 7, 10, 99, 100, 101, 1023, 4096, 52428800}
	for _, size := range sizes {
		for parts := 1; parts <= 17; parts++ {
			if int64(parts) > size {
				continue
			}
			ranges := Partition(size, parts)
			require.Len(t, ranges, parts, "size=%d parts=%d", size, parts)
			assert.Equal(t, int64(0), ranges[0].Start)
			assert.Equal(t, size-1, ranges[len(ranges)-1].End)

			var total int64
			for i, r := range ranges {
				assert.LessOrEqual(t, r.Start, r.End, "size=%d parts=%d range=%d", size, parts, i)
				if i > 0 {
					assert.Equal(t, ranges[i-1].End+1, r.Start, "gap or overlap at size=%d parts=%d range=%d", size, parts, i)
				}
				total += r.Size()
			}
			assert.Equal(t, size, total)
		}
	}
}

func TestPartitionLastRangeAbsorbsRemainder(t *testing.T) {
	ranges := Partition(103, 10)
	require.Len(t, ranges, 10)
	for _, r := range ranges[:9] {
		assert.Equal(t, int64(10), r.Size())
	}
	assert.Equal(t, Range{Start: 90, End: 102}, ranges[9])
}

func TestPartitionFiftyMiB(t *testing.T) {
	ranges := Partition(52428800, 10)
	require.Len(t, ranges, 10)
	for i, r := range ranges {
		assert.Equal(t, int64(5242880), r.Size())
		assert.Equal(t, int64(i)*5242880, r.Start)
	}
}

func TestPartitionClamps(t *testing.T) {
	assert.Nil(t, Partition(0, 4))
	assert.Equal(t, []Range{{0, 9}}, Partition(10, 0))

	ranges := Partition(3, 8)
	assert.Equal(t, []Range{{0, 0}, {1, 1}, {2, 2}}, ranges)
}

func TestRangeFormatting(t *testing.T) {
	r := Range{Start: 100, End: 199}
	assert.Equal(t, "100-199", r.ID())
	assert.Equal(t, "bytes=100-199", r.Header())
	assert.Equal(t, int64(100), r.Size())
}

func TestChooseMode(t *testing.T) {
	tests := []struct {
		name      string
		size      int64
		threshold int64
		want      Mode
	}{
		{"unknown size", 0, 10, ModeSingle},
		{"unknown size with zero threshold", 0, 0, ModeSingle},
		{"below threshold", 5 * mib, 10, ModeSingle},
		{"exactly at threshold", 10 * mib, 10, ModeSingle},
		{"one byte over threshold", 10*mib + 1, 10, ModeSliced},
		{"zero threshold", 1, 0, ModeSliced},
		{"fifty MiB", 50 * mib, 10, ModeSliced},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChooseMode(tt.size, tt.threshold))
		})
	}
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "single", ModeSingle.String())
	assert.Equal(t, "slicing", ModeSliced.String())
}
