package batch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		items int
		size  int
		want  []int // chunk lengths
	}{
		{name: "empty", items: 0, size: 10, want: nil},
		{name: "single partial chunk", items: 4, size: 10, want: []int{4}},
		{name: "exact multiple", items: 2000, size: 1000, want: []int{1000, 1000}},
		{name: "remainder chunk", items: 2500, size: 1000, want: []int{1000, 1000, 500}},
		{name: "non-positive size", items: 3, size: 0, want: []int{3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			items := make([]int, tt.items)
			for i := range items {
				items[i] = i
			}

			chunks := Split(items, tt.size)
			require.Len(t, chunks, len(tt.want))
			for i, chunk := range chunks {
				require.Len(t, chunk, tt.want[i])
			}
		})
	}
}

func TestSplitPreservesOrder(t *testing.T) {
	t.Parallel()

	chunks := Split([]string{"a", "b", "c", "d", "e"}, 2)
	require.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, chunks)
}

func TestSplitCopiesChunks(t *testing.T) {
	t.Parallel()

	items := []int{1, 2, 3, 4}
	chunks := Split(items, 2)
	chunks[0][0] = 99
	require.Equal(t, 1, items[0])
}
