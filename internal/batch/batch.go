// Package batch chunks slices for size-capped upstream queries.
package batch

// Split divides items into consecutive chunks of at most size elements. The
// final chunk may be shorter. A non-positive size yields a single chunk
// containing everything.
func Split[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(items)
	}
	var chunks [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunk := make([]T, end-start)
		copy(chunk, items[start:end])
		chunks = append(chunks, chunk)
	}
	return chunks
}
