// Package ingest loads raw data files into the system: tabular files
// become DuckDB tables, documents become embedded chunks in the vector
// store, and an optional bucket sync mirrors remote objects locally.
package ingest

import "strings"

// SplitText cuts text into overlapping windows of at most size runes.
// Consecutive chunks share overlap runes so sentences cut at a boundary
// stay retrievable. Whitespace-only chunks are dropped.
func SplitText(text string, size, overlap int) []string {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	var chunks []string
	step := size - overlap
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}
