package milvus

// DefaultChunkSize is the chunk length, in characters, used for document upload.
const DefaultChunkSize = 500

// Chunk splits text into consecutive pieces of at most size runes, so multi-byte
// characters are never cut in half.
func Chunk(text string, size int) []string {
	if text == "" {
		return []string{}
	}
	if size <= 0 {
		size = DefaultChunkSize
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for i := 0; i < len(runes); i += size {
		end := min(i+size, len(runes))
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}
