package port

type Chunker interface {
	// Split returns the ordered chunk texts of text. Chunk i gets index i.
	Split(text string, chunkSize, overlap int) ([]string, error)
}
