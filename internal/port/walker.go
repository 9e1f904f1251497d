package port

// FileWalker lists the files a bulk ingestion reads.
type FileWalker interface {
	// Walk returns the matching files under root, and separately the paths
	// left out for exceeding the size limit.
	Walk(root string) (files []FileInfo, skipped []string, err error)
}

type FileInfo struct {
	Path string
	Size int64
}
