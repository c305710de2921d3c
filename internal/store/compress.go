package store

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// compressFile gzips path into path.gz and removes the original. A
// partial .gz is removed on failure, and the original is only removed
// once the compressed file is fully written, so rerunning after an
// interruption is safe.
func compressFile(path string) error {
	src, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Already compressed by an earlier run.
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer src.Close()

	gzPath := path + ".gz"
	dst, err := os.Create(gzPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", gzPath, err)
	}

	gw := gzip.NewWriter(dst)
	if _, err := io.Copy(gw, src); err != nil {
		gw.Close()
		dst.Close()
		os.Remove(gzPath)
		return fmt.Errorf("compress %s: %w", path, err)
	}
	if err := gw.Close(); err != nil {
		dst.Close()
		os.Remove(gzPath)
		return fmt.Errorf("finalize %s: %w", gzPath, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(gzPath)
		return fmt.Errorf("close %s: %w", gzPath, err)
	}

	src.Close()
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove %s after compression: %w", path, err)
	}
	return nil
}
