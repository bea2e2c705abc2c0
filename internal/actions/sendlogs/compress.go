package sendlogs

import (
	"archive/tar"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"
)

// compress writes src as a tar archive wrapped in an lz4 frame.
func compress(src string, buf io.Writer) error {
	lw := lz4.NewWriter(buf)
	tw := tar.NewWriter(lw)

	err := filepath.Walk(src, func(file string, fi os.FileInfo, err error) error {
		if err != nil {
			log.Println("file was skipped", err)

			return nil
		}

		header, err := tar.FileInfoHeader(fi, file)
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, file)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)

		if err := tw.WriteHeader(header); err != nil {
			return err
		}

		if !fi.IsDir() {
			data, err := os.Open(file)
			if err != nil {
				return err
			}
			if _, err := io.Copy(tw, data); err != nil {
				_ = data.Close()

				return err
			}
			if err := data.Close(); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return err
	}

	return lw.Close()
}
