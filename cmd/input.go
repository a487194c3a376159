package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

const (
	stdinName  = "-"
	zstdSuffix = ".zst"
)

// input is one yt-dlp log to replay.
type input struct {
	name      string
	requestID string
	open      func() (io.ReadCloser, error)
}

// collectInputs maps file arguments to inputs with distinct request ids.
// No arguments, or "-", reads stdin under a generated id.
func collectInputs(paths []string, stdin io.Reader) []input {
	if len(paths) == 0 {
		paths = []string{stdinName}
	}

	seen := make(map[string]int, len(paths))
	inputs := make([]input, 0, len(paths))

	for _, path := range paths {
		if path == stdinName {
			inputs = append(inputs, input{
				name: "stdin",
				open: func() (io.ReadCloser, error) { return io.NopCloser(stdin), nil },
			})

			continue
		}

		id := requestIDFor(path)
		seen[id]++
		if n := seen[id]; n > 1 {
			id = fmt.Sprintf("%s-%d", id, n)
		}

		inputs = append(inputs, input{
			name:      path,
			requestID: id,
			open:      func() (io.ReadCloser, error) { return openLog(path) },
		})
	}

	return inputs
}

// requestIDFor names a download after its log file: "dir/clip.log.zst" is "clip".
func requestIDFor(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), zstdSuffix)
	if ext := filepath.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}

	return base
}

// openLog opens path, decompressing .zst files as they are read.
func openLog(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	if !strings.HasSuffix(path, zstdSuffix) {
		return f, nil
	}

	dec, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open zstd stream %s: %w", path, err)
	}

	return &zstdFile{Decoder: dec, file: f}, nil
}

type zstdFile struct {
	*zstd.Decoder
	file *os.File
	once sync.Once
}

func (z *zstdFile) Close() error {
	var err error

	z.once.Do(func() {
		z.Decoder.Close()
		err = z.file.Close()
	})

	return err
}
