package raptor

import "os"

// maxReadBytes caps how much of a single source file the chunker will
// read, so one unexpectedly large generated file can't stall discovery.
const maxReadBytes = 2 << 20 // 2 MiB

func readFileCapped(path string, limit int64) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.Size() > limit {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
