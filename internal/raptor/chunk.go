package raptor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

// recognizedExtensions is the set of source file extensions the chunker
// will index. Anything else is skipped during discovery.
var recognizedExtensions = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".java": "java",
	".rs":   "rust",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".hpp":  "cpp",
	".rb":   "ruby",
	".md":   "markdown",
	".yaml": "yaml",
	".yml":  "yaml",
	".json": "json",
	".sh":   "shell",
}

// LanguageForPath returns the recognized language tag for path, or ""
// (and false) when the extension isn't in recognizedExtensions.
func LanguageForPath(path string) (string, bool) {
	lang, ok := recognizedExtensions[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// Chunk is a content-addressed window over a source file (spec §4.6).
type Chunk struct {
	ID         string `json:"id"`
	SourceFile string `json:"source_file"`
	StartByte  int    `json:"start_byte"`
	EndByte    int    `json:"end_byte"`
	Text       string `json:"text"`
	Language   string `json:"language"`
}

// ChunkID hashes source and byte range into a stable identifier so
// incremental re-chunking of unchanged content dedups naturally.
func ChunkID(sourceFile string, start, end int, text string) string {
	h := sha256.New()
	h.Write([]byte(sourceFile))
	h.Write([]byte(fmt.Sprintf(":%d:%d:", start, end)))
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// ChunkText segments content into overlapping windows of at most maxChars
// runes, with overlap runes repeated between consecutive windows (spec
// §4.6 step 2). maxChars <= 0 defaults to 2000, overlap < 0 defaults to
// 200; overlap is clamped below maxChars so the window always advances.
func ChunkText(sourceFile, language, content string, maxChars, overlap int) []Chunk {
	if maxChars <= 0 {
		maxChars = 2000
	}
	if overlap < 0 {
		overlap = 200
	}
	if overlap >= maxChars {
		overlap = maxChars / 2
	}

	runes := []rune(content)
	if len(runes) == 0 {
		return nil
	}

	stride := maxChars - overlap
	var chunks []Chunk
	for start := 0; start < len(runes); start += stride {
		end := start + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		text := string(runes[start:end])
		chunks = append(chunks, Chunk{
			ID:         ChunkID(sourceFile, start, end, text),
			SourceFile: sourceFile,
			StartByte:  start,
			EndByte:    end,
			Text:       text,
			Language:   language,
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}
