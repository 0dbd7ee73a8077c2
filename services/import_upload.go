package services

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MaxImportUploadSize is the largest accepted import file
const MaxImportUploadSize = 10 * 1024 * 1024 // 10MB

// allowedImportExtensions are the file types accepted by the time entry import
var allowedImportExtensions = map[string]bool{
	".csv": true,
	".txt": true,
}

// ValidateImportUpload checks that an uploaded import file is a text CSV within size limits
func ValidateImportUpload(fileHeader *multipart.FileHeader) error {
	if fileHeader.Size > MaxImportUploadSize {
		return fmt.Errorf("file size exceeds maximum allowed size of 10MB")
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedImportExtensions[ext] {
		return fmt.Errorf("only CSV or TXT files are allowed")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	// Read first 512 bytes to check the content is text
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read file content: %w", err)
	}
	return checkTextContent(buffer[:n])
}

// checkTextContent rejects binary content: NUL bytes or invalid UTF-8
func checkTextContent(head []byte) error {
	if bytes.IndexByte(head, 0) >= 0 {
		return fmt.Errorf("file is not a text file")
	}
	// The sample may end inside a multi-byte rune
	cut := len(head)
	for i := len(head) - 1; i >= 0 && i >= len(head)-utf8.UTFMax; i-- {
		if utf8.RuneStart(head[i]) {
			if !utf8.FullRune(head[i:]) {
				cut = i
			}
			break
		}
	}
	if !utf8.Valid(head[:cut]) {
		return fmt.Errorf("file is not UTF-8 text")
	}
	return nil
}
