package services

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
)

const (
	// MaxSpreadsheetSize bounds line item workbook uploads
	MaxSpreadsheetSize = 5 * 1024 * 1024 // 5MB
	// XLSXMimeType is the content type of Office Open XML workbooks
	XLSXMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// zipMagic opens every OOXML file
var zipMagic = []byte("PK\x03\x04")

// Upload validation errors
var (
	ErrUploadTooLarge       = errors.New("file size exceeds maximum allowed size of 5MB")
	ErrUploadNotSpreadsheet = errors.New("only .xlsx files are supported")
)

// ValidateSpreadsheetUpload checks that the uploaded file is an .xlsx workbook within size limits
func ValidateSpreadsheetUpload(fileHeader *multipart.FileHeader) error {
	// Check file size
	if fileHeader.Size > MaxSpreadsheetSize {
		return ErrUploadTooLarge
	}

	// Check file extension
	if strings.ToLower(filepath.Ext(fileHeader.Filename)) != ".xlsx" {
		return ErrUploadNotSpreadsheet
	}

	// Open file to check the signature
	file, err := fileHeader.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	header := make([]byte, len(zipMagic))
	if _, err := io.ReadFull(file, header); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read file content: %w", err)
	}
	if !bytes.Equal(header, zipMagic) {
		return ErrUploadNotSpreadsheet
	}
	return nil
}
