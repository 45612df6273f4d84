package utils

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

// MaxImageBytes caps contender image uploads.
const MaxImageBytes = 10 * 1024 * 1024

var ErrInvalidImage = errors.New("invalid image upload")

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ReadImageUpload reads a multipart image into memory and sniffs its content type.
// It returns the bytes, the detected content type and a file extension for the object key.
func ReadImageUpload(fileHeader *multipart.FileHeader) ([]byte, string, string, error) {
	if fileHeader.Size > MaxImageBytes {
		return nil, "", "", fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidImage, MaxImageBytes)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, io.LimitReader(file, MaxImageBytes+1)); err != nil {
		return nil, "", "", fmt.Errorf("failed to read file: %w", err)
	}
	if buf.Len() > MaxImageBytes {
		return nil, "", "", fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidImage, MaxImageBytes)
	}

	contentType := http.DetectContentType(buf.Bytes())
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, "", "", fmt.Errorf("%w: unsupported content type %s", ErrInvalidImage, contentType)
	}
	if orig := strings.ToLower(filepath.Ext(fileHeader.Filename)); orig == ".jpeg" {
		ext = orig
	}
	return buf.Bytes(), contentType, ext, nil
}
