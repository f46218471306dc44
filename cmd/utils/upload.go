package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MaxImageSize    = 10 << 20 // 10 MB
	MaxResourceSize = 25 << 20 // 25 MB
	ImagePath       = "uploads/images"
	ResourcePath    = "uploads/resources"
)

// SaveImage saves an uploaded profile image and returns its URL path.
func SaveImage(file multipart.File, header *multipart.FileHeader) (string, error) {
	if header.Size > MaxImageSize {
		return "", fmt.Errorf("file size exceeds maximum limit of %d MB", MaxImageSize/(1<<20))
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !isValidImageType(ext) {
		return "", fmt.Errorf("invalid file type: %s", ext)
	}

	filename, err := writeUpload(file, ImagePath, ext)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("/images/%s", filename), nil
}

// SaveResourceFile saves an uploaded legal-resource document (PDF) and
// returns its URL path.
func SaveResourceFile(file multipart.File, header *multipart.FileHeader) (string, error) {
	if header.Size > MaxResourceSize {
		return "", fmt.Errorf("file size exceeds maximum limit of %d MB", MaxResourceSize/(1<<20))
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".pdf" {
		return "", fmt.Errorf("invalid file type: %s", ext)
	}

	filename, err := writeUpload(file, ResourcePath, ext)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("/resources/files/%s", filename), nil
}

func writeUpload(file multipart.File, dir, ext string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %v", err)
	}

	filename := fmt.Sprintf("%s-%s%s",
		time.Now().Format("20060102"),
		uuid.New().String(),
		ext,
	)
	filePath := filepath.Join(dir, filename)

	dst, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %v", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", fmt.Errorf("failed to save file: %v", err)
	}

	return filename, nil
}

func isValidImageType(ext string) bool {
	validTypes := map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".gif":  true,
		".webp": true,
	}
	return validTypes[ext]
}

func DeleteUpload(urlPath string) error {
	filename := filepath.Base(urlPath)
	dir := ImagePath
	if strings.Contains(urlPath, "/resources/") {
		dir = ResourcePath
	}
	filePath := filepath.Join(dir, filename)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil
	}

	return os.Remove(filePath)
}
