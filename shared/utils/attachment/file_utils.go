package attachment

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"

	"bloodlink-backend/shared/config"
)

// ValidateUploadedFile checks a proof-of-delivery upload against the
// configured size and extension limits.
func ValidateUploadedFile(header *multipart.FileHeader) error {
	if header.Size == 0 {
		return fmt.Errorf("file is empty")
	}

	cfg := config.GetConfig()

	maxSize := ParseFileSize(cfg.AttachmentMaxFileSize)
	if header.Size > maxSize {
		return fmt.Errorf("file size exceeds %s limit", cfg.AttachmentMaxFileSize)
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	for _, allowed := range strings.Split(cfg.AttachmentAllowedTypes, ",") {
		if ext == strings.TrimSpace(allowed) {
			return nil
		}
	}
	return fmt.Errorf("file type %s is not allowed", ext)
}

// ParseFileSize converts values like "20MB" or "512KB" to bytes. Unparseable
// values fall back to 20MB.
func ParseFileSize(value string) int64 {
	value = strings.ToUpper(strings.TrimSpace(value))

	multiplier := int64(1)
	switch {
	case strings.HasSuffix(value, "GB"):
		multiplier = 1024 * 1024 * 1024
		value = strings.TrimSuffix(value, "GB")
	case strings.HasSuffix(value, "MB"):
		multiplier = 1024 * 1024
		value = strings.TrimSuffix(value, "MB")
	case strings.HasSuffix(value, "KB"):
		multiplier = 1024
		value = strings.TrimSuffix(value, "KB")
	}

	number, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || number <= 0 {
		return 20 * 1024 * 1024
	}
	return number * multiplier
}
