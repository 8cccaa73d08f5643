package upload

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/synfs/synfs/pkg/entity"
)

// Storage backend limits for multipart uploads.
const (
	// MinPartSize is the starting part size. Files up to
	// MinPartSize*MaxParts upload with 5 MiB parts.
	MinPartSize int64 = 5 * 1024 * 1024

	// MaxParts is the maximum number of parts one session may have.
	MaxParts int64 = 10_000

	// MaxPartSize is the absolute part size cap. Files needing larger
	// parts cannot be uploaded at all.
	MaxPartSize int64 = 5 * 1024 * 1024 * 1024
)

// checksumChunkSize bounds the memory used while hashing, independent of
// file size.
const checksumChunkSize = 64 * 1024

// CalculatePartSize returns the part size to use for a file of the given
// size. It starts at MinPartSize and doubles until the part count fits
// within MaxParts. Sizes that would require parts beyond MaxPartSize
// fail with ErrFileTooLarge before any network call.
func CalculatePartSize(fileSize int64) (int64, error) {
	return calculatePartSizeFrom(fileSize, MinPartSize)
}

func calculatePartSizeFrom(fileSize, minPartSize int64) (int64, error) {
	if fileSize < 0 {
		return 0, entity.NewError(entity.ErrInvalidArgument, "negative file size")
	}

	partSize := minPartSize
	for PartCount(fileSize, partSize) > MaxParts {
		partSize *= 2
		if partSize > MaxPartSize {
			return 0, entity.NewError(entity.ErrFileTooLarge,
				fmt.Sprintf("file of %d bytes exceeds the maximum uploadable size", fileSize))
		}
	}
	return partSize, nil
}

// PartCount returns the number of parts a file of the given size splits
// into. Empty files still upload one (empty) part.
func PartCount(fileSize, partSize int64) int64 {
	if fileSize == 0 {
		return 1
	}
	return (fileSize + partSize - 1) / partSize
}

// MD5Reader streams r through an MD5 hash in fixed-size chunks and
// returns the hex digest. The input is never held in memory in full.
func MD5Reader(r io.Reader) (string, error) {
	h := md5.New()
	buf := make([]byte, checksumChunkSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", fmt.Errorf("failed to checksum content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// MD5File computes the whole-file content checksum of path.
func MD5File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for checksum: %w", err)
	}
	defer func() { _ = f.Close() }()

	return MD5Reader(f)
}
