package upload

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"testing/iotest"

	"github.com/synfs/synfs/pkg/entity"
)

func TestCalculatePartSize(t *testing.T) {
	tests := []struct {
		name     string
		fileSize int64
		want     int64
		wantErr  bool
	}{
		{
			name:     "empty file uses minimum",
			fileSize: 0,
			want:     MinPartSize,
		},
		{
			name:     "one byte uses minimum",
			fileSize: 1,
			want:     MinPartSize,
		},
		{
			name:     "exactly max parts at minimum size",
			fileSize: MinPartSize * MaxParts,
			want:     MinPartSize,
		},
		{
			name:     "one byte past max parts doubles",
			fileSize: MinPartSize*MaxParts + 1,
			want:     2 * MinPartSize,
		},
		{
			name:     "just under the absolute cap",
			fileSize: MaxPartSize*MaxParts - 1,
			want:     MaxPartSize,
		},
		{
			name:     "exactly the absolute cap",
			fileSize: MaxPartSize * MaxParts,
			want:     MaxPartSize,
		},
		{
			name:     "past the absolute cap",
			fileSize: MaxPartSize*MaxParts + 1,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			partSize, err := CalculatePartSize(tt.fileSize)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("CalculatePartSize(%d) succeeded, want error", tt.fileSize)
				}
				if code, ok := entity.CodeOf(err); !ok || code != entity.ErrFileTooLarge {
					t.Errorf("error code = %v, want ErrFileTooLarge", code)
				}
				return
			}
			if err != nil {
				t.Fatalf("CalculatePartSize(%d) error = %v", tt.fileSize, err)
			}
			if partSize != tt.want {
				t.Errorf("CalculatePartSize(%d) = %d, want %d", tt.fileSize, partSize, tt.want)
			}
			if partSize > MaxPartSize {
				t.Errorf("part size %d exceeds absolute cap", partSize)
			}
			if count := PartCount(tt.fileSize, partSize); count > MaxParts {
				t.Errorf("PartCount(%d, %d) = %d exceeds max parts", tt.fileSize, partSize, count)
			}
		})
	}
}

func TestPartCount(t *testing.T) {
	tests := []struct {
		fileSize int64
		partSize int64
		want     int64
	}{
		{0, MinPartSize, 1},
		{1, MinPartSize, 1},
		{MinPartSize, MinPartSize, 1},
		{MinPartSize + 1, MinPartSize, 2},
		{2 * MinPartSize, MinPartSize, 2},
		{10 * 1024 * 1024, 5 * 1024 * 1024, 2},
	}

	for _, tt := range tests {
		if got := PartCount(tt.fileSize, tt.partSize); got != tt.want {
			t.Errorf("PartCount(%d, %d) = %d, want %d", tt.fileSize, tt.partSize, got, tt.want)
		}
	}
}

func TestMD5Reader_KnownDigests(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty input matches empty buffer digest",
			input: "",
			want:  "d41d8cd98f00b204e9800998ecf8427e",
		},
		{
			name:  "hello world",
			input: "Hello, World!",
			want:  "65a8e27d8879283831b664bd8b7f0ad4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MD5Reader(bytes.NewReader([]byte(tt.input)))
			if err != nil {
				t.Fatalf("MD5Reader error = %v", err)
			}
			if got != tt.want {
				t.Errorf("MD5Reader() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMD5Reader_StableAcrossChunking(t *testing.T) {
	// Spans several checksum chunks so the streaming path is exercised.
	data := make([]byte, 3*checksumChunkSize+17)
	rng := rand.New(rand.NewSource(42))
	rng.Read(data)

	whole := md5.Sum(data)
	want := hex.EncodeToString(whole[:])

	streamed, err := MD5Reader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("MD5Reader error = %v", err)
	}
	if streamed != want {
		t.Errorf("streamed digest %q != whole-buffer digest %q", streamed, want)
	}

	// One byte per Read call still produces the same digest.
	trickled, err := MD5Reader(iotest.OneByteReader(bytes.NewReader(data)))
	if err != nil {
		t.Fatalf("MD5Reader error = %v", err)
	}
	if trickled != want {
		t.Errorf("one-byte-reads digest %q != whole-buffer digest %q", trickled, want)
	}
}

func TestMD5File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.bin")
	if err := os.WriteFile(path, []byte("Hello, World!"), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	got, err := MD5File(path)
	if err != nil {
		t.Fatalf("MD5File error = %v", err)
	}
	if got != "65a8e27d8879283831b664bd8b7f0ad4" {
		t.Errorf("MD5File() = %q, want %q", got, "65a8e27d8879283831b664bd8b7f0ad4")
	}

	if _, err := MD5File(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("MD5File on missing file succeeded, want error")
	}
}
