package scorm

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ExtractLimits bounds decompression of an untrusted package.
type ExtractLimits struct {
	MaxTotalBytes int64
	MaxEntryBytes int64
}

// ExtractPackage extracts an uploaded zip into destDir. destDir must not
// exist yet; it is created here and fully removed again on any failure, so
// a caller never observes a partially extracted package.
func ExtractPackage(data []byte, destDir string, limits ExtractLimits) error {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArchiveInvalid, err)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create extraction dir: %w", err)
	}

	if err := extractAll(reader, destDir, limits); err != nil {
		_ = os.RemoveAll(destDir)
		return err
	}
	return nil
}

func extractAll(reader *zip.Reader, destDir string, limits ExtractLimits) error {
	var total int64
	for _, entry := range reader.File {
		target, err := sanitizeEntryPath(destDir, entry.Name)
		if err != nil {
			return err
		}

		mode := entry.Mode()
		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create dir %s: %w", entry.Name, err)
			}
			continue
		}
		// Symlinks and other special entries would let content point
		// outside its own directory once served.
		if !mode.IsRegular() || mode&fs.ModeSymlink != 0 {
			return fmt.Errorf("%w: non-regular entry %s", ErrPathTraversal, entry.Name)
		}

		declared := int64(entry.UncompressedSize64)
		if limits.MaxEntryBytes > 0 && declared > limits.MaxEntryBytes {
			return fmt.Errorf("%w: entry %s is %d bytes", ErrSizeLimit, entry.Name, declared)
		}

		// Cap the read by the remaining total budget too, so a lying
		// size header cannot overshoot the package limit while writing.
		capBytes := int64(-1)
		if limits.MaxEntryBytes > 0 {
			capBytes = limits.MaxEntryBytes
		}
		if limits.MaxTotalBytes > 0 {
			remaining := limits.MaxTotalBytes - total
			if capBytes < 0 || remaining < capBytes {
				capBytes = remaining
			}
		}

		written, err := writeEntry(entry, target, capBytes)
		if err != nil {
			return err
		}
		total += written
		if limits.MaxTotalBytes > 0 && total > limits.MaxTotalBytes {
			return fmt.Errorf("%w: package exceeds %d bytes", ErrSizeLimit, limits.MaxTotalBytes)
		}
	}
	return nil
}

// sanitizeEntryPath resolves an entry name inside destDir and rejects any
// name that would land outside it: parent segments, absolute paths and
// Windows drive/volume prefixes all count as attempted traversal.
func sanitizeEntryPath(destDir, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || filepath.VolumeName(cleaned) != "" {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, name)
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, name)
	}
	target := filepath.Join(destDir, cleaned)
	if target != filepath.Clean(destDir) && !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, name)
	}
	return target, nil
}

// writeEntry copies one entry to disk, capping the bytes actually read so a
// lying size header cannot amplify past the limit. maxBytes < 0 means
// unbounded.
func writeEntry(entry *zip.File, target string, maxBytes int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("create dir for %s: %w", entry.Name, err)
	}

	src, err := entry.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: open entry %s: %v", ErrArchiveInvalid, entry.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create file %s: %w", entry.Name, err)
	}
	defer dst.Close()

	reader := io.Reader(src)
	if maxBytes >= 0 {
		reader = io.LimitReader(src, maxBytes+1)
	}
	written, err := io.Copy(dst, reader)
	if err != nil {
		return written, fmt.Errorf("%w: read entry %s: %v", ErrArchiveInvalid, entry.Name, err)
	}
	if maxBytes >= 0 && written > maxBytes {
		return written, fmt.Errorf("%w: entry %s", ErrSizeLimit, entry.Name)
	}
	return written, nil
}
