package service

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ScratchFile is the local copy of the fetched object. It is created (or
// truncated) on acquire and removed on Release.
type ScratchFile struct {
	path string
	file *os.File
}

// AcquireScratch opens path for writing, creating its directory if needed
func AcquireScratch(path string) (*ScratchFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch file: %w", err)
	}

	return &ScratchFile{path: path, file: file}, nil
}

// ScratchPath derives a per-run scratch path from base by inserting suffix
// before the extension: /tmp/data.tsv -> /tmp/data-<suffix>.tsv
func ScratchPath(base, suffix string) string {
	if suffix == "" {
		return base
	}
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "-" + suffix + ext
}

func (s *ScratchFile) Path() string {
	return s.path
}

// File is the open handle, usable as an io.WriterAt for the download and
// as an io.Reader after Rewind.
func (s *ScratchFile) File() *os.File {
	return s.file
}

// Rewind seeks back to the start of the file
func (s *ScratchFile) Rewind() error {
	if _, err := s.file.Seek(0, 0); err != nil {
		return fmt.Errorf("failed to rewind scratch file: %w", err)
	}
	return nil
}

// Release closes and removes the file. Safe to call more than once.
func (s *ScratchFile) Release() error {
	var errs []error

	if s.file != nil {
		if err := s.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, err)
		}
		s.file = nil
	}

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
