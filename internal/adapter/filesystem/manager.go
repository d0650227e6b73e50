package filesystem

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vertextoedge/mirror-bot/internal/port"
)

// TempSuffix marks files that are still being written
const TempSuffix = ".downloading"

// Manager handles the local download root
type Manager struct {
	rootDir    string
	bufferSize int
	now        func() time.Time
}

// Ensure Manager implements port.DownloadRoot
var _ port.DownloadRoot = (*Manager)(nil)

// NewManager creates a new filesystem manager
func NewManager(rootDir string) (*Manager, error) {
	return NewManagerWithBufferSize(rootDir, 1024*1024) // 1MB default
}

// NewManagerWithBufferSize creates a new filesystem manager with custom buffer size
func NewManagerWithBufferSize(rootDir string, bufferSize int) (*Manager, error) {
	if rootDir == "" {
		return nil, fmt.Errorf("download root dir is required")
	}
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve download root dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download root dir: %w", err)
	}

	if bufferSize <= 0 {
		bufferSize = 1024 * 1024
	}

	return &Manager{
		rootDir:    abs,
		bufferSize: bufferSize,
		now:        time.Now,
	}, nil
}

// Dir returns the download root directory
func (m *Manager) Dir() string {
	return m.rootDir
}

// Join returns the destination for name under the root.
// Names that would escape the root are reduced to their base name.
func (m *Manager) Join(name string) string {
	p := filepath.Join(m.rootDir, name)
	if !m.contains(p) {
		return filepath.Join(m.rootDir, filepath.Base(name))
	}
	return p
}

// Normalize maps a path reported by a transfer primitive to root/basename
func (m *Manager) Normalize(path string) string {
	return filepath.Join(m.rootDir, filepath.Base(path))
}

func (m *Manager) contains(p string) bool {
	rel, err := filepath.Rel(m.rootDir, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// WriteFile streams reader into destPath through a temp file and renames it into place
func (m *Manager) WriteFile(destPath string, reader io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return 0, fmt.Errorf("failed to create parent dir: %w", err)
	}

	tempPath := destPath + TempSuffix
	f, err := os.Create(tempPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}

	buf := make([]byte, m.bufferSize)
	written, err := io.CopyBuffer(f, reader, buf)
	if err != nil {
		f.Close()
		os.Remove(tempPath)
		return 0, fmt.Errorf("failed to write file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return 0, fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tempPath, destPath); err != nil {
		return 0, fmt.Errorf("failed to rename temp file: %w", err)
	}

	return written, nil
}

// FileExists checks if a file exists
func (m *Manager) FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// CleanOldTempFiles removes temp files older than the specified duration
func (m *Manager) CleanOldTempFiles(olderThan time.Duration) (int, error) {
	count := 0
	threshold := m.now().Add(-olderThan)

	err := filepath.Walk(m.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != TempSuffix {
			return nil
		}
		if info.ModTime().Before(threshold) {
			if removeErr := os.Remove(path); removeErr == nil {
				count++
			}
		}
		return nil
	})
	return count, err
}
