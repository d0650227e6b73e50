package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/vertextoedge/mirror-bot/internal/domain"
	"github.com/vertextoedge/mirror-bot/internal/port"
	"go.uber.org/zap"
)

// FileResolver turns a file ID into a download link. *bot.Bot implements it.
type FileResolver interface {
	GetFile(ctx context.Context, params *bot.GetFileParams) (*models.File, error)
	FileDownloadLink(f *models.File) string
}

// FileWriter stores a stream at a destination path
type FileWriter interface {
	WriteFile(destPath string, reader io.Reader) (int64, error)
}

// Transferer downloads message attachments through the Bot API file endpoint
type Transferer struct {
	files  FileResolver
	writer FileWriter
	client *http.Client
	logger *zap.Logger
}

// Ensure Transferer implements port.AttachmentTransferer
var _ port.AttachmentTransferer = (*Transferer)(nil)

// NewTransferer creates a new Transferer. A nil client uses http.DefaultClient.
func NewTransferer(files FileResolver, writer FileWriter, client *http.Client, logger *zap.Logger) *Transferer {
	if client == nil {
		client = http.DefaultClient
	}
	return &Transferer{
		files:  files,
		writer: writer,
		client: client,
		logger: logger,
	}
}

// Transfer saves src at destHint. When destHint is a directory the file keeps its own name.
func (t *Transferer) Transfer(ctx context.Context, src *domain.Attachment, destHint string, onProgress port.ProgressFunc) (string, error) {
	file, err := t.files.GetFile(ctx, &bot.GetFileParams{FileID: src.FileID})
	if err != nil {
		return "", fmt.Errorf("get file: %w", err)
	}

	dest := destinationPath(destHint, src, file)
	link := t.files.FileDownloadLink(file)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download file: %w", redactToken(err, link, file.FilePath))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download file: server returned %s", resp.Status)
	}

	total := resp.ContentLength
	if total <= 0 {
		total = file.FileSize
	}
	if total <= 0 {
		total = src.FileSize
	}

	t.logger.Debug("attachment transfer started",
		zap.String("file_id", src.FileID),
		zap.String("dest", dest),
		zap.Int64("size", total))

	reader := &progressReader{
		reader:     resp.Body,
		total:      total,
		onProgress: onProgress,
	}

	written, err := t.writer.WriteFile(dest, reader)
	if err != nil {
		return "", err
	}
	if onProgress != nil {
		onProgress(written, max(total, written))
	}

	return dest, nil
}

// destinationPath resolves the hint to a file path
func destinationPath(destHint string, src *domain.Attachment, file *models.File) string {
	if !isDirHint(destHint) {
		return destHint
	}

	name := src.FileName
	if name == "" && file != nil && file.FilePath != "" {
		name = path.Base(file.FilePath)
	}
	if name == "" || name == "." || name == "/" {
		name = src.FileID
	}
	return filepath.Join(destHint, filepath.Base(name))
}

func isDirHint(p string) bool {
	if strings.HasSuffix(p, string(filepath.Separator)) {
		return true
	}
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

// redactToken strips the bot token embedded in file links from err
func redactToken(err error, link, filePath string) error {
	msg := err.Error()
	if link == "" || !strings.Contains(msg, link) {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(msg, link, "<file "+filePath+">"))
}

// progressReader wraps a reader to report download progress
type progressReader struct {
	reader     io.Reader
	total      int64
	bytesRead  int64
	onProgress port.ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.bytesRead += int64(n)

	if n > 0 && r.onProgress != nil {
		r.onProgress(r.bytesRead, r.total)
	}

	return n, err
}
