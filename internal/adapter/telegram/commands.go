package telegram

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/vertextoedge/mirror-bot/internal/domain"
)

// User facing texts
const (
	TextProcessing    = "Processing ..."
	TextReadHelp      = "Please read `/help mirror`"
	TextCanceled      = "Process Canceled!"
	TextNothingCancel = "Reply to a running download's status message to cancel it."
	TextCancelling    = "Cancelling ..."
)

const helpMirror = "mirror: Download files to server\n\n" +
	"usage:\n" +
	"  /mirror <url>[|<filename>]\n" +
	"  /mirror [filename] as a reply to telegram media\n\n" +
	"flags like -x are ignored in the filename.\n" +
	"reply /cancel to the status message to stop a download.\n\n" +
	"example:\n" +
	"  /mirror https://speed.hetzner.de/100MB.bin | testing upload.bin"

const helpGeneral = "commands:\n" +
	"  /mirror - download a url or telegram media to the server\n" +
	"  /cancel - cancel the download whose status message you reply to\n" +
	"  /help [command] - show usage"

// ParseCommand splits "/cmd@bot args" into the lowercase command name and its arguments.
// ok is false when text is not a command.
func ParseCommand(text string) (name, args string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}

	head, rest, _ := strings.Cut(text, " ")
	if i := strings.IndexAny(head, "\n\t"); i >= 0 {
		rest = head[i+1:] + " " + rest
		head = head[:i]
	}
	head = strings.TrimPrefix(head, "/")
	if at := strings.IndexByte(head, '@'); at >= 0 {
		head = head[:at]
	}
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(rest), true
}

// AttachmentFromMessage returns the downloadable media of m, nil when it has none
func AttachmentFromMessage(m *models.Message) *domain.Attachment {
	if m == nil {
		return nil
	}

	switch {
	case m.Document != nil:
		return &domain.Attachment{FileID: m.Document.FileID, FileName: m.Document.FileName, FileSize: int64(m.Document.FileSize), MimeType: m.Document.MimeType}
	case m.Video != nil:
		return &domain.Attachment{FileID: m.Video.FileID, FileName: m.Video.FileName, FileSize: int64(m.Video.FileSize), MimeType: m.Video.MimeType}
	case m.Audio != nil:
		return &domain.Attachment{FileID: m.Audio.FileID, FileName: m.Audio.FileName, FileSize: int64(m.Audio.FileSize), MimeType: m.Audio.MimeType}
	case m.Animation != nil:
		return &domain.Attachment{FileID: m.Animation.FileID, FileName: m.Animation.FileName, FileSize: int64(m.Animation.FileSize), MimeType: m.Animation.MimeType}
	case m.Voice != nil:
		return &domain.Attachment{FileID: m.Voice.FileID, FileSize: int64(m.Voice.FileSize), MimeType: m.Voice.MimeType}
	case m.VideoNote != nil:
		return &domain.Attachment{FileID: m.VideoNote.FileID, FileSize: int64(m.VideoNote.FileSize)}
	case len(m.Photo) > 0:
		// sizes are ordered smallest first
		largest := m.Photo[len(m.Photo)-1]
		return &domain.Attachment{FileID: largest.FileID, FileSize: int64(largest.FileSize), MimeType: "image/jpeg"}
	}
	return nil
}

// BuildRequest picks the source for /mirror. Media in the replied message wins over args.
func BuildRequest(msg *models.Message, args string) (domain.DownloadRequest, error) {
	if att := AttachmentFromMessage(msg.ReplyToMessage); att != nil {
		return domain.NewAttachmentRequest(att, domain.FilterInput(args))
	}
	if strings.TrimSpace(args) == "" {
		return domain.DownloadRequest{}, fmt.Errorf("%w: no url or replied media", domain.ErrInvalidInput)
	}
	return domain.NewURLRequest(args)
}

// ResultText renders the final status message for an invocation
func ResultText(result domain.DownloadResult, err error, publicURL string) string {
	switch {
	case err == nil:
		text := fmt.Sprintf("Downloaded to `%s` in %d seconds.", result.Path, result.ElapsedSeconds)
		if publicURL != "" {
			text += " Access to " + publicURL
		}
		return text
	case errors.Is(err, domain.ErrCancelled):
		return TextCanceled
	case errors.Is(err, domain.ErrInvalidInput):
		return TextReadHelp
	case errors.Is(err, domain.ErrCorruptedResult):
		return "ERROR : File Corrupted!"
	default:
		return "ERROR : " + err.Error()
	}
}

// HelpText returns usage for topic, general help when topic is unknown
func HelpText(topic string) string {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(topic)), "/") {
	case "mirror":
		return helpMirror
	default:
		return helpGeneral
	}
}
