package domain

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// SourceKind identifies where a download comes from
type SourceKind int

const (
	SourceURL SourceKind = iota + 1
	SourceAttachment
)

// String returns the label used in logs, metrics and history records
func (k SourceKind) String() string {
	switch k {
	case SourceURL:
		return "url"
	case SourceAttachment:
		return "attachment"
	default:
		return "unknown"
	}
}

// Attachment is a handle to media attached to a chat message
type Attachment struct {
	// FileID is the chat platform's identifier used to fetch the file
	FileID string

	// FileName is the name reported by the chat platform, may be empty
	FileName string

	// FileSize in bytes, 0 if unknown
	FileSize int64

	MimeType string
}

// DownloadRequest is a tagged union over the supported sources.
// Exactly one of URL or Attachment is populated, as selected by Kind.
type DownloadRequest struct {
	Kind       SourceKind
	URL        string
	Attachment *Attachment

	// FileName is the trimmed user override, empty when none was given
	FileName string
}

// NewURLRequest parses "<url>[|<filename>]" into a URL request
func NewURLRequest(raw string) (DownloadRequest, error) {
	rawURL, name := SplitURLInput(raw)
	if rawURL == "" {
		return DownloadRequest{}, fmt.Errorf("%w: empty url", ErrInvalidInput)
	}
	return DownloadRequest{
		Kind:     SourceURL,
		URL:      rawURL,
		FileName: name,
	}, nil
}

// NewAttachmentRequest builds a request for a message attachment.
// filteredInput is the command argument with flag tokens already removed.
func NewAttachmentRequest(att *Attachment, filteredInput string) (DownloadRequest, error) {
	if att == nil || att.FileID == "" {
		return DownloadRequest{}, fmt.Errorf("%w: no attachment", ErrInvalidInput)
	}
	return DownloadRequest{
		Kind:       SourceAttachment,
		Attachment: att,
		FileName:   strings.TrimSpace(filteredInput),
	}, nil
}

// Validate checks the union invariant
func (r DownloadRequest) Validate() error {
	switch r.Kind {
	case SourceURL:
		if r.URL == "" || r.Attachment != nil {
			return fmt.Errorf("%w: malformed url request", ErrInvalidInput)
		}
	case SourceAttachment:
		if r.Attachment == nil || r.URL != "" {
			return fmt.Errorf("%w: malformed attachment request", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown source kind %d", ErrInvalidInput, r.Kind)
	}
	return nil
}

// Source returns a human readable description of the source
func (r DownloadRequest) Source() string {
	switch r.Kind {
	case SourceURL:
		return r.URL
	case SourceAttachment:
		if r.Attachment == nil {
			return ""
		}
		if r.Attachment.FileName != "" {
			return r.Attachment.FileName
		}
		return r.Attachment.FileID
	}
	return ""
}

// SplitURLInput splits raw input on the first '|'.
// The left side is the URL, the right side the optional filename override.
func SplitURLInput(raw string) (rawURL, fileName string) {
	left, right, found := strings.Cut(raw, "|")
	rawURL = strings.TrimSpace(left)
	if found {
		fileName = strings.TrimSpace(right)
	}
	return rawURL, fileName
}

// FileNameFromURL returns the percent-decoded last path segment of rawURL,
// or fallback when the URL has no usable segment.
func FileNameFromURL(rawURL, fallback string) string {
	escaped := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		escaped = u.EscapedPath()
	}

	base := path.Base(escaped)
	if decoded, err := url.QueryUnescape(base); err == nil {
		base = decoded
	}
	base = strings.TrimSpace(base)

	if base == "" || base == "." || base == "/" || base == ".." {
		return fallback
	}
	return base
}

// ResolveFileName returns the override if present, otherwise the name derived from the URL
func (r DownloadRequest) ResolveFileName(fallback string) string {
	if r.FileName != "" {
		return r.FileName
	}
	if r.Kind == SourceURL {
		return FileNameFromURL(r.URL, fallback)
	}
	return ""
}

// FilterInput removes flag tokens ("-x", "--name") from command input
func FilterInput(input string) string {
	fields := strings.Fields(input)
	kept := fields[:0]
	for _, f := range fields {
		if strings.HasPrefix(f, "-") && len(f) > 1 {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}
