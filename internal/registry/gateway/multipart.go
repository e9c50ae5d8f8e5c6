package gateway

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// Multipart is a multipart/form-data request body. Parts are written in the order
// they were added.
type Multipart struct {
	parts []formPart
}

type formPart struct {
	name        string
	value       string
	filename    string
	contentType string
	content     io.Reader
}

// NewMultipart returns an empty multipart body.
func NewMultipart() *Multipart {
	return &Multipart{}
}

// AddField appends a plain form field.
func (m *Multipart) AddField(name, value string) {
	m.parts = append(m.parts, formPart{name: name, value: value})
}

// AddFile appends a file part. An empty contentType is sent as application/octet-stream.
func (m *Multipart) AddFile(name, filename, contentType string, content io.Reader) {
	m.parts = append(m.parts, formPart{
		name:        name,
		filename:    filename,
		contentType: contentType,
		content:     content,
	})
}

// Len reports the number of parts.
func (m *Multipart) Len() int {
	if m == nil {
		return 0
	}
	return len(m.parts)
}

// Value returns the first plain field named name.
func (m *Multipart) Value(name string) (string, bool) {
	for _, p := range m.parts {
		if p.name == name && p.content == nil {
			return p.value, true
		}
	}
	return "", false
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (m *Multipart) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range m.parts {
		if p.content == nil {
			if err := w.WriteField(p.name, p.value); err != nil {
				return nil, "", fmt.Errorf("write field %s: %w", p.name, err)
			}
			continue
		}

		contentType := p.contentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(p.name), quoteEscaper.Replace(p.filename)))
		h.Set("Content-Type", contentType)
		pw, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create part %s: %w", p.name, err)
		}
		if _, err := io.Copy(pw, p.content); err != nil {
			return nil, "", fmt.Errorf("copy file %s: %w", p.name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
