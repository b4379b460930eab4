package backend

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// FilePart — файл для multipart-запроса.
type FilePart struct {
	// Field — имя поля формы (nid_card_front, project_images, media_files, ...)
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// Field — текстовое поле multipart-формы. Порядок полей сохраняется.
type Field struct {
	Name  string
	Value string
}

// sendForm отправляет изменение: multipart, если есть хотя бы один файл,
// иначе JSON-объект из тех же полей. Повторов нет.
func (c *Client) sendForm(ctx context.Context, method, path string, fields []Field, files []FilePart, target any) error {
	if len(files) == 0 {
		obj := make(map[string]string, len(fields))
		for _, f := range fields {
			obj[f.Name] = f.Value
		}
		return c.sendJSON(ctx, method, path, obj, target)
	}

	body, contentType, err := encodeMultipart(fields, files)
	if err != nil {
		return err
	}

	respBody, err := c.do(ctx, request{
		method:      method,
		path:        path,
		body:        body,
		contentType: contentType,
	})
	if err != nil {
		return err
	}
	return decodeEnvelope(respBody, target)
}

// encodeMultipart собирает тело multipart/form-data.
func encodeMultipart(fields []Field, files []FilePart) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)

	for _, f := range fields {
		if err := mw.WriteField(f.Name, f.Value); err != nil {
			return nil, "", fmt.Errorf("multipart: поле %s: %w", f.Name, err)
		}
	}

	for _, fp := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(fp.Field), escapeQuotes(fp.Filename)))
		ct := fp.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)

		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("multipart: файл %s: %w", fp.Filename, err)
		}
		if _, err := part.Write(fp.Data); err != nil {
			return nil, "", fmt.Errorf("multipart: запись %s: %w", fp.Filename, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("multipart: %w", err)
	}
	return buf, mw.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
