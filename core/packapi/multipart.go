package packapi

import (
	"bytes"
	"fmt"
	"mime/multipart"
)

// filePart is one uploaded file in a multipart API call, referenced
// from the JSON fields via attach://<field>.
type filePart struct {
	Field    string
	FileName string
	Data     []byte
}

// encodeMultipart renders string fields plus attached files into a
// multipart/form-data body and returns it with its content type.
func encodeMultipart(fields map[string]string, files []filePart) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for key, value := range fields {
		if err := w.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", key, err)
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.Field, f.FileName)
		if err != nil {
			return nil, "", fmt.Errorf("create file part %s: %w", f.Field, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", fmt.Errorf("write file part %s: %w", f.Field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
