package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/print-order-api/internal/domain"
)

// maxMemory is how much of a multipart body is buffered in memory before
// spilling to temp files.
const maxMemory = 8 << 20

var errNoOrderData = errors.New("missing order data")

// orderForm is a parsed order submission: the JSON form state in field
// "data" and the print files in pdf0..pdfN. Numbering stops at the first
// missing index and empty files are skipped.
type orderForm struct {
	Data        json.RawMessage
	Attachments []domain.Attachment
	Fields      *multipart.Form
}

func readOrderForm(w http.ResponseWriter, r *http.Request, maxBytes int64) (*orderForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, fmt.Errorf("parse multipart form: %w", err)
	}
	data := r.MultipartForm.Value["data"]
	if len(data) == 0 || !json.Valid([]byte(data[0])) {
		return nil, errNoOrderData
	}
	form := &orderForm{Data: json.RawMessage(data[0]), Fields: r.MultipartForm}

	for i := 0; ; i++ {
		headers := r.MultipartForm.File["pdf"+strconv.Itoa(i)]
		if len(headers) == 0 {
			break
		}
		fh := headers[0]
		if fh.Size == 0 {
			continue
		}
		content, err := readPart(fh)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		form.Attachments = append(form.Attachments, domain.Attachment{
			Filename:    fh.Filename,
			Content:     content,
			ContentType: "application/pdf",
		})
	}
	return form, nil
}

func (f *orderForm) value(key string) string {
	if v := f.Fields.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// formErrorStatus tells an oversized body apart from a malformed one.
func formErrorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}
