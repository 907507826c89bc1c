package api

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"slices"
	"strings"

	"github.com/starford/lifeone/internal/chatservice"
	"github.com/starford/lifeone/internal/models"
)

const maxUploadBytes = 20 << 20 // 20 MB

// readMessage extracts a chat turn from either a JSON body or a
// multipart/form-data body (fields "text" and "image"). Uploaded images are
// inlined as base64 for the provider.
func readMessage(w http.ResponseWriter, r *http.Request) (chatservice.Input, bool) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct != "multipart/form-data" {
		var req MessageRequest
		if !decodeJSON(w, r, &req) {
			return chatservice.Input{}, false
		}
		in := chatservice.Input{Text: req.Text}
		if req.Image != nil {
			in.Image = &models.ImageRef{MIMEType: req.Image.MIMEType, Data: req.Image.Data}
		}
		return in, true
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return chatservice.Input{}, false
	}
	in := chatservice.Input{Text: r.FormValue("text")}

	file, _, err := r.FormFile("image")
	if err == http.ErrMissingFile {
		return in, true
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid 'image' field"))
		return chatservice.Input{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read image"))
		return chatservice.Input{}, false
	}
	img, err := inlineImage(data)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return chatservice.Input{}, false
	}
	in.Image = img
	return in, true
}

// inlineImage sniffs the content type of data and encodes it.
func inlineImage(data []byte) (*models.ImageRef, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("image is empty")
	}
	mt := http.DetectContentType(data)
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	if !slices.Contains(imageTypes, any(mt)) {
		return nil, fmt.Errorf("unsupported image type: %s", mt)
	}
	return &models.ImageRef{MIMEType: mt, Data: base64.StdEncoding.EncodeToString(data)}, nil
}
