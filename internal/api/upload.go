package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/starford/morphovis/internal/storage"
)

const maxUploadBytes = 50 << 20 // 50 MB

// uploadPath validates that name is a plain .swc file name (no separators,
// no traversal) and joins it under dir.
func uploadPath(dir, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	if !storage.IsMorphologyFile(strings.ToLower(name)) {
		return "", fmt.Errorf("only %s files are accepted", storage.Extension)
	}
	dir = strings.Trim(path.Clean("/"+dir), "/")
	if dir == "" {
		return name, nil
	}
	return dir + "/" + name, nil
}

// UploadMorphology handles POST /api/morphologies/upload.
//
//	@Summary		Upload an SWC file as multipart form data
//	@Tags			morphologies
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"SWC file"
//	@Param			dir		formData	string	false	"Target directory inside the library"
//	@Success		201		{object}	UploadResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/morphologies/upload [post]
func (h *Handler) UploadMorphology(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	p, err := uploadPath(r.FormValue("dir"), header.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	detail, err := h.svc.Create(r.Context(), p, data)
	if err != nil {
		writeError(w, "upload morphology", err, slog.String("path", p))
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{
		Path:     detail.Path,
		Size:     int64(len(data)),
		Checksum: detail.Checksum,
	})
}
