package web

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/supportlog/internal/core"
)

// multipartOverhead is the allowance for form boundaries and part headers on
// top of the file size limit.
const multipartOverhead = 64 << 10

// handleImport runs a batch import. The payload is either a multipart form
// with a "file" part or the raw request body. The format comes from the
// "format" query parameter, the file extension (of the uploaded part or the
// "filename" query parameter), or the Content-Type, in that order.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	if maxSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)
	}

	data, filename, contentType, err := readPayload(r, maxSize)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	if filename == "" {
		filename = r.URL.Query().Get("filename")
	}
	format, err := detectFormat(r.URL.Query().Get("format"), filename, contentType)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	report, err := s.service.Import(r.Context(), data, format)
	if err != nil {
		respondErrorReport(w, r, err, statusFor(err), report)
		return
	}

	writeJSON(w, r, http.StatusOK, report)
}

// readPayload returns the uploaded bytes with the client's filename and
// content type, if any.
func readPayload(r *http.Request, maxSize int64) ([]byte, string, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		file, header, err := r.FormFile("file")
		if err != nil {
			if isTooLarge(err) {
				return nil, "", "", tooLarge(maxSize)
			}
			return nil, "", "", fmt.Errorf("%w: no file provided: %v", core.ErrEmptyInput, err)
		}
		defer file.Close()

		data, err := readLimited(file, maxSize)
		if err != nil {
			return nil, "", "", err
		}
		return data, header.Filename, header.Header.Get("Content-Type"), nil
	}

	data, err := readLimited(r.Body, maxSize)
	if err != nil {
		return nil, "", "", err
	}
	return data, "", mediaType, nil
}

func readLimited(rd io.Reader, maxSize int64) ([]byte, error) {
	if maxSize > 0 {
		rd = io.LimitReader(rd, maxSize+1)
	}
	data, err := io.ReadAll(rd)
	if err != nil {
		if isTooLarge(err) {
			return nil, tooLarge(maxSize)
		}
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, tooLarge(maxSize)
	}
	return data, nil
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func tooLarge(maxSize int64) error {
	return fmt.Errorf("%w: limit is %d bytes", core.ErrFileTooLarge, maxSize)
}

// detectFormat resolves the import format from the explicit parameter, the
// filename extension, or the content type.
func detectFormat(param, filename, contentType string) (core.Format, error) {
	if param != "" {
		return core.ParseFormat(param)
	}
	if ext := filepath.Ext(filename); ext != "" {
		return core.ParseFormat(ext)
	}

	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return core.FormatJSON, nil
	case strings.Contains(ct, "csv"):
		return core.FormatCSV, nil
	}
	return "", fmt.Errorf("%w: set ?format=csv or ?format=json", core.ErrUnsupportedFormat)
}

// handleExport streams every stored record as a downloadable file.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	param := r.URL.Query().Get("format")
	if param == "" {
		param = string(core.FormatCSV)
	}
	format, err := core.ParseFormat(param)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	data, err := s.service.Export(r.Context(), format)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	filename := core.ExportFilename(format, time.Now().UTC())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
