package server

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/muurk/ppmsteg/internal/api"
	"github.com/muurk/ppmsteg/internal/logging"
	"github.com/muurk/ppmsteg/internal/ppm"
	"github.com/muurk/ppmsteg/internal/steg"
	"github.com/muurk/ppmsteg/internal/version"
)

// multipartMemory is how much of a multipart body is buffered in memory
// before spilling to temp files.
const multipartMemory = 8 << 20

// Handler returns the HTTP handler serving every ppmsteg endpoint
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(api.PathEncode, s.handleEncode)
	mux.HandleFunc(api.PathDecode, s.handleDecode)
	mux.HandleFunc(api.PathInspect, s.handleInspect)
	mux.HandleFunc(api.PathHealth, s.handleHealth)
	mux.HandleFunc(api.PathWS, s.handleWebSocket)
	return logRequests(mux)
}

func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	img, message, err := s.readEncodeRequest(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	out, err := steg.EncodeImage(img, message)
	if err != nil {
		writeError(w, err)
		return
	}

	data := out.Bytes()
	w.Header().Set("Content-Type", ppm.MediaType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logging.Debug("Failed to write encoded image", logging.ErrorField(err))
	}
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	img, err := s.readImage(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	message, err := steg.DecodeImage(img)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, api.DecodeResponse{Message: message})
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	img, err := s.readImage(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, api.DescribeImage(img))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok", Version: version.Version})
}

// readEncodeRequest accepts either a multipart form with message and image
// fields, or a raw PPM body with the message in the query string.
func (s *Server) readEncodeRequest(w http.ResponseWriter, r *http.Request) (*ppm.Image, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)

	if !isMultipart(r) {
		img, err := ppm.Decode(r.Body)
		if err != nil {
			return nil, "", err
		}
		return img, r.URL.Query().Get(api.FieldMessage), nil
	}

	img, err := readMultipartImage(r)
	if err != nil {
		return nil, "", err
	}
	return img, r.FormValue(api.FieldMessage), nil
}

// readImage reads a carrier image from a raw body or a multipart image field
func (s *Server) readImage(w http.ResponseWriter, r *http.Request) (*ppm.Image, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)

	if isMultipart(r) {
		return readMultipartImage(r)
	}
	return ppm.Decode(r.Body)
}

func readMultipartImage(r *http.Request) (*ppm.Image, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, api.BadRequest("invalid multipart form", err)
	}

	file, _, err := r.FormFile(api.FieldImage)
	if err != nil {
		return nil, api.BadRequest("missing image field", err)
	}
	defer func() { _ = file.Close() }()

	return ppm.Decode(file)
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeJSON(w, http.StatusMethodNotAllowed, api.ErrorResponse{
		Error: r.Method + " not allowed",
		Type:  api.TypeMethod,
	})
	return false
}

func writeError(w http.ResponseWriter, err error) {
	errType, status := api.Classify(err)
	if status >= http.StatusInternalServerError {
		logging.Error("Request failed", logging.ErrorField(err))
	} else {
		logging.Debug("Request rejected", zap.String("type", errType), logging.ErrorField(err))
	}
	writeJSON(w, status, api.ErrorResponse{Error: err.Error(), Type: errType})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("Failed to write JSON response", logging.ErrorField(err))
	}
}

// statusRecorder captures the status and size written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

func (sr *statusRecorder) Write(p []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(p)
	sr.size += n
	return n, err
}

// Unwrap lets http.ResponseController and the websocket upgrader reach the
// underlying writer.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, r.ContentLength)

		if r.URL.Path == api.PathWS {
			// The upgrader needs the raw writer for Hijack
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		logging.LogHTTPResponse(r.RemoteAddr, r.URL.Path, rec.status, rec.size)
	})
}
