package api

import (
	"io"
	"net/http"
)

const maxAudioBytes = 25 << 20

// STTHandler serves POST /stt.
type STTHandler struct {
	deps Dependencies
}

// NewSTTHandler creates a new speech-to-text handler.
func NewSTTHandler(deps Dependencies) *STTHandler {
	return &STTHandler{deps: deps}
}

type transcriptResponse struct {
	Text string `json:"text"`
}

// HandleTranscribe reads the multipart "file" field and returns its
// transcript. Transcription problems are reported in the text itself.
func (h *STTHandler) HandleTranscribe(w http.ResponseWriter, r *http.Request) {
	const op = "api.stt"
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	defer func() { _ = file.Close() }()

	audio, err := io.ReadAll(file)
	if err != nil {
		fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	writeJSON(w, r, http.StatusOK, transcriptResponse{Text: h.deps.Transcribe(r.Context(), audio)})
}
