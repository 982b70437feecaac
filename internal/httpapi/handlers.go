package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/MimeLyc/xieyin/pkg/log"
)

const maxBodyBytes = 1 << 20

// invalidMessage is shown to the page when the request carries no text.
const invalidMessage = "请提供有效的文本内容"

type mainRequest struct {
	Message any `json:"message"`
}

type mainResponse struct {
	Success          bool     `json:"success"`
	Timestamp        string   `json:"timestamp"`
	OriginalArticle  string   `json:"originalArticle"`
	OriginalWords    []string `json:"originalWords"`
	TranslatedWords  []string `json:"translatedWords"`
	AssembledResult  string   `json:"assembledResult"`
	DetectedLanguage string   `json:"detectedLanguage,omitempty"`
}

func (s *Server) handleMain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req mainRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, invalidMessage)
		return
	}
	message, ok := req.Message.(string)
	if !ok || message == "" {
		writeError(w, http.StatusBadRequest, invalidMessage)
		return
	}

	res, err := s.translator.Translate(r.Context(), message)
	if err != nil {
		log.Error("Translate failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, mainResponse{
		Success:          true,
		Timestamp:        time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		OriginalArticle:  res.OriginalArticle,
		OriginalWords:    res.OriginalWords,
		TranslatedWords:  res.TranslatedWords,
		AssembledResult:  res.AssembledResult,
		DetectedLanguage: res.DetectedLanguage,
	})
}

func (s *Server) handleCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.cache == nil {
		writeError(w, http.StatusNotFound, "cache statistics unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"size":    s.cache.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   msg,
	})
}
