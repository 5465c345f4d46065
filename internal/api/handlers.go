package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nmtri/docviet/internal/chat"
	"github.com/nmtri/docviet/internal/creative"
	"github.com/nmtri/docviet/internal/grading"
	"github.com/nmtri/docviet/internal/narrate"
	"github.com/nmtri/docviet/internal/progress"
	"github.com/nmtri/docviet/pkg/audio"
	"github.com/nmtri/docviet/pkg/provider/llm"
)

// Request/response bodies. Audio and images travel base64-encoded inside
// JSON, matching what the browser capture layer produces.

type gradeReadingRequest struct {
	Audio        string `json:"audio"`
	ExpectedText string `json:"expectedText"`
	MIMEType     string `json:"mimeType"`
}

type gradeExerciseRequest struct {
	Audio    string `json:"audio"`
	Question string `json:"question"`
	Concept  string `json:"concept"`
	MIMEType string `json:"mimeType"`
}

type gradeHandwritingRequest struct {
	// Image is base64 PNG bytes, optionally with a data-URL prefix.
	Image        string `json:"image"`
	ExpectedText string `json:"expectedText"`
}

type narrateRequest struct {
	Text string `json:"text"`

	// Overrides is the lesson's pronunciation override table.
	Overrides map[string]string `json:"overrides,omitempty"`
}

type chatRequest struct {
	Message string `json:"message"`

	// History carries the prior conversation, oldest first.
	History []chatMessage `json:"history,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type creativeImageRequest struct {
	Prompt string `json:"prompt"`
}

type creativeImageResponse struct {
	// Image is a data URL the browser can drop straight into an <img> src.
	Image string `json:"image"`
}

type checkRequest struct {
	Answer   string   `json:"answer"`
	Accepted []string `json:"accepted"`
}

type checkResponse struct {
	Correct    bool    `json:"correct"`
	Similarity float64 `json:"similarity"`
}

type progressRequest struct {
	Student     string `json:"student"`
	LessonID    string `json:"lessonId"`
	LessonTitle string `json:"lessonTitle"`
	Activity    string `json:"activity"`
	Score       int    `json:"score"`
	Comment     string `json:"comment"`
}

type progressResponse struct {
	Records []progressRecord `json:"records"`
}

type progressRecord struct {
	ID          int64  `json:"id"`
	Student     string `json:"student"`
	LessonID    string `json:"lessonId"`
	LessonTitle string `json:"lessonTitle"`
	Activity    string `json:"activity"`
	Score       int    `json:"score"`
	Comment     string `json:"comment"`
	CreatedAt   string `json:"createdAt"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleGradeReading(w http.ResponseWriter, r *http.Request) {
	var req gradeReadingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	audioBytes, ok := decodeAudio(w, req.Audio)
	if !ok {
		return
	}
	mime := req.MIMEType
	if mime == "" {
		mime = grading.MIMEAudioWebM
	}

	verdict := s.deps.Grader.GradeReading(r.Context(), audioBytes, req.ExpectedText, mime)
	writeJSON(w, http.StatusOK, verdict)
}

func (s *Server) handleGradeExercise(w http.ResponseWriter, r *http.Request) {
	var req gradeExerciseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	audioBytes, ok := decodeAudio(w, req.Audio)
	if !ok {
		return
	}
	mime := req.MIMEType
	if mime == "" {
		mime = grading.MIMEAudioWebM
	}

	verdict := s.deps.Grader.GradeSpokenExercise(r.Context(), audioBytes, req.Question, req.Concept, mime)
	writeJSON(w, http.StatusOK, verdict)
}

func (s *Server) handleGradeHandwriting(w http.ResponseWriter, r *http.Request) {
	var req gradeHandwritingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	image, err := grading.DecodeImage(req.Image)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "image is not valid base64"})
		return
	}
	if len(image) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "image is empty"})
		return
	}

	verdict := s.deps.Grader.GradeHandwriting(r.Context(), image, req.ExpectedText)
	writeJSON(w, http.StatusOK, verdict)
}

// handleNarrate runs the narration fallback chain and streams the finished
// WAV clip back for the browser to play. A chain where every channel failed
// is reported as 502: the UI falls back to showing the text without audio.
func (s *Server) handleNarrate(w http.ResponseWriter, r *http.Request) {
	var req narrateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "text is required"})
		return
	}

	text := narrate.OverrideTable(req.Overrides).Resolve(req.Text)

	var buf audio.Buffer
	outcome := s.deps.Narrator.Speak(r.Context(), text, &buf, narrate.Callbacks{})
	if outcome == narrate.OutcomeFailed {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "no narration channel available"})
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("X-Narration-Outcome", string(outcome))
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Debug("narration response write failed", "error", err)
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}

	history := make([]llm.Message, 0, len(req.History))
	for _, m := range req.History {
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}

	reply, err := s.deps.Assistant.Reply(r.Context(), history, req.Message)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required"})
	case err != nil:
		slog.Warn("chat reply failed", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "the tutor is unavailable right now"})
	default:
		writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
	}
}

// handleCreativeImage generates a reward illustration and returns it as a
// data URL, the form the browser's drawing activity renders directly.
func (s *Server) handleCreativeImage(w http.ResponseWriter, r *http.Request) {
	var req creativeImageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	img, err := s.deps.Illustrator.Illustrate(r.Context(), req.Prompt)
	switch {
	case errors.Is(err, creative.ErrEmptyPrompt):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "prompt is required"})
	case errors.Is(err, creative.ErrPromptTooLong):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "prompt is too long"})
	case errors.Is(err, creative.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "image generation is not configured"})
	case err != nil:
		slog.Warn("illustration failed", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "could not generate the picture"})
	default:
		writeJSON(w, http.StatusOK, creativeImageResponse{
			Image: fmt.Sprintf("data:%s;base64,%s", img.MIMEType,
				base64.StdEncoding.EncodeToString(img.Data)),
		})
	}
}

func (s *Server) handleExerciseCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Accepted) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "accepted answers are required"})
		return
	}

	result := s.deps.Checker.Check(req.Answer, req.Accepted...)
	writeJSON(w, http.StatusOK, checkResponse{
		Correct:    result.Correct,
		Similarity: result.Similarity,
	})
}

func (s *Server) handleProgressAdd(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if !decodeBody(w, r, &req) {
		return
	}

	added, err := s.deps.Store.Add(r.Context(), progress.Record{
		Student:     req.Student,
		LessonID:    req.LessonID,
		LessonTitle: req.LessonTitle,
		Activity:    req.Activity,
		Score:       req.Score,
		Comment:     req.Comment,
	})
	switch {
	case errors.Is(err, progress.ErrNoStudent):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "student is required"})
	case err != nil:
		slog.Error("progress add failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not save the record"})
	default:
		writeJSON(w, http.StatusCreated, toWireRecord(added))
	}
}

func (s *Server) handleProgressList(w http.ResponseWriter, r *http.Request) {
	student := r.PathValue("student")

	records, err := s.deps.Store.List(r.Context(), student, 0)
	if err != nil {
		slog.Error("progress list failed", "student", student, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not load records"})
		return
	}

	resp := progressResponse{Records: make([]progressRecord, 0, len(records))}
	for _, rec := range records {
		resp.Records = append(resp.Records, toWireRecord(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

func toWireRecord(r progress.Record) progressRecord {
	return progressRecord{
		ID:          r.ID,
		Student:     r.Student,
		LessonID:    r.LessonID,
		LessonTitle: r.LessonTitle,
		Activity:    r.Activity,
		Score:       r.Score,
		Comment:     r.Comment,
		CreatedAt:   r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// decodeBody parses the JSON request body into v, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}

// decodeAudio base64-decodes evidence audio and enforces the minimum-size
// threshold. Writes the error response itself when the payload is unusable.
func decodeAudio(w http.ResponseWriter, b64 string) ([]byte, bool) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "audio is not valid base64"})
		return nil, false
	}
	if len(data) < minAudioBytes {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("recording too short (%d bytes); it is probably silent", len(data)),
		})
		return nil, false
	}
	return data, true
}

// writeJSON encodes v with the given status. Mirrors the health package's
// fallback behaviour on encoding failure.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encoding failed", "error", err)
	}
}
