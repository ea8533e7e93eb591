package chat

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/civicconnect/civicconnect-ai/internal/model/chat"
	chatService "github.com/civicconnect/civicconnect-ai/internal/service/chat"
	"github.com/civicconnect/civicconnect-ai/internal/service/imaging"
	"github.com/civicconnect/civicconnect-ai/pkg/utils"
)

// multipart parts beyond this are spooled to disk by net/http.
const formMemory = 8 << 20

// ImageDecoder turns an uploaded file into a provider-ready image.
type ImageDecoder interface {
	Decode(r io.Reader) (*chat.Image, error)
}

// Handler serves the chat endpoint.
type Handler struct {
	sessions       *chatService.Service
	decoder        ImageDecoder
	maxUploadBytes int64
}

// New creates the chat handler.
func New(sessions *chatService.Service, decoder ImageDecoder, maxUploadBytes int64) *Handler {
	return &Handler{
		sessions:       sessions,
		decoder:        decoder,
		maxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes mounts the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
}

type chatRequest struct {
	SessionID string
	Message   string
	Image     *chat.Image
}

// Parts builds the content list sent to the model: the text, which may be
// empty, followed by the image when one was attached.
func (c *chatRequest) Parts() []chat.Part {
	parts := []chat.Part{chat.TextPart(c.Message)}
	if c.Image != nil {
		parts = append(parts, chat.ImagePart(c.Image))
	}
	return parts
}

type chatResponse struct {
	Reply string `json:"reply"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	req, reqErr := h.parseRequest(w, r)
	if reqErr != nil {
		h.writeError(w, r, sessionIDOf(req), reqErr)
		return
	}

	session, err := h.sessions.GetOrCreate(r.Context(), req.SessionID)
	if err != nil {
		h.writeError(w, r, req.SessionID, upstreamError(err))
		return
	}

	reply, err := session.Send(r.Context(), req.Parts()...)
	if err != nil {
		h.writeError(w, r, req.SessionID, upstreamError(err))
		return
	}

	utils.RespondJSON(w, http.StatusOK, chatResponse{Reply: reply})
}

// parseRequest validates the form and decodes the attachment. It never
// touches the session registry.
func (h *Handler) parseRequest(w http.ResponseWriter, r *http.Request) (*chatRequest, *RequestError) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	if err := r.ParseMultipartForm(formMemory); err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			return nil, validationError(msgInvalidBody, err)
		}
		if err := r.ParseForm(); err != nil {
			return nil, validationError(msgInvalidBody, err)
		}
	}

	req := &chatRequest{
		SessionID: r.PostFormValue("sessionId"),
		Message:   r.PostFormValue("message"),
	}
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, validationError(msgMissingSession, nil)
	}

	file, header, err := r.FormFile("image")
	hasImage := err == nil && (header.Filename != "" || header.Size > 0)
	if err != nil && !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		return req, validationError(msgInvalidImage, err)
	}
	if file != nil {
		defer file.Close()
	}

	if req.Message == "" && !hasImage {
		return req, validationError(msgMissingContent, nil)
	}

	if hasImage {
		img, err := h.decoder.Decode(file)
		if errors.Is(err, imaging.ErrImageTooLarge) {
			return req, validationError(msgImageTooLarge, err)
		}
		if err != nil {
			return req, validationError(msgInvalidImage, err)
		}
		req.Image = img
	}

	return req, nil
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, sessionID string, reqErr *RequestError) {
	logger := hlog.FromRequest(r)
	event := logger.Warn()
	if reqErr.Kind == KindUpstream {
		event = logger.Error()
	}
	event.Err(reqErr.Err).
		Str("session_id", sessionID).
		Int("status", reqErr.Kind.Status()).
		Msg(reqErr.Message)

	utils.RespondError(w, reqErr.Kind.Status(), reqErr.Message)
}

func sessionIDOf(req *chatRequest) string {
	if req == nil {
		return ""
	}
	return req.SessionID
}
