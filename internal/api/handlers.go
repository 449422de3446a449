// Package api provides HTTP handlers for TitiNauta endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/educareplus/titinauta/internal/models"
)

// DefaultMessageLogLimit caps how many audit rows the messages endpoint returns.
const DefaultMessageLogLimit = 50

// webhookHandler receives inbound WhatsApp messages from the Evolution
// integration, runs one engine turn and delivers the reply.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.webhookHandler: processing webhook request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.webhookHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.authorized(r) {
		slog.Warn("Server.webhookHandler: unauthorized webhook call", "remote", r.RemoteAddr)
		writeJSONResponse(w, http.StatusUnauthorized, models.Error("Unauthorized"))
		return
	}

	var msg models.WebhookMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		slog.Warn("Server.webhookHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := msg.Validate(); err != nil {
		slog.Warn("Server.webhookHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	canonicalFrom, err := s.msgService.ValidateAndCanonicalizeRecipient(msg.SenderPhone)
	if err != nil {
		slog.Warn("Server.webhookHandler: sender validation failed", "error", err, "sender", msg.SenderPhone)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	reply, err := s.engine.HandleMessage(r.Context(), canonicalFrom, msg.MessageBody)
	if err != nil {
		slog.Error("Server.webhookHandler: engine turn failed", "error", err, "sender", canonicalFrom)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process message"))
		return
	}
	replied := reply != ""
	if replied {
		if err := s.msgService.SendMessage(r.Context(), canonicalFrom, reply); err != nil {
			slog.Error("Server.webhookHandler: failed to send reply", "error", err, "sender", canonicalFrom)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to deliver reply"))
			return
		}
	}

	slog.Info("Server.webhookHandler: turn processed", "sender", canonicalFrom, "replied", replied)
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"replied": replied,
		"reply":   reply,
	}))
}

// sessionHandler returns the stored session for a phone number.
func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.sessionHandler: processing session request", "method", r.Method)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	phone := r.PathValue("phone")
	canonical, err := s.msgService.ValidateAndCanonicalizeRecipient(phone)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	sess, err := s.sessions.GetSession(canonical)
	if err != nil {
		slog.Error("Server.sessionHandler: session lookup failed", "error", err, "phone", canonical)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load session"))
		return
	}
	if sess == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(sess))
}

// messagesHandler returns the recent message audit trail for a phone number.
func (s *Server) messagesHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.messagesHandler: processing messages request", "method", r.Method)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("phone query parameter is required"))
		return
	}
	canonical, err := s.msgService.ValidateAndCanonicalizeRecipient(phone)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	limit := DefaultMessageLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, convErr := strconv.Atoi(raw)
		if convErr != nil || parsed <= 0 {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	logs, err := s.sessions.GetMessageLogs(canonical, limit)
	if err != nil {
		slog.Error("Server.messagesHandler: log lookup failed", "error", err, "phone", canonical)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load messages"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(logs))
}

// healthHandler reports liveness.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("ok", nil))
}

// authorized checks the webhook shared secret. An empty configured token
// disables the check (local development).
func (s *Server) authorized(r *http.Request) bool {
	if s.webhookToken == "" {
		return true
	}
	if token := r.Header.Get("X-Webhook-Token"); token == s.webhookToken {
		return true
	}
	auth := r.Header.Get("Authorization")
	return strings.TrimPrefix(auth, "Bearer ") == s.webhookToken && auth != ""
}
