package controllers

import (
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/angelmondragon/oddsvault-backend/api/middleware"
	"github.com/angelmondragon/oddsvault-backend/api/responses"
	"github.com/angelmondragon/oddsvault-backend/api/validators"
	"github.com/angelmondragon/oddsvault-backend/internal/chat"
	"github.com/angelmondragon/oddsvault-backend/pkg/config"
	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
)

// A conversation is keyed by the user it belongs to. Users always talk in
// their own; admins pick one by {userID}.

func chatViewer(s middleware.Session) chat.Viewer {
	return chat.Viewer{UserID: s.UserID, IsAdmin: s.IsAdmin()}
}

// conversationFor resolves the conversation from {userID} when present and
// otherwise uses the caller's own.
func conversationFor(r *http.Request, s middleware.Session) (uuid.UUID, error) {
	if strings.TrimSpace(chi.URLParam(r, "userID")) == "" {
		return s.UserID, nil
	}
	return validators.ParseUUIDParam(r, "userID")
}

func ChatHistory(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		convID, err := conversationFor(r, s)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		msgs, err := svc.History(r.Context(), chatViewer(s), convID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, msgs)
	}
}

func ChatSend(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		convID, err := conversationFor(r, s)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body chat.SendRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		msg, err := svc.Send(r.Context(), chatViewer(s), convID, body.Content)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, msg)
	}
}

// ChatMarkRead marks the other side's messages as read for the caller.
func ChatMarkRead(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		convID, err := conversationFor(r, s)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := svc.MarkRead(r.Context(), chatViewer(s), convID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"updated": updated})
	}
}

func ChatUnreadCount(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		count, err := svc.UnreadCount(r.Context(), chatViewer(s), s.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"unread": count})
	}
}

func AdminChatConversations(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		convs, err := svc.Conversations(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if convs == nil {
			convs = []chat.Conversation{}
		}
		responses.WriteSuccess(w, convs)
	}
}

func AdminChatUnreadTotal(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		total, err := svc.TotalUnread(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"unread": total})
	}
}

// ChatSocket upgrades to a websocket bound to one conversation. Users join
// their own; admins open /admin/chat/{userID}/ws. Authorization happens
// before the upgrade so failures are plain JSON errors.
func ChatSocket(svc chat.Service, cfg config.Config, logg *logger.Logger) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.CORS.AllowedOrigins),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := requireSession(w, r, logg)
		if !ok {
			return
		}

		convID, err := conversationFor(r, s)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		viewer := chatViewer(s)
		sub, err := svc.Subscribe(r.Context(), viewer, convID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error.
			_ = sub.Close()
			logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "chat.upgrade_failed")
			return
		}

		ctx := logg.WithField(r.Context(), "conversation_id", convID.String())
		logg.Info(ctx, "chat.socket_open")
		chat.NewSocketSession(conn, svc, sub, viewer, convID, cfg.Chat, logg).Run(ctx)
		logg.Info(ctx, "chat.socket_closed")
	}
}

// originChecker admits same-origin requests, non-browser clients and the
// configured CORS origins. "*" admits everything.
func originChecker(allowed []string) func(*http.Request) bool {
	origins := make([]string, 0, len(allowed))
	for _, o := range allowed {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	return func(r *http.Request) bool {
		origin := strings.TrimRight(r.Header.Get("Origin"), "/")
		if origin == "" || slices.Contains(origins, "*") {
			return true
		}
		if slices.Contains(origins, origin) {
			return true
		}
		return origin == "http://"+r.Host || origin == "https://"+r.Host
	}
}
