package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dyluth/projecthub/internal/apperr"
	"github.com/dyluth/projecthub/internal/timespec"
)

// streamHeartbeat keeps idle notification streams open through proxies.
const streamHeartbeat = 25 * time.Second

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Notifications(r.Context(), actor(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.MarkNotificationRead(r.Context(), actor(r).ID, pathVar(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) markAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.MarkAllNotificationsRead(r.Context(), actor(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

// streamNotifications relays the caller's notification channel as
// Server-Sent Events until the client goes away.
func (s *Server) streamNotifications(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, fmt.Errorf("response writer does not support streaming"))
		return
	}
	user := actor(r)
	sub, err := s.state.SubscribeNotifications(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer sub.Close()

	// Streams outlive the server write timeout. Test recorders have no deadline to clear.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case n, ok := <-sub.Events():
			if !ok {
				return
			}
			data, err := json.Marshal(n)
			if err != nil {
				s.logger.Warn("Failed to encode notification", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "id: %s\nevent: notification\ndata: %s\n\n", n.ID, data)
			flusher.Flush()
		case err, ok := <-sub.Errors():
			if !ok {
				return
			}
			s.logger.Warn("Notification stream error", zap.String("user_id", user.ID), zap.Error(err))
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Dashboard(r.Context(), actor(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) reports(w http.ResponseWriter, r *http.Request) {
	rep, err := s.svc.Reports(r.Context(), actor(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// calendar takes month=YYYY-MM (default: the current month) and an optional
// IANA tz used to place due dates on days.
func (s *Server) calendar(w http.ResponseWriter, r *http.Request) {
	loc := time.UTC
	if tz := r.URL.Query().Get("tz"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			s.writeError(w, r, apperr.Wrap(apperr.KindValidation, err, "invalid tz"))
			return
		}
		loc = l
	}

	month := time.Now().In(loc)
	if m := r.URL.Query().Get("month"); m != "" {
		t, err := timespec.ParseMonth(m, loc)
		if err != nil {
			s.writeError(w, r, apperr.Wrap(apperr.KindValidation, err, "invalid month"))
			return
		}
		month = t
	}

	view, err := s.svc.Calendar(r.Context(), actor(r).ID, month, loc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Search(r.Context(), actor(r).ID, r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) teams(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.Teams(r.Context(), actor(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}
