// Package clientws connects the browser (or any other client) that hosts the
// speech engines. The client streams recognition results, engine callbacks and
// taps; the server answers with engine commands and state snapshots.
package clientws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	ws "nhooyr.io/websocket"

	"voicereader/agent/internal/auth"
	"voicereader/agent/internal/session"
	"voicereader/agent/internal/speech"
	"voicereader/agent/internal/store"
)

// Client to server.
const (
	TypeHello            = "hello"
	TypeResult           = "result"
	TypeRecognitionError = "recognition_error"
	TypeRecognitionEnd   = "recognition_end"
	TypeUtteranceEnd     = "utterance_end"
	TypeTap              = "tap"
	TypeListen           = "listen"
)

// Server to client.
const (
	TypeState           = "state"
	TypeError           = "error"
	TypeSpeak           = "speak"
	TypeSpeechCancel    = "speech_cancel"
	TypeSpeechPause     = "speech_pause"
	TypeSpeechResume    = "speech_resume"
	TypeRecognizerStart = "recognizer_start"
	TypeRecognizerStop  = "recognizer_stop"
)

type Message struct {
	Type        string          `json:"type"`
	TsMs        int64           `json:"ts_ms"`
	SessionID   string          `json:"session_id,omitempty"`
	Seq         int64           `json:"seq"`
	UtteranceID string          `json:"utterance_id,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

type helloPayload struct {
	VoiceSupported bool           `json:"voice_supported"`
	Voices         []speech.Voice `json:"voices"`
	UserAgent      string         `json:"user_agent"`
}

type errorPayload struct {
	Code string `json:"error"`
}

type listenPayload struct {
	On bool `json:"on"`
}

// Session is the part of session.Session the handler drives.
type Session interface {
	ID() string
	Post(ctx context.Context, ev session.Event) error
	Tap(ctx context.Context, t session.Tap) error
	SetListening(ctx context.Context, on bool) error
	Snapshot(ctx context.Context) (session.Snapshot, error)
}

type Server struct {
	Secret  string
	Skew    time.Duration
	Store   *store.Store
	Reg     *Registry
	Session Session
	Log     *zap.Logger
}

func NewServer(secret string, st *store.Store, reg *Registry, sess Session, log *zap.Logger) *Server {
	return &Server{Secret: secret, Skew: 30 * time.Second, Store: st, Reg: reg, Session: sess, Log: log}
}

// Publish pushes a snapshot to the attached client.
func (s *Server) Publish(snap session.Snapshot) {
	b, err := json.Marshal(snap)
	if err != nil {
		return
	}
	s.Reg.Send(snap.SessionID, Message{Type: TypeState, Payload: b})
}

func bearer(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimPrefix(authz, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func (s *Server) HandleClientWS(w http.ResponseWriter, r *http.Request) {
	sessionID := s.Session.ID()
	if q := r.URL.Query().Get("session_id"); q != "" && q != sessionID {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	if s.Secret != "" {
		token := bearer(r)
		if token == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		if _, _, err := auth.ValidateClientToken(s.Secret, token, sessionID, time.Now(), s.Skew); err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
	}

	c, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.Log.Warn("ws accept", zap.Error(err))
		return
	}
	if s.Reg.Replace(sessionID, c) {
		s.Store.AppendEvent(sessionID, "client_replaced", nil)
	}
	s.Store.AppendEvent(sessionID, "client_connected", nil)

	ctx := r.Context()
	if snap, err := s.Session.Snapshot(ctx); err == nil {
		s.Publish(snap)
	}
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			break
		}
		if typ != ws.MessageText && typ != ws.MessageBinary {
			continue
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.Store.AppendEvent(sessionID, "client_msg_invalid", map[string]any{"error": err.Error()})
			continue
		}
		metricMessages.WithLabelValues("in", msg.Type).Inc()
		if err := s.dispatch(ctx, msg); err != nil {
			s.Log.Debug("client message", zap.String("type", msg.Type), zap.Error(err))
			s.sendError(sessionID, err)
		}
	}
	if s.Reg.Remove(sessionID, c) {
		// a replacement connection keeps the engines; only the last one leaving resets them
		_ = s.Session.Post(context.Background(), session.ClientGone{})
	}
	s.Store.AppendEvent(sessionID, "client_disconnected", nil)
}

func (s *Server) dispatch(ctx context.Context, msg Message) error {
	switch msg.Type {
	case TypeHello:
		var p helloPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return s.Session.Post(ctx, session.ClientHello{VoiceSupported: p.VoiceSupported, Voices: p.Voices, UserAgent: p.UserAgent})
	case TypeResult:
		var p speech.ResultEvent
		if err := decode(msg, &p); err != nil {
			return err
		}
		return s.Session.Post(ctx, session.ResultReceived{Result: p})
	case TypeRecognitionError:
		var p errorPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return s.Session.Post(ctx, session.RecognitionError{Code: p.Code})
	case TypeRecognitionEnd:
		return s.Session.Post(ctx, session.RecognitionEnded{})
	case TypeUtteranceEnd:
		return s.Session.Post(ctx, session.UtteranceEnded{ID: msg.UtteranceID})
	case TypeTap:
		var p session.Tap
		if err := decode(msg, &p); err != nil {
			return err
		}
		return s.Session.Tap(ctx, p)
	case TypeListen:
		var p listenPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return s.Session.SetListening(ctx, p.On)
	}
	return errUnknownType(msg.Type)
}

type errUnknownType string

func (e errUnknownType) Error() string { return "unknown message type " + string(e) }

func decode(msg Message, v any) error {
	if len(msg.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(msg.Payload, v)
}

func (s *Server) sendError(sessionID string, err error) {
	b, _ := json.Marshal(map[string]string{"message": err.Error()})
	s.Reg.Send(sessionID, Message{Type: TypeError, Payload: b})
}
