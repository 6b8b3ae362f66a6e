package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"voicereader/agent/internal/auth"
	"voicereader/agent/internal/catalog"
	"voicereader/agent/internal/command"
	"voicereader/agent/internal/config"
	"voicereader/agent/internal/health"
	"voicereader/agent/internal/nav"
	"voicereader/agent/internal/session"
	"voicereader/agent/internal/types"
)

// Session is the part of session.Session the API serves.
type Session interface {
	ID() string
	Snapshot(ctx context.Context) (session.Snapshot, error)
	Info() *types.Session
	Events() []types.Event
	Tap(ctx context.Context, t session.Tap) error
	SetListening(ctx context.Context, on bool) error
}

type Handlers struct {
	cfg     config.Config
	catalog *catalog.Catalog
	sess    Session
	checks  []health.Check
	log     *zap.Logger
	now     func() time.Time
}

func NewHandlers(cfg config.Config, cat *catalog.Catalog, sess Session, log *zap.Logger, checks ...health.Check) *Handlers {
	return &Handlers{cfg: cfg, catalog: cat, sess: sess, checks: checks, log: log, now: time.Now}
}

type chapterSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type subjectSummary struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Chapters    []chapterSummary `json:"chapters"`
}

type listenRequest struct {
	On *bool `json:"on" validate:"required"`
}

func (h *Handlers) HandleReady(c echo.Context) error {
	st := health.CheckAll(c.Request().Context(), h.checks...)
	code := http.StatusOK
	if !st.OK {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, st)
}

func (h *Handlers) HandleListSubjects(c echo.Context) error {
	subs := h.catalog.Subjects()
	out := make([]subjectSummary, 0, len(subs))
	for _, sub := range subs {
		s := subjectSummary{ID: sub.ID, Title: sub.Title, Description: sub.Description}
		for _, ch := range sub.Chapters {
			s.Chapters = append(s.Chapters, chapterSummary{ID: ch.ID, Title: ch.Title})
		}
		out = append(out, s)
	}
	return c.JSON(http.StatusOK, map[string]any{"subjects": out})
}

func (h *Handlers) HandleGetSubject(c echo.Context) error {
	sub, err := h.catalog.Subject(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, sub)
}

func (h *Handlers) HandleHelp(c echo.Context) error {
	view, ok := nav.ParseView(c.QueryParam("view"))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown view")
	}
	return c.JSON(http.StatusOK, map[string]string{
		"view":  view.String(),
		"help":  command.HelpText(view),
		"hints": command.Hints(view),
	})
}

func (h *Handlers) HandleSnapshot(c echo.Context) error {
	snap, err := h.sess.Snapshot(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusOK, snap)
}

func (h *Handlers) HandleListEvents(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"session": h.sess.Info(),
		"events":  h.sess.Events(),
	})
}

func (h *Handlers) HandleTap(c echo.Context) error {
	var req session.Tap
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if err := h.sess.Tap(ctx, req); err != nil {
		return sessionError(err)
	}
	return h.HandleSnapshot(c)
}

func (h *Handlers) HandleListen(c echo.Context) error {
	var req listenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.sess.SetListening(c.Request().Context(), *req.On); err != nil {
		return sessionError(err)
	}
	return h.HandleSnapshot(c)
}

func (h *Handlers) HandleMintClientToken(c echo.Context) error {
	if h.cfg.Client.TokenSecret == "" {
		return echo.NewHTTPError(http.StatusNotFound, "client auth not configured")
	}
	now := h.now()
	exp := now.Add(h.cfg.TokenTTL())
	tok, err := auth.GenerateClientToken(h.cfg.Client.TokenSecret, h.sess.ID(), now, exp)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"session_id": h.sess.ID(),
		"token":      tok,
		"expires_at": exp.UTC(),
	})
}

func sessionError(err error) error {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrNoChapter), errors.Is(err, session.ErrVoiceUnsupported):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrBadSegment), errors.Is(err, session.ErrUnknownTap):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrClosed), errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
