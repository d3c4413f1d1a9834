// Package returnsrv is the landing location external payment pages redirect back to.
package returnsrv

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/set-night/companion/internal/domain"
	"github.com/set-night/companion/internal/resume"
)

// Resumable is the part of a chat session the landing needs.
type Resumable interface {
	Resume(ctx context.Context, loc resume.Location) (resume.Outcome, error)
	ChatID() int64
	Balance() domain.CreditBalance
	CanSend() bool
	Gallery() []string
	State() domain.SessionState
}

// LookupFunc finds the session a landing token belongs to.
type LookupFunc func(ctx context.Context, token uuid.UUID) (Resumable, error)

// PaymentLogger records applied payment markers.
type PaymentLogger interface {
	LogPayment(chatID int64, marker domain.PaymentMarker)
}

type Options struct {
	// BotURL is linked from the landing page, e.g. https://t.me/<bot>.
	BotURL      string
	CORSOrigins []string
	Payments    PaymentLogger
}

type Server struct {
	lookup LookupFunc
	opts   Options
	engine *gin.Engine
}

func New(lookup LookupFunc, opts Options) *Server {
	s := &Server{lookup: lookup, opts: opts}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/health", s.health)
	r.GET("/return/:token", s.handleReturn)
	r.GET("/api/sessions/:token", s.sessionStatus)

	s.engine = r
	return s
}

// Handler returns the routes wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept"},
	}).Handler(s.engine)
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("return server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleReturn(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	loc := &requestLocation{url: cloneURL(c.Request.URL)}
	out, err := sess.Resume(c.Request.Context(), loc)
	if err != nil {
		slog.Error("payment landing failed", "chat_id", sess.ChatID(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not process payment result"})
		return
	}

	if out.State == resume.StateCleared && out.Marker.Kind != "" && s.opts.Payments != nil {
		s.opts.Payments.LogPayment(sess.ChatID(), out.Marker)
	}

	if loc.cleared {
		c.Redirect(http.StatusSeeOther, loc.url.RequestURI())
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", landingPage(s.opts.BotURL))
}

func (s *Server) sessionStatus(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	b := sess.Balance()
	c.JSON(http.StatusOK, gin.H{
		"state":           sess.State(),
		"display_seconds": b.DisplaySeconds,
		"server_seconds":  b.ServerSeconds,
		"can_send":        sess.CanSend(),
		"gallery_size":    len(sess.Gallery()),
	})
}

func (s *Server) session(c *gin.Context) (Resumable, bool) {
	token, err := uuid.Parse(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token"})
		return nil, false
	}

	sess, err := s.lookup(c.Request.Context(), token)
	if errors.Is(err, domain.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	if err != nil {
		slog.Error("session lookup failed", "token", token, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "session unavailable"})
		return nil, false
	}
	return sess, true
}

// requestLocation is the landing URL. Clearing rewrites the query; the handler then
// redirects to the rewritten URL.
type requestLocation struct {
	url     *url.URL
	cleared bool
}

func (l *requestLocation) Query() url.Values {
	return l.url.Query()
}

func (l *requestLocation) Clear(keys ...string) error {
	q := l.url.Query()
	for _, k := range keys {
		q.Del(k)
	}
	l.url.RawQuery = q.Encode()
	l.cleared = true
	return nil
}

func cloneURL(u *url.URL) *url.URL {
	c := *u
	return &c
}

func landingPage(botURL string) []byte {
	link := ""
	if botURL != "" {
		link = fmt.Sprintf(`<p><a href="%s">Back to the chat</a></p>`, html.EscapeString(botURL))
	}
	return []byte(`<!doctype html><html><head><meta charset="utf-8"><title>Payment</title></head>` +
		`<body><p>All set. You can return to the chat now.</p>` + link + `</body></html>`)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http request processed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
