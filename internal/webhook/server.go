package webhook

import (
	"crypto/subtle"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/keybrdist/makiso/internal/core"
	"github.com/keybrdist/makiso/internal/db"
	"github.com/keybrdist/makiso/internal/types"
)

const secretHeader = "X-Makiso-Secret"

// Server relays inbound webhooks onto topics. Each configured route maps a
// URL path to a topic; the request body becomes the event body and any
// remaining JSON fields ride along as metadata.
type Server struct {
	echo  *echo.Echo
	conn  *sql.DB
	cfg   *core.Config
	scope types.Scope
	log   zerolog.Logger
}

func NewServer(conn *sql.DB, cfg *core.Config, scope types.Scope, log zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:  e,
		conn:  conn,
		cfg:   cfg,
		scope: scope,
		log:   log,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Msg("request")
			return nil
		},
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	relay := e.Group("", s.secretAuth())
	for route, topic := range cfg.ParseRoutes() {
		relay.POST("/"+route, s.relayHandler(route, topic))
	}

	return s
}

// Handler exposes the underlying router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// ListenAndServe runs the relay on the configured port.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.cfg.Webhook.Port)
	s.log.Info().Str("addr", addr).Int("routes", len(s.cfg.ParseRoutes())).Msg("webhook relay listening")
	return s.echo.Start(addr)
}

// secretAuth checks the shared secret header when one is configured. An
// empty configured secret disables the check for local setups.
func (s *Server) secretAuth() echo.MiddlewareFunc {
	secret := s.cfg.Webhook.Secret
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup: "header:" + secretHeader,
		Skipper: func(echo.Context) bool {
			return secret == ""
		},
		Validator: func(key string, c echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(secret)) == 1, nil
		},
		ErrorHandler: func(err error, c echo.Context) error {
			s.log.Warn().Str("path", c.Path()).Msg("rejected webhook: bad secret")
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid secret")
		},
	})
}

func (s *Server) relayHandler(route, topic string) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
		}

		body, metadata := parsePayload(raw)
		if body == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "empty body")
		}

		event, indexErr, err := db.PublishEvent(s.conn, types.NewEventInput{
			Topic:    topic,
			Body:     body,
			Metadata: metadata,
			Source:   s.cfg.Webhook.Source,
			Scope:    s.scope,
		})
		if err != nil {
			s.log.Error().Err(err).Str("topic", topic).Msg("publish failed")
			return echo.NewHTTPError(http.StatusInternalServerError, "publish failed")
		}
		if indexErr != nil {
			s.log.Warn().Err(indexErr).Str("event_id", event.ID).Msg("indexing failed")
		}

		core.TouchTrigger(s.cfg.TriggerPath())

		s.log.Info().Str("event_id", event.ID).Str("topic", topic).Str("route", route).Msg("relayed webhook")
		return c.JSON(http.StatusCreated, map[string]string{"id": event.ID, "topic": topic})
	}
}

// parsePayload extracts the event body from a webhook payload. JSON objects
// are mined for a conventional text field; the leftover fields become
// metadata so nothing from the sender is dropped. Anything else is used
// verbatim.
func parsePayload(raw []byte) (string, *string) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return strings.TrimSpace(string(raw)), nil
	}

	body := ""
	for _, key := range []string{"body", "message", "text"} {
		if value, ok := fields[key].(string); ok && value != "" {
			body = value
			delete(fields, key)
			break
		}
	}
	if body == "" {
		return strings.TrimSpace(string(raw)), nil
	}

	if len(fields) == 0 {
		return body, nil
	}
	remainder, err := json.Marshal(fields)
	if err != nil {
		return body, nil
	}
	metadata := string(remainder)
	return body, &metadata
}
