package server

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"strconv"
	"sync"

	"github.com/gofiber/fiber/v2"

	"github.com/tristendillon/minibundle/core/logger"
)

// StatusPath reports the state of the most recent build as JSON.
const StatusPath = "/__minibundle/status"

var ErrNotBuilt = errors.New("bundle has not been built yet")

type Options struct {
	Host string
	Port int

	// BundleFile is served at "/<BundleFile>".
	BundleFile string
	Title      string
}

// Server serves the latest bundle from memory, alongside a page that loads it.
type Server struct {
	app        *fiber.App
	addr       string
	bundlePath string
	title      string

	mu       sync.RWMutex
	bundle   string
	buildErr error
	builds   int
}

func NewServer(opts Options) *Server {
	s := &Server{
		addr:       net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
		bundlePath: "/" + opts.BundleFile,
		title:      opts.Title,
		buildErr:   ErrNotBuilt,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "minibundle",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	s.app.Get("/", s.handleIndex)
	s.app.Get(s.bundlePath, s.handleBundle)
	s.app.Get(StatusPath, s.handleStatus)
	return s
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// Publish replaces the served bundle and clears any previous build error.
func (s *Server) Publish(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bundle = text
	s.buildErr = nil
	s.builds++
}

// Fail records a failed build. The bundle path answers with the error until
// the next Publish.
func (s *Server) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buildErr = err
	s.builds++
}

func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Addr() string { return s.addr }

// Start blocks serving on Addr until Shutdown.
func (s *Server) Start() error {
	logger.Info("Serving %s on http://%s", s.bundlePath, s.addr)
	if err := s.app.Listen(s.addr); err != nil {
		return fmt.Errorf("failed to serve on %s: %w", s.addr, err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Type("html", "utf-8")
	return c.SendString(fmt.Sprintf(
		"<!doctype html>\n<html>\n<head><meta charset=\"utf-8\"><title>%s</title></head>\n<body>\n<script src=\"%s\"></script>\n</body>\n</html>\n",
		html.EscapeString(s.title), html.EscapeString(s.bundlePath),
	))
}

func (s *Server) handleBundle(c *fiber.Ctx) error {
	s.mu.RLock()
	text, err := s.bundle, s.buildErr
	s.mu.RUnlock()

	if err != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Type("js", "utf-8")
	return c.SendString(text)
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := fiber.Map{
		"builds": s.builds,
		"ok":     s.buildErr == nil,
	}
	if s.buildErr != nil {
		status["error"] = s.buildErr.Error()
	}
	return c.JSON(status)
}
