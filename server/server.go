// Package server implements the HTTP surface of rolodex: blob routes under
// /blob, person record routes under /cosmos, and the landing page at /.
//
// Handlers check for required inputs before touching a backend and reply 400
// with a fixed text message when one is missing. Backend failures are handed
// to a single error middleware that logs them and replies 500 with a generic
// text message, so no backend detail reaches the client.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nicolagi/rolodex/storage"
	log "github.com/sirupsen/logrus"
)

type Option func(*options)

type options struct {
	address   string
	appName   string
	sourceURL string
	blobs     *storage.Blobs
	documents *storage.Documents
}

func WithAddress(value string) Option {
	return func(o *options) {
		o.address = value
	}
}

func WithAppName(value string) Option {
	return func(o *options) {
		o.appName = value
	}
}

// WithSourceURL sets the remote people file the landing page loads from.
func WithSourceURL(value string) Option {
	return func(o *options) {
		o.sourceURL = value
	}
}

func WithBlobs(value *storage.Blobs) Option {
	return func(o *options) {
		o.blobs = value
	}
}

func WithDocuments(value *storage.Documents) Option {
	return func(o *options) {
		o.documents = value
	}
}

type Server struct {
	opts   options
	engine *gin.Engine
	ln     net.Listener
	http   *http.Server
}

// New returns a server with all routes registered. Backends default to
// in-memory ones.
func New(opts ...Option) *Server {
	s := &Server{}
	s.opts.address = ":4321"
	s.opts.appName = "rolodex"
	for _, o := range opts {
		o(&s.opts)
	}
	if s.opts.blobs == nil {
		s.opts.blobs = storage.NewBlobs(storage.NewInMemoryContainer(), nil)
	}
	if s.opts.documents == nil {
		s.opts.documents = storage.NewDocuments(storage.NewInMemoryTable(), nil)
	}
	s.engine = gin.New()
	s.engine.Use(accessLog(), recovery(), handleErrors())
	s.routes()
	s.http = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.page()

	blob := s.engine.Group("/blob")
	blob.GET("/all", s.listBlobs)
	blob.DELETE("/all", s.deleteAllBlobs)
	blob.POST("/upload", s.uploadBlob)
	blob.DELETE("/:name", s.deleteBlob)
	blob.GET("/:name", s.downloadBlob)
	blob.GET("/text/:name", s.blobText)

	cosmos := s.engine.Group("/cosmos")
	cosmos.GET("/all", s.queryRecords)
	cosmos.POST("/all", s.upsertRecords)
	cosmos.DELETE("/all", s.deleteAllRecords)
}

// Handler returns the root handler, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Listen() (addr string, err error) {
	s.ln, err = net.Listen("tcp", s.opts.address)
	if err != nil {
		return
	}
	addr = s.ln.Addr().String()
	return
}

// Serve serves requests on the listener opened by Listen. It returns nil
// once Shutdown is called.
func (s *Server) Serve() error {
	err := s.http.Serve(s.ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info("Shutting down HTTP server")
	return s.http.Shutdown(ctx)
}
