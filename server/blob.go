package server

import (
	"io/ioutil"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const invalidBlobMessage = "Invalid blob data"

func (s *Server) listBlobs(c *gin.Context) {
	blobs, err := s.opts.blobs.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, blobs)
}

func (s *Server) deleteAllBlobs(c *gin.Context) {
	n, err := s.opts.blobs.DeleteAll(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	log.WithField("count", n).Info("Deleted all blobs")
	text(c, http.StatusOK, "Deleted all blobs successfully")
}

// uploadBlob stores the multipart file field "file" under its file name.
func (s *Server) uploadBlob(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil || header.Filename == "" {
		text(c, http.StatusBadRequest, invalidBlobMessage)
		return
	}
	f, err := header.Open()
	if err != nil {
		_ = c.Error(err)
		return
	}
	defer func() {
		_ = f.Close()
	}()
	content, err := ioutil.ReadAll(f)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if err := s.opts.blobs.Upload(c.Request.Context(), header.Filename, content); err != nil {
		_ = c.Error(err)
		return
	}
	text(c, http.StatusCreated, "Uploaded blob successfully")
}

func (s *Server) deleteBlob(c *gin.Context) {
	name, ok := blobName(c)
	if !ok {
		return
	}
	if err := s.opts.blobs.Delete(c.Request.Context(), name); err != nil {
		_ = c.Error(err)
		return
	}
	text(c, http.StatusOK, "Deleted blob successfully")
}

// downloadBlob streams the raw blob. A missing blob is a backend failure
// like any other and yields 500.
func (s *Server) downloadBlob(c *gin.Context) {
	name, ok := blobName(c)
	if !ok {
		return
	}
	rc, err := s.opts.blobs.Download(c.Request.Context(), name)
	if err != nil {
		_ = c.Error(err)
		return
	}
	defer func() {
		if err := rc.Close(); err != nil {
			log.WithFields(log.Fields{
				"name": name,
				"err":  err,
			}).Warn("Could not close blob reader")
		}
	}()
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
}

func (s *Server) blobText(c *gin.Context) {
	name, ok := blobName(c)
	if !ok {
		return
	}
	content, err := s.opts.blobs.ReadText(c.Request.Context(), name)
	if err != nil {
		_ = c.Error(err)
		return
	}
	text(c, http.StatusOK, content)
}

func blobName(c *gin.Context) (string, bool) {
	name := c.Param("name")
	if strings.TrimSpace(name) == "" {
		text(c, http.StatusBadRequest, invalidBlobMessage)
		return "", false
	}
	return name, true
}
