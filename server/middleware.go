package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const serverErrorMessage = "Something went wrong with the server"

func text(c *gin.Context, status int, body string) {
	c.Data(status, "text/plain; charset=utf-8", []byte(body))
}

// accessLog emits one entry per request once it completes.
func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
			"remote":   c.ClientIP(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("Request")
		} else {
			entry.Debug("Request")
		}
	}
}

func recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.WithFields(log.Fields{
			"path":      c.Request.URL.Path,
			"recovered": recovered,
		}).Error("Panic while serving request")
		text(c, http.StatusInternalServerError, serverErrorMessage)
		c.Abort()
	})
}

// handleErrors turns errors attached with c.Error into a generic 500. The
// errors themselves only go to the log.
func handleErrors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 {
			return
		}
		for _, e := range c.Errors {
			log.WithFields(log.Fields{
				"method": c.Request.Method,
				"path":   c.Request.URL.Path,
				"err":    e.Err,
			}).Error("Request failed")
		}
		if c.Writer.Written() {
			// Too late, e.g., a download failed mid-stream.
			return
		}
		text(c, http.StatusInternalServerError, serverErrorMessage)
	}
}
