package server

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed assets
var assets embed.FS

var pageTemplate = template.Must(template.ParseFS(assets, "assets/index.html"))

func (s *Server) page() {
	s.engine.SetHTMLTemplate(pageTemplate)
	js, _ := fs.Sub(assets, "assets/js")
	css, _ := fs.Sub(assets, "assets/css")
	s.engine.StaticFS("/js", http.FS(js))
	s.engine.StaticFS("/css", http.FS(css))
	s.engine.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "index.html", gin.H{
			"AppName":   s.opts.appName,
			"SourceURL": s.opts.sourceURL,
		})
	})
}
