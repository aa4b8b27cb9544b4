package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/image-converter/internal/api/handlers/batch"
	"github.com/aliskhannn/image-converter/internal/middleware"
)

func Setup(h *batch.Handler) *ginext.Engine {
	r := ginext.New()

	r.Use(middleware.CORSMiddleware())
	r.Use(ginext.Logger())
	r.Use(ginext.Recovery())

	api := r.Group("/api")

	api.GET("/tools", h.Tools)     // tool catalog by section
	api.GET("/options", h.Options) // presets, aspects, fonts, colours

	api.POST("/batches", h.Submit)                     // upload files and start a batch
	api.GET("/batches/:id", h.Status)                  // batch progress and results
	api.POST("/batches/:id/cancel", h.Cancel)          // stop before the next file
	api.GET("/batches/:id/outputs/:index", h.Output)   // download one output
	api.GET("/batches/:id/previews/:index", h.Preview) // preview of one input

	return r
}
