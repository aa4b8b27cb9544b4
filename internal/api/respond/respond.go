package respond

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/wb-go/wbf/ginext"
)

// Success represents a standard structure for successful responses.
type Success struct {
	Result interface{} `json:"result"`
}

// Error represents a standard structure for error responses.
type Error struct {
	Message string `json:"message"`
}

// File streams a stored file as the HTTP response, typed by the extension
// of name. The file is offered as an attachment when attachment is true.
func File(c *ginext.Context, name string, reader io.Reader, attachment bool) {
	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	extra := map[string]string{
		"Cache-Control": "no-cache, no-store, must-revalidate",
	}
	if attachment {
		extra["Content-Disposition"] = fmt.Sprintf("attachment; filename=%q", name)
	}

	c.DataFromReader(http.StatusOK, -1, contentType, reader, extra)
}

// PNG streams a PNG image directly from an io.Reader as the HTTP response.
func PNG(c *ginext.Context, status int, reader io.Reader) {
	c.DataFromReader(status, -1, "image/png", reader, nil)
}

// JSON sends a JSON response with the specified HTTP status code and data.
// It uses the Gin context to encode the data into JSON format.
func JSON(c *ginext.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// OK sends a 200 OK JSON response, wrapping the given result in a Success struct.
func OK(c *ginext.Context, result interface{}) {
	JSON(c, http.StatusOK, Success{Result: result})
}

// Accepted sends a 202 Accepted JSON response for work that runs in the background.
func Accepted(c *ginext.Context, result interface{}) {
	JSON(c, http.StatusAccepted, Success{Result: result})
}

// Fail sends an error JSON response with the specified HTTP status code.
// The error message is wrapped in an Error struct.
func Fail(c *ginext.Context, status int, err error) {
	JSON(c, status, Error{Message: err.Error()})
}
