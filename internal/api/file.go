package api

import (
	"errors"
	"net/http"

	"github.com/cozy-creator/brandgen/internal/app"
	"github.com/cozy-creator/brandgen/internal/result"
	"github.com/cozy-creator/brandgen/internal/services/filestorage"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetFile serves a generated image from file storage by its content
// address.
func GetFile(c *gin.Context) {
	filename := c.Param("filename")
	app := c.MustGet("app").(*app.App)

	storage := app.FileStorage()
	if storage == nil {
		Respond(c, result.FromTemplate(result.CodeServiceUnavail))
		return
	}

	file, err := storage.GetFile(c.Request.Context(), filename)
	if err != nil {
		if errors.Is(err, filestorage.ErrFileNotFound) {
			Respond(c, result.Fail(result.CodeNotFound, "File '"+filename+"' not found", ""))
			return
		}
		app.Logger.Error("failed to read file", zap.String("filename", filename), zap.Error(err))
		Respond(c, result.FromTemplate(result.CodeStorageError))
		return
	}

	c.Data(http.StatusOK, mimetype.Detect(file.Content).String(), file.Content)
}
