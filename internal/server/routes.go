package server

import (
	"github.com/cozy-creator/brandgen/internal/api"
	"github.com/cozy-creator/brandgen/internal/api/middleware"
	"github.com/cozy-creator/brandgen/internal/app"

	"github.com/gin-gonic/gin"
)

func (s *Server) SetupRoutes(app *app.App) {
	s.ginEngine.GET("/health", handlerWrapper(app, api.Health))

	// Not an API, just a simple file server endpoint
	s.ginEngine.GET("/file/:filename", handlerWrapper(app, api.GetFile))

	apiGroup := s.ginEngine.Group("/api")
	apiGroup.Use(handlerWrapper(app, middleware.AuthenticationMiddleware))
	apiGroup.Use(handlerWrapper(app, middleware.RateLimitMiddleware))

	route := func(method, path string, h gin.HandlerFunc) {
		apiGroup.Handle(method, path, handlerWrapper(app, h))
	}

	route("POST", "/generate", api.Command("asset.generate"))
	route("GET", "/asset-types", api.Command("asset.types"))

	route("GET", "/jobs", api.Command("job.list",
		api.Query("limit", "limit", api.IntParam),
		api.Query("status", "status_filter", api.StringParam),
	))
	route("GET", "/jobs/:id", api.Command("job.status", api.Path("id", "job_id", api.StringParam)))
	route("DELETE", "/jobs/:id", api.Command("job.cancel", api.Path("id", "job_id", api.StringParam)))

	route("GET", "/models", api.Command("model.list"))
	route("GET", "/models/:id", api.Command("model.info", api.Path("id", "model_id", api.StringParam)))

	route("GET", "/quality/presets", api.Command("quality.presets"))
	route("POST", "/quality/refine", api.Command("quality.refine"))
	route("POST", "/quality/upscale", api.Command("quality.upscale"))
	route("POST", "/quality/variations", api.Command("quality.variations"))
	route("POST", "/quality/post-process", api.Command("quality.post-process"))

	loraID := api.Path("id", "lora_id", api.StringParam)
	route("POST", "/loras", api.Command("lora.create"))
	route("GET", "/loras", api.Command("lora.list",
		api.Query("status", "status", api.StringParam),
		api.Query("base_model", "base_model", api.StringParam),
		api.Query("active_only", "active_only", api.BoolParam),
	))
	route("GET", "/loras/:id", api.Command("lora.status", loraID))
	route("POST", "/loras/:id/images", api.Command("lora.upload-images", loraID))
	route("POST", "/loras/:id/train", api.Command("lora.train", loraID))
	route("POST", "/loras/:id/activate", api.Command("lora.activate", loraID))
	route("DELETE", "/loras/:id", api.Command("lora.delete", loraID,
		api.Query("force", "force", api.BoolParam),
	))

	page := []api.Param{
		api.Query("limit", "limit", api.IntParam),
		api.Query("offset", "offset", api.IntParam),
	}
	historyID := api.Path("job_id", "job_id", api.StringParam)
	route("GET", "/history", api.Command("history.list", page...))
	route("GET", "/history/stats", api.Command("history.stats"))
	route("DELETE", "/history", api.Command("history.clear"))
	route("GET", "/history/:job_id", api.Command("history.get", historyID))
	route("DELETE", "/history/:job_id", api.Command("history.delete", historyID))

	route("POST", "/favorites", api.Command("favorites.add"))
	route("GET", "/favorites", api.Command("favorites.list", page...))
	route("DELETE", "/favorites/:job_id/:image_index", api.Command("favorites.remove",
		api.Path("job_id", "job_id", api.StringParam),
		api.Path("image_index", "image_index", api.IntParam),
	))

	route("GET", "/commands", api.ListCommands)
	route("POST", "/commands/:name", api.ExecuteCommand)
}

func handlerWrapper(app *app.App, f func(c *gin.Context)) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set("app", app)
		f(ctx)
	}
}
