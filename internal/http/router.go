package http

import (
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/http/controller"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/http/middleware"
	"github.com/gin-gonic/gin"
)

// Controllers groups the handlers mounted by InitRouter.
type Controllers struct {
	Base     *controller.Controller
	Ingest   *controller.IngestController
	Products *controller.ProductController
	Webhooks *controller.WebhookController
}

func InitRouter(server *gin.Engine, ctrs Controllers) *gin.Engine {
	// Apply recovery middleware globally to prevent panics from crashing the server
	server.Use(middleware.Recovery())
	server.Use(middleware.CORS())
	server.Use(middleware.Logger())

	server.GET("/ping", ctrs.Base.Ping)

	server.POST("/upload-csv", ctrs.Ingest.UploadCSV)
	server.GET("/task-status/:job_id", ctrs.Ingest.TaskStatus)
	server.POST("/task-status/:job_id/cancel", ctrs.Ingest.CancelTask)

	// Product endpoints
	products := server.Group("/products")
	{
		products.POST("/bulk-delete", ctrs.Products.BulkDelete)
		products.POST("/bulk-delete-selected", ctrs.Products.BulkDeleteSelected)
	}

	// Webhook endpoints
	webhooks := server.Group("/webhooks")
	{
		webhooks.POST("", ctrs.Webhooks.Create)
		webhooks.GET("", ctrs.Webhooks.List)
		webhooks.POST("/:id/test", ctrs.Webhooks.Test)
	}

	return server
}
