package controller

import (
	"context"
	"net/http"

	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProductDeleter removes catalog products.
type ProductDeleter interface {
	DeleteAll(ctx context.Context) (int64, error)
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
}

// ProductController handles HTTP requests for catalog maintenance.
type ProductController struct {
	products ProductDeleter
}

// NewProductController creates a new ProductController.
func NewProductController(products ProductDeleter) *ProductController {
	return &ProductController{
		products: products,
	}
}

// BulkDeleteSelectedRequest represents the request body for deleting selected products.
type BulkDeleteSelectedRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// BulkDelete handles the HTTP POST request that deletes every product.
func (pc *ProductController) BulkDelete(c *gin.Context) {
	deleted, err := pc.products.DeleteAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete products"})
		return
	}
	metrics.ProductsDeleted.Add(float64(deleted))

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "All products deleted.", "deleted": deleted})
}

// BulkDeleteSelected handles the HTTP POST request that deletes the products with the given ids.
func (pc *ProductController) BulkDeleteSelected(c *gin.Context) {
	var req BulkDeleteSelectedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid ids"})
		return
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid ids"})
			return
		}
		ids = append(ids, id)
	}

	deleted, err := pc.products.DeleteByIDs(c.Request.Context(), ids)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete products"})
		return
	}
	metrics.ProductsDeleted.Add(float64(deleted))

	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": deleted})
}
