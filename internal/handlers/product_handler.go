package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ProductHandler serves the catalog and the admin product editor.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
}

func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{service: service, validate: validator.New()}
}

// RegisterRoutes registers product routes. auth guards the admin endpoints.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	router.Get("/product/:id", h.HandleGetProductByID)
	router.Get("/api/products", h.HandleGetProducts)
	router.Get("/api/products/:id", h.HandleGetProductByID)
	router.Post("/api/products", auth, adminOnly, h.HandleCreateProduct)
	router.Put("/api/products/:id", auth, adminOnly, h.HandleUpdateProduct)
	router.Delete("/api/products/:id", auth, adminOnly, h.HandleDeleteProduct)
}

func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts(c.UserContext())
	if err != nil {
		return writeError(c, err, "Could not retrieve products")
	}
	return c.JSON(products)
}

func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.service.GetProductByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err, "Could not retrieve product")
	}
	return c.JSON(product)
}

func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var product models.Product
	if ok, err := bind(c, h.validate, &product); !ok {
		return err
	}
	product.ID = ""
	if err := h.service.CreateProduct(c.UserContext(), &product); err != nil {
		return writeError(c, err, "Could not create product")
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct replaces the product and its variants. Quantities in the
// body are the new stock levels.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var product models.Product
	if ok, err := bind(c, h.validate, &product); !ok {
		return err
	}
	product.ID = c.Params("id")
	if err := h.service.UpdateProduct(c.UserContext(), &product); err != nil {
		return writeError(c, err, "Could not update product")
	}
	updated, err := h.service.GetProductByID(c.UserContext(), product.ID)
	if err != nil {
		return writeError(c, err, "Could not retrieve product")
	}
	return c.JSON(updated)
}

func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	if err := h.service.DeleteProduct(c.UserContext(), c.Params("id")); err != nil {
		return writeError(c, err, "Could not delete product")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
