package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for orders from all three roles.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the customer, admin and shipper order routes.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	customerOnly := middleware.RequireRole(models.RoleCustomer)
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	shipperOnly := middleware.RequireRole(models.RoleShipper)

	router.Get("/orders", auth, customerOnly, h.HandleGetMyOrders)
	router.Get("/orders/:id", auth, customerOnly, h.HandleGetOrderByID)
	router.Put("/orders/:id/cancel", auth, customerOnly, h.HandleCancelOrder)
	router.Put("/orders/:id/confirm-receive", auth, customerOnly, h.HandleConfirmReceive)

	router.Get("/api/orders", auth, adminOnly, h.HandleGetAllOrders)
	router.Get("/api/orders/:id", auth, adminOnly, h.HandleGetOrderByID)
	router.Put("/api/orders/:id/confirm", auth, adminOnly, h.HandleConfirmOrder)
	router.Put("/api/orders/:id/cancel", auth, adminOnly, h.HandleCancelOrder)

	router.Get("/orders-list", auth, shipperOnly, h.HandleGetShipperOrders)
	router.Put("/orders-list/:id", auth, shipperOnly, h.HandleShipperUpdate)
}

// CancelOrderRequest carries the mandatory cancel reason.
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// ShipperUpdateRequest is the status a shipper moves an order to.
type ShipperUpdateRequest struct {
	Status models.OrderStatus `json:"status" validate:"required"`
}

// HandleGetMyOrders lists the caller's own orders.
func (h *OrderHandler) HandleGetMyOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListForCustomer(c.UserContext(), middleware.CurrentActor(c).ID)
	if err != nil {
		return writeError(c, err, "Could not retrieve orders")
	}
	return c.JSON(orders)
}

// HandleGetAllOrders lists every order, optionally filtered by ?status=.
func (h *OrderHandler) HandleGetAllOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListAll(c.UserContext(), models.OrderStatus(c.Query("status")))
	if err != nil {
		return writeError(c, err, "Could not retrieve orders")
	}
	return c.JSON(orders)
}

// HandleGetShipperOrders lists orders ready for pickup and the shipper's own deliveries.
func (h *OrderHandler) HandleGetShipperOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListForShipper(c.UserContext(), middleware.CurrentActor(c).ID)
	if err != nil {
		return writeError(c, err, "Could not retrieve orders")
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order visible to the caller.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.GetOrder(c.UserContext(), middleware.CurrentActor(c), c.Params("id"))
	if err != nil {
		return writeError(c, err, "Could not retrieve order")
	}
	return c.JSON(order)
}

// HandleCancelOrder cancels a pending order for its owner or an admin.
func (h *OrderHandler) HandleCancelOrder(c *fiber.Ctx) error {
	var req CancelOrderRequest
	if ok, err := bind(c, h.validate, &req); !ok {
		return err
	}
	order, err := h.service.Cancel(c.UserContext(), middleware.CurrentActor(c), c.Params("id"), req.Reason)
	if err != nil {
		return writeError(c, err, "Could not cancel order")
	}
	return c.JSON(fiber.Map{"message": "Order cancelled", "order": order})
}

// HandleConfirmOrder accepts a pending order and hands it to packaging.
func (h *OrderHandler) HandleConfirmOrder(c *fiber.Ctx) error {
	order, err := h.service.Confirm(c.UserContext(), middleware.CurrentActor(c), c.Params("id"))
	if err != nil {
		return writeError(c, err, "Could not confirm order")
	}
	return c.JSON(fiber.Map{"message": "Order confirmed", "order": order})
}

// HandleConfirmReceive records that the customer received the order.
func (h *OrderHandler) HandleConfirmReceive(c *fiber.Ctx) error {
	order, err := h.service.ConfirmReceipt(c.UserContext(), middleware.CurrentActor(c), c.Params("id"))
	if err != nil {
		return writeError(c, err, "Could not confirm receipt")
	}
	return c.JSON(fiber.Map{"message": "Order received", "order": order})
}

// HandleShipperUpdate claims, delivers or fails an order.
func (h *OrderHandler) HandleShipperUpdate(c *fiber.Ctx) error {
	var req ShipperUpdateRequest
	if ok, err := bind(c, h.validate, &req); !ok {
		return err
	}
	order, err := h.service.ShipperUpdate(c.UserContext(), middleware.CurrentActor(c), c.Params("id"), req.Status)
	if err != nil {
		return writeError(c, err, "Could not update order status")
	}
	return c.JSON(fiber.Map{"message": "Order status updated", "order": order})
}
