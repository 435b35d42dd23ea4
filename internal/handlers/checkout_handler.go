package handlers

import (
	"net/url"

	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CheckoutHandler places orders and receives payment provider callbacks.
type CheckoutHandler struct {
	service  *services.CheckoutService
	validate *validator.Validate
}

func NewCheckoutHandler(service *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{service: service, validate: validator.New()}
}

func (h *CheckoutHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	customerOnly := middleware.RequireRole(models.RoleCustomer)

	router.Post("/order/confirm", auth, customerOnly, h.HandleConfirmCOD)
	router.Post("/create-payment", auth, customerOnly, h.HandleCreatePayment)
	router.Get("/order/confirmvnpay", h.HandleVNPayReturn)
}

// HandleConfirmCOD places a cash on delivery order.
func (h *CheckoutHandler) HandleConfirmCOD(c *fiber.Ctx) error {
	var req services.CheckoutRequest
	if ok, err := bind(c, h.validate, &req); !ok {
		return err
	}
	if req.PaymentMethod == models.PaymentMethodVNPay {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request",
			"error":   "online payments are placed through /create-payment",
		})
	}
	return h.place(c, req)
}

// HandleCreatePayment places an order paid online and returns the provider URL.
func (h *CheckoutHandler) HandleCreatePayment(c *fiber.Ctx) error {
	var req services.CheckoutRequest
	if ok, err := bind(c, h.validate, &req); !ok {
		return err
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = models.PaymentMethodVNPay
	}
	if req.PaymentMethod != models.PaymentMethodVNPay {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request",
			"error":   "cash on delivery orders are placed through /order/confirm",
		})
	}
	return h.place(c, req)
}

func (h *CheckoutHandler) place(c *fiber.Ctx, req services.CheckoutRequest) error {
	actor := middleware.CurrentActor(c)
	res, err := h.service.PlaceOrder(c.UserContext(), actor.ID, req, c.IP())
	if err != nil {
		return writeError(c, err, "Could not place order")
	}
	body := fiber.Map{
		"message": "Order placed",
		"order":   res.Order,
	}
	if res.PaymentURL != "" {
		body["paymentUrl"] = res.PaymentURL
	}
	return c.Status(fiber.StatusCreated).JSON(body)
}

// HandleVNPayReturn is where the provider sends the customer back. The query
// is signed, so no session is required.
func (h *CheckoutHandler) HandleVNPayReturn(c *fiber.Ctx) error {
	query := url.Values{}
	c.Context().QueryArgs().VisitAll(func(k, v []byte) {
		query.Add(string(k), string(v))
	})

	order, res, err := h.service.HandleVNPayReturn(c.UserContext(), query)
	if err != nil {
		return writeError(c, err, "Could not verify payment")
	}
	message := "Payment successful"
	if !res.Success() {
		message = "Payment was not completed"
	}
	return c.JSON(fiber.Map{
		"message":      message,
		"success":      res.Success(),
		"responseCode": res.ResponseCode,
		"order":        order,
	})
}
