package handlers

import (
	"time"

	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// VoucherHandler exposes voucher lookup to shoppers and management to admins.
type VoucherHandler struct {
	service  *services.VoucherService
	validate *validator.Validate
}

func NewVoucherHandler(service *services.VoucherService) *VoucherHandler {
	return &VoucherHandler{service: service, validate: validator.New()}
}

func (h *VoucherHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	router.Post("/voucher/apply", auth, h.HandleApply)
	router.Get("/api/vouchers", auth, adminOnly, h.HandleList)
	router.Post("/api/vouchers", auth, adminOnly, h.HandleCreate)
	router.Put("/api/vouchers/:id", auth, adminOnly, h.HandleUpdate)
}

// ApplyVoucherRequest previews a voucher against a cart subtotal.
type ApplyVoucherRequest struct {
	Code     string `json:"code"`
	Subtotal int64  `json:"subtotal" validate:"gte=0"`
}

// HandleApply resolves a code without redeeming it.
func (h *VoucherHandler) HandleApply(c *fiber.Ctx) error {
	var req ApplyVoucherRequest
	if ok, err := bind(c, h.validate, &req); !ok {
		return err
	}
	res, total, err := h.service.Apply(c.UserContext(), req.Code, req.Subtotal)
	if err != nil {
		return writeError(c, err, "Could not apply voucher")
	}
	return c.JSON(fiber.Map{
		"message":            "Voucher applied",
		"code":               res.Code,
		"discountAmount":     res.DiscountAmount,
		"discountPercentage": res.DiscountPercentage,
		"description":        res.Description,
		"subtotal":           req.Subtotal,
		"total":              total,
	})
}

// CreateVoucherRequest is the admin voucher form. IsActive defaults to true.
type CreateVoucherRequest struct {
	Code               string    `json:"code" validate:"required,min=2,max=64"`
	DiscountAmount     int64     `json:"discountAmount" validate:"gte=0"`
	DiscountPercentage int       `json:"discountPercentage" validate:"gte=0,lte=100"`
	Description        string    `json:"description" validate:"max=500"`
	ExpirationDate     time.Time `json:"expirationDate"`
	Quantity           int       `json:"quantity" validate:"gte=0"`
	IsActive           *bool     `json:"isActive"`
}

func (h *VoucherHandler) HandleCreate(c *fiber.Ctx) error {
	var req CreateVoucherRequest
	if ok, err := bind(c, h.validate, &req); !ok {
		return err
	}
	if req.ExpirationDate.IsZero() {
		return expirationRequired(c)
	}

	v := &models.Voucher{
		Code:               req.Code,
		DiscountAmount:     req.DiscountAmount,
		DiscountPercentage: req.DiscountPercentage,
		Description:        req.Description,
		ExpirationDate:     req.ExpirationDate,
		Quantity:           req.Quantity,
		IsActive:           req.IsActive == nil || *req.IsActive,
	}
	if err := h.service.CreateVoucher(c.UserContext(), v); err != nil {
		return writeError(c, err, "Could not create voucher")
	}
	return c.Status(fiber.StatusCreated).JSON(v)
}

// UpdateVoucherRequest replaces a voucher's terms. The code cannot change.
type UpdateVoucherRequest struct {
	DiscountAmount     int64     `json:"discountAmount" validate:"gte=0"`
	DiscountPercentage int       `json:"discountPercentage" validate:"gte=0,lte=100"`
	Description        string    `json:"description" validate:"max=500"`
	ExpirationDate     time.Time `json:"expirationDate"`
	Quantity           int       `json:"quantity" validate:"gte=0"`
	IsActive           *bool     `json:"isActive"`
}

// HandleUpdate deactivates, extends or refills a voucher.
func (h *VoucherHandler) HandleUpdate(c *fiber.Ctx) error {
	var req UpdateVoucherRequest
	if ok, err := bind(c, h.validate, &req); !ok {
		return err
	}
	if req.ExpirationDate.IsZero() {
		return expirationRequired(c)
	}

	v, err := h.service.UpdateVoucher(c.UserContext(), &models.Voucher{
		ID:                 c.Params("id"),
		DiscountAmount:     req.DiscountAmount,
		DiscountPercentage: req.DiscountPercentage,
		Description:        req.Description,
		ExpirationDate:     req.ExpirationDate,
		Quantity:           req.Quantity,
		IsActive:           req.IsActive == nil || *req.IsActive,
	})
	if err != nil {
		return writeError(c, err, "Could not update voucher")
	}
	return c.JSON(v)
}

func expirationRequired(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  fiber.Map{"ExpirationDate": "Field 'ExpirationDate' failed on the 'required' tag"},
	})
}

func (h *VoucherHandler) HandleList(c *fiber.Ctx) error {
	vouchers, err := h.service.ListVouchers(c.UserContext())
	if err != nil {
		return writeError(c, err, "Could not retrieve vouchers")
	}
	return c.JSON(vouchers)
}
