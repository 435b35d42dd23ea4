package handlers

import (
	"errors"
	"fmt"
	"strings"

	"storefront/internal/logging"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type errorClass struct {
	status  int
	message string
	errs    []error
}

// errorClasses are matched in order with errors.Is. ErrStockRaceLost is
// covered by ErrInsufficientStock.
var errorClasses = []errorClass{
	{fiber.StatusBadRequest, "Invalid request", []error{
		services.ErrMissingCustomerDetails,
		services.ErrMissingPaymentMethod,
		services.ErrUnsupportedPaymentMethod,
		services.ErrEmptyCart,
		services.ErrInvalidCartItem,
		services.ErrVoucherCodeRequired,
		services.ErrCancelReasonRequired,
		services.ErrUnknownStatus,
		services.ErrDuplicateVariant,
		services.ErrInvalidRole,
	}},
	{fiber.StatusBadRequest, "Payment verification failed", []error{
		services.ErrInvalidSignature,
		services.ErrMalformedPayment,
		services.ErrPaymentAmountMismatch,
	}},
	{fiber.StatusNotFound, "Not found", []error{
		services.ErrProductNotFound,
		services.ErrVariantNotFound,
		services.ErrSubVariantNotFound,
		services.ErrVoucherNotFound,
		services.ErrOrderNotFound,
	}},
	{fiber.StatusConflict, "Insufficient stock", []error{
		services.ErrInsufficientStock,
	}},
	{fiber.StatusConflict, "Voucher cannot be used", []error{
		services.ErrVoucherExpired,
		services.ErrVoucherExhausted,
		services.ErrVoucherInactive,
	}},
	{fiber.StatusConflict, "Conflict", []error{
		services.ErrVoucherExists,
		services.ErrUserExists,
		services.ErrStatusConflict,
		services.ErrInvalidTransition,
		services.ErrPaymentNotExpected,
		services.ErrPaymentPending,
	}},
	{fiber.StatusForbidden, "Forbidden", []error{
		services.ErrTransitionForbidden,
		services.ErrNotOrderOwner,
		services.ErrNotAssignedShipper,
	}},
	{fiber.StatusUnauthorized, "Authentication failed", []error{
		services.ErrInvalidCredentials,
	}},
}

// writeError maps a service error to its HTTP status and the standard body.
func writeError(c *fiber.Ctx, err error, fallback string) error {
	for _, class := range errorClasses {
		for _, target := range class.errs {
			if errors.Is(err, target) {
				logging.FromContext(c.UserContext()).Info("request rejected", "status", class.status, "error", err)
				return c.Status(class.status).JSON(fiber.Map{
					"message": class.message,
					"error":   err.Error(),
				})
			}
		}
	}
	logging.FromContext(c.UserContext()).Error(fallback, "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": fallback,
		"error":   err.Error(),
	})
}

// bind parses the body into dst and runs struct validation on it. It writes
// the 400 response itself and reports false when the request was rejected.
func bind(c *fiber.Ctx, v *validator.Validate, dst interface{}) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := v.Struct(dst); err != nil {
		return false, validationFailed(c, err)
	}
	return true, nil
}

func validationFailed(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}
	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		errorMessages[fieldPath(e)] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}

// fieldPath drops the root struct name, so nested fields read "Variants[0].Color".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}
