package pos

import (
	"errors"
	"net/http"

	"github.com/noah-isme/stationery-pos/internal/cart"
	"github.com/noah-isme/stationery-pos/internal/common"
	"github.com/noah-isme/stationery-pos/internal/lock"
)

var (
	ErrSessionNotFound   = errors.New("pos: session not found")
	ErrProductNotFound   = errors.New("pos: product not found")
	ErrStudentNotFound   = errors.New("pos: student not found")
	ErrCustomerRequired  = errors.New("pos: customer required")
	ErrEmptyCart         = errors.New("pos: cart is empty")
	ErrGSTNumberRequired = errors.New("pos: gst number required")
	ErrGSTNotVerified    = errors.New("pos: gst number not verified")
	ErrInvoicePaid       = errors.New("pos: paid invoices cannot be edited")
)

// toAppError maps service errors onto API errors. It returns nil for errors
// that belong to the backend client.
func toAppError(err error) *common.AppError {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var stockErr *cart.StockError
	switch {
	case errors.As(err, &stockErr):
		return common.NewAppError("INSUFFICIENT_STOCK", "insufficient stock", http.StatusConflict, err).
			WithDetails(map[string]any{"productId": stockErr.ProductID, "requested": stockErr.Requested, "available": stockErr.Available})
	case errors.Is(err, ErrSessionNotFound):
		return common.NewAppError("SESSION_NOT_FOUND", "pos session not found", http.StatusNotFound, err)
	case errors.Is(err, ErrProductNotFound):
		return common.NewAppError("PRODUCT_NOT_FOUND", "product not found or inactive", http.StatusNotFound, err)
	case errors.Is(err, ErrStudentNotFound):
		return common.NewAppError("STUDENT_NOT_FOUND", "student not found", http.StatusNotFound, err)
	case errors.Is(err, cart.ErrItemNotFound):
		return common.NewAppError("ITEM_NOT_FOUND", "product is not in the cart", http.StatusNotFound, err)
	case errors.Is(err, cart.ErrInvalidProduct):
		return common.NewAppError("INVALID_PRODUCT", "product cannot be sold", http.StatusUnprocessableEntity, err)
	case errors.Is(err, ErrCustomerRequired):
		return common.NewAppError("CUSTOMER_REQUIRED", "select a student or enter the customer name", http.StatusUnprocessableEntity, err)
	case errors.Is(err, ErrEmptyCart):
		return common.NewAppError("EMPTY_CART", "add at least one item", http.StatusUnprocessableEntity, err)
	case errors.Is(err, ErrGSTNumberRequired):
		return common.NewAppError("GST_NUMBER_REQUIRED", "enter the GST number", http.StatusUnprocessableEntity, err)
	case errors.Is(err, ErrGSTNotVerified):
		return common.NewAppError("GST_NOT_VERIFIED", "GST number could not be verified", http.StatusUnprocessableEntity, err)
	case errors.Is(err, ErrInvoicePaid):
		return common.NewAppError("INVOICE_PAID", "paid invoices cannot be edited", http.StatusConflict, err)
	case errors.Is(err, lock.ErrBusy):
		return common.NewAppError("SESSION_BUSY", "another change to this session is in progress", http.StatusConflict, err)
	}
	return nil
}
