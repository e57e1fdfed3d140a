package domain

var (
	ErrInvalidID          = &Error{Code: EINVALID, Message: "Invalid ID format"}
	ErrProductNotFound    = &Error{Code: ENOTFOUND, Message: "Product not found"}
	ErrCategoryNotFound   = &Error{Code: ENOTFOUND, Message: "Category not found"}
	ErrCartNotFound       = &Error{Code: ENOTFOUND, Message: "Cart not found"}
	ErrCartItemNotFound   = &Error{Code: ENOTFOUND, Message: "Item not found in cart"}
	ErrOrderNotFound      = &Error{Code: ENOTFOUND, Message: "Order not found"}
	ErrCheckoutNotFound   = &Error{Code: ENOTFOUND, Message: "Checkout attempt not found"}
	ErrEmptyCart          = &Error{Code: EINVALID, Message: "Cart is empty"}
	ErrInvalidTotal       = &Error{Code: EINVALID, Message: "Invalid cart total"}
	ErrSignatureMismatch  = &Error{Code: EINVALID, Message: "Invalid payment signature"}
	ErrGateway            = &Error{Code: EPAYMENT, Message: "Failed to create payment order"}
	ErrPaymentProcessed   = &Error{Code: ECONFLICT, Message: "Payment already processed"}
	ErrCategoryExists     = &Error{Code: ECONFLICT, Message: "Category already exists"}
	ErrCategoryInUse      = &Error{Code: ECONFLICT, Message: "Category still has products"}
	ErrUnauthorized       = &Error{Code: EUNAUTHORIZED, Message: "Unauthorized"}
	ErrStorageUnavailable = &Error{Code: EINTERNAL, Message: "Image storage is not configured"}
)

// InvalidInput reports a missing or malformed request field.
func InvalidInput(op, format string, args ...any) error {
	return Errorf(EINVALID, op, format, args...)
}

// InsufficientStock reports that a request exceeds the live stock of a product.
func InsufficientStock(op string, available int) error {
	return Errorf(EINVALID, op, "Only %d items available in stock", available)
}

// StockExceeded reports that merging into an existing cart line would exceed stock.
func StockExceeded(op string, available int) error {
	return Errorf(EINVALID, op, "Cannot add more than %d items to cart", available)
}
