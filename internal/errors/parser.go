package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo is the code/message pair sent to clients.
type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError converts an error into a client-safe code and message.
// Store details are hidden; the message says what the caller can do.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Code:    InternalServerError,
			Message: "An unexpected error occurred",
		}
	}

	errStr := err.Error()
	errStrLower := strings.ToLower(errStr)

	// 1. Domain errors
	if errors.Is(err, ErrValidation) {
		return parseValidationError(errStr)
	}
	if errors.Is(err, ErrUnknownEntity) {
		return ErrorInfo{Code: MenuItemNotFound, Message: getNotFoundMessage(context)}
	}

	// 2. GORM errors
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: getNotFoundMessage(context),
		}
	}

	// 3. Constraint violations
	if IsConflict(err) {
		return ErrorInfo{
			Code:    ResourceConflict,
			Message: "The data changed while saving. Please try again",
		}
	}
	if strings.Contains(errStrLower, "foreign key constraint") {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: "A referenced record does not exist",
		}
	}
	if strings.Contains(errStrLower, "check constraint") {
		if strings.Contains(errStrLower, "rating") {
			return ErrorInfo{Code: RatingInvalidValue, Message: "Rating must be between 1 and 5"}
		}
		return ErrorInfo{Code: ValidationInvalidInput, Message: "Invalid input"}
	}

	// 4. Network / connection errors
	if strings.Contains(errStrLower, "connection refused") ||
		strings.Contains(errStrLower, "no such host") ||
		strings.Contains(errStrLower, "timeout") {
		return ErrorInfo{
			Code:    InternalDatabaseError,
			Message: "A backing service is unavailable. Please try again shortly",
		}
	}

	return ErrorInfo{
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(context),
	}
}

func parseValidationError(errStr string) ErrorInfo {
	lower := strings.ToLower(errStr)
	switch {
	case strings.Contains(lower, "session"):
		return ErrorInfo{Code: RatingNoSession, Message: "Session id is required"}
	case strings.Contains(lower, "rating"):
		return ErrorInfo{Code: RatingInvalidValue, Message: "Rating must be between 1 and 5"}
	case strings.Contains(lower, "date"):
		return ErrorInfo{Code: MenuInvalidDate, Message: "Date must be formatted as MM/DD/YY"}
	case strings.Contains(lower, "required"):
		return ErrorInfo{Code: ValidationRequired, Message: "A required field is missing"}
	}
	return ErrorInfo{Code: ValidationInvalidInput, Message: "Invalid input"}
}

func getNotFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	if strings.Contains(contextLower, "rating") || strings.Contains(contextLower, "item") {
		return "That menu item could not be found"
	}
	if strings.Contains(contextLower, "menu") {
		return "No menu found for the selected date, campus, and meal"
	}
	if strings.Contains(contextLower, "campus") {
		return "Campus not found"
	}
	if strings.Contains(contextLower, "meal") {
		return "Meal not found"
	}

	return "The requested data could not be found"
}

func getDefaultErrorMessage(context string) string {
	contextLower := strings.ToLower(context)

	if strings.Contains(contextLower, "ingest") || strings.Contains(contextLower, "fetch") {
		return "Menu import failed. Please try again later"
	}
	if strings.Contains(contextLower, "rating") {
		return "Failed to submit rating. Please try again"
	}
	if strings.Contains(contextLower, "menu") {
		return "Failed to load menu. Please try again"
	}

	return "An unexpected error occurred. Please try again later"
}

// ParseAndRespond parses err and writes the JSON error body.
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, context string) {
	errorInfo := ParseError(err, context)
	c.JSON(statusCode, ErrorResponse{
		Error:   errorInfo.Code,
		Message: errorInfo.Message,
	})
}
