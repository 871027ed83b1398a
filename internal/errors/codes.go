package errors

// Error codes returned in the "error" field of JSON error bodies.
// Format: CATEGORY_SPECIFIC_DETAIL. The front end maps codes to copy.

const (
	// ==================== Auth (AUTH_) ====================
	AuthUnauthorized = "AUTH_UNAUTHORIZED"
	AuthTokenExpired = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid = "AUTH_TOKEN_INVALID"

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden    = "AUTHZ_FORBIDDEN"
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND"

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID     = "VALIDATION_INVALID_ID"
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT"
	ValidationInvalidRange  = "VALIDATION_INVALID_RANGE"
	ValidationRequired      = "VALIDATION_REQUIRED"

	// ==================== Resources (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// ==================== Menus (MENU_) ====================
	MenuNotFound     = "MENU_NOT_FOUND"
	MenuIngestFailed = "MENU_INGEST_FAILED"
	MenuFetchFailed  = "MENU_FETCH_FAILED"
	MenuInvalidDate  = "MENU_INVALID_DATE"
	MenuItemNotFound = "MENU_ITEM_NOT_FOUND"

	// ==================== Ratings (RATING_) ====================
	RatingInvalidValue = "RATING_INVALID_VALUE"
	RatingNoSession    = "RATING_NO_SESSION"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"
)
