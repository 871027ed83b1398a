package controller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/whatthedob/whatthedob-backend/internal/app/service"
	apperrors "github.com/whatthedob/whatthedob-backend/internal/errors"
	"github.com/whatthedob/whatthedob-backend/internal/middleware"
)

type MenuController struct {
	menuService   service.MenuService
	ratingService service.RatingService
}

func NewMenuController(menuService service.MenuService, ratingService service.RatingService) *MenuController {
	return &MenuController{
		menuService:   menuService,
		ratingService: ratingService,
	}
}

type SubmitRatingRequest struct {
	Item   string `json:"item" binding:"required"`
	Rating int    `json:"rating"`
}

// GetCampuses lists enabled campuses
// GET /api/v1/campuses
func (ctrl *MenuController) GetCampuses(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	campuses, err := ctrl.menuService.GetCampuses(c.Request.Context())
	if err != nil {
		log.Error("Failed to fetch campuses", err, nil)
		apperrors.RespondWithDomainError(c, err, "campus")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"campuses": campuses,
		"count":    len(campuses),
	})
}

// GetMeals lists enabled meals
// GET /api/v1/meals
func (ctrl *MenuController) GetMeals(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	meals, err := ctrl.menuService.GetMeals(c.Request.Context())
	if err != nil {
		log.Error("Failed to fetch meals", err, nil)
		apperrors.RespondWithDomainError(c, err, "meal")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"meals": meals,
		"count": len(meals),
	})
}

// GetMenu returns one menu with its rated items
// GET /api/v1/menus?date=MM/DD/YY&campus_id=46&meal_id=2
func (ctrl *MenuController) GetMenu(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	date := strings.TrimSpace(c.Query("date"))
	if err := service.ValidateDate(date); err != nil {
		log.Warn("Invalid menu date", map[string]interface{}{
			"date": date,
		})
		apperrors.BadRequest(c, apperrors.MenuInvalidDate, "Date must be formatted as MM/DD/YY")
		return
	}

	campusID, err := parseID(c.Query("campus_id"))
	if err != nil {
		log.Warn("Invalid campus ID format", map[string]interface{}{
			"campus_id": c.Query("campus_id"),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "campus_id must be a positive integer")
		return
	}

	mealID, err := parseID(c.Query("meal_id"))
	if err != nil {
		log.Warn("Invalid meal ID format", map[string]interface{}{
			"meal_id": c.Query("meal_id"),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "meal_id must be a positive integer")
		return
	}

	menu, err := ctrl.menuService.GetMenu(c.Request.Context(), date, campusID, mealID)
	if err != nil {
		log.Error("Failed to fetch menu", err, map[string]interface{}{
			"date":      date,
			"campus_id": campusID,
			"meal_id":   mealID,
		})
		apperrors.RespondWithDomainError(c, err, "menu")
		return
	}
	if menu == nil {
		apperrors.NotFound(c, apperrors.MenuNotFound, "No menu found for the selected date, campus, and meal")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"menu": menu,
	})
}

// SubmitRating records the session's rating of an item
// POST /api/v1/ratings
func (ctrl *MenuController) SubmitRating(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		apperrors.BadRequest(c, apperrors.RatingNoSession, "Session id is required")
		return
	}

	var req SubmitRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid rating request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	bucket, err := ctrl.ratingService.SubmitRating(c.Request.Context(), sessionID, req.Item, req.Rating)
	if err != nil {
		if !apperrors.IsValidation(err) && !apperrors.IsUnknownEntity(err) {
			log.Error("Failed to submit rating", err, map[string]interface{}{
				"item": req.Item,
			})
		}
		apperrors.RespondWithDomainError(c, err, "rating")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"item":           bucket.Value,
		"rating":         req.Rating,
		"total_rating":   bucket.TotalRating,
		"rating_count":   bucket.RatingCount,
		"average_rating": bucket.Average(),
	})
}

// GetItemRating returns the aggregate for an item and the caller's own rating
// GET /api/v1/ratings?item=Pasta
func (ctrl *MenuController) GetItemRating(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	item := c.Query("item")

	bucket, err := ctrl.ratingService.GetItemRating(c.Request.Context(), item)
	if err != nil {
		if !apperrors.IsValidation(err) {
			log.Error("Failed to fetch item rating", err, map[string]interface{}{
				"item": item,
			})
		}
		apperrors.RespondWithDomainError(c, err, "rating")
		return
	}
	if bucket == nil {
		apperrors.NotFound(c, apperrors.MenuItemNotFound, "That menu item could not be found")
		return
	}

	response := gin.H{
		"item":           bucket.Value,
		"total_rating":   bucket.TotalRating,
		"rating_count":   bucket.RatingCount,
		"average_rating": bucket.Average(),
	}

	if sessionID, ok := middleware.GetSessionID(c); ok {
		own, err := ctrl.ratingService.GetUserRating(c.Request.Context(), sessionID, item)
		if err != nil {
			log.Error("Failed to fetch session rating", err, map[string]interface{}{
				"item": item,
			})
			apperrors.RespondWithDomainError(c, err, "rating")
			return
		}
		if own != nil {
			response["your_rating"] = own.RatingValue
		}
	}

	c.JSON(http.StatusOK, response)
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, strconv.ErrRange
	}
	return uint(id), nil
}
