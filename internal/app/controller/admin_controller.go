package controller

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/whatthedob/whatthedob-backend/internal/app/model"
	"github.com/whatthedob/whatthedob-backend/internal/app/service"
	apperrors "github.com/whatthedob/whatthedob-backend/internal/errors"
	"github.com/whatthedob/whatthedob-backend/internal/middleware"
)

// AdminController exposes operator actions for menu ingestion.
type AdminController struct {
	menuService  service.MenuService
	fetchService service.MenuFetchService
}

func NewAdminController(menuService service.MenuService, fetchService service.MenuFetchService) *AdminController {
	return &AdminController{
		menuService:  menuService,
		fetchService: fetchService,
	}
}

type IngestMenusRequest struct {
	Snapshots []model.MenuSnapshot `json:"snapshots" binding:"required,min=1,dive"`
}

type UpsertFiltersRequest struct {
	Campuses map[uint]string `json:"campuses"`
	Meals    []string        `json:"meals"`
}

// FetchMenus scrapes the upstream site now. Without a date it fetches
// the configured number of upcoming days.
// POST /api/v1/admin/menus/fetch?date=MM/DD/YY
func (ctrl *AdminController) FetchMenus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	subject, _ := middleware.GetSubject(c)

	var (
		report *service.FetchReport
		err    error
	)
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		date, parseErr := time.ParseInLocation(model.DateLayout, raw, time.Local)
		if parseErr != nil {
			apperrors.BadRequest(c, apperrors.MenuInvalidDate, "Date must be formatted as MM/DD/YY")
			return
		}
		report, err = ctrl.fetchService.FetchMenus(c.Request.Context(), date)
	} else {
		report, err = ctrl.fetchService.FetchUpcoming(c.Request.Context())
	}
	if err != nil {
		log.Error("Manual menu fetch failed", err, map[string]interface{}{
			"subject": subject,
		})
		apperrors.RespondWithError(c, http.StatusBadGateway, apperrors.MenuFetchFailed, "Menu import failed. Please try again later")
		return
	}

	log.Info("Manual menu fetch finished", map[string]interface{}{
		"subject": subject,
		"dates":   report.Dates,
		"fetched": report.Fetched,
		"failed":  report.Failed,
	})

	c.JSON(http.StatusOK, gin.H{
		"report": report,
	})
}

// IngestMenus stores snapshots posted by an operator or external scraper
// POST /api/v1/admin/menus/ingest
func (ctrl *AdminController) IngestMenus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req IngestMenusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid ingest request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	for _, snapshot := range req.Snapshots {
		if err := service.ValidateDate(snapshot.Date); err != nil {
			apperrors.BadRequest(c, apperrors.MenuInvalidDate, "Date must be formatted as MM/DD/YY")
			return
		}
	}

	result, err := ctrl.menuService.Ingest(c.Request.Context(), req.Snapshots)
	if err != nil {
		if !apperrors.IsValidation(err) {
			log.Error("Menu ingest failed", err, map[string]interface{}{
				"snapshots": len(req.Snapshots),
			})
		}
		apperrors.RespondWithDomainError(c, err, "ingest")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"result": result,
	})
}

// UpsertFilters seeds campuses and meals
// POST /api/v1/admin/filters
func (ctrl *AdminController) UpsertFilters(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req UpsertFiltersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid filter request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	if err := ctrl.menuService.UpsertFilters(c.Request.Context(), req.Campuses, req.Meals); err != nil {
		log.Error("Filter upsert failed", err, nil)
		apperrors.RespondWithDomainError(c, err, "filters")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Filters updated",
		"campuses": len(req.Campuses),
		"meals":    len(req.Meals),
	})
}
