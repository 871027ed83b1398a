package controller

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whatthedob/whatthedob-backend/internal/app/model"
	"github.com/whatthedob/whatthedob-backend/internal/app/service"
)

type stubFetchService struct {
	dates    []time.Time
	upcoming int
	err      error
}

func (s *stubFetchService) FetchMenus(ctx context.Context, date time.Time) (*service.FetchReport, error) {
	s.dates = append(s.dates, date)
	if s.err != nil {
		return nil, s.err
	}
	return &service.FetchReport{Dates: []string{date.Format(model.DateLayout)}, Attempted: 2, Fetched: 2}, nil
}

func (s *stubFetchService) FetchUpcoming(ctx context.Context) (*service.FetchReport, error) {
	s.upcoming++
	if s.err != nil {
		return nil, s.err
	}
	return &service.FetchReport{Dates: []string{"01/01/25", "01/02/25"}}, nil
}

func setupAdminControllerTest(t *testing.T) (*gin.Engine, service.MenuService, *stubFetchService) {
	menuRouter, menuService := setupMenuControllerTest(t)
	fetcher := &stubFetchService{}
	adminController := NewAdminController(menuService, fetcher)

	menuRouter.POST("/admin/menus/fetch", adminController.FetchMenus)
	menuRouter.POST("/admin/menus/ingest", adminController.IngestMenus)
	menuRouter.POST("/admin/filters", adminController.UpsertFilters)

	return menuRouter, menuService, fetcher
}

func TestAdminController_FetchMenus(t *testing.T) {
	router, _, fetcher := setupAdminControllerTest(t)

	w := doJSON(router, "POST", "/admin/menus/fetch?date=02/03/25", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, fetcher.dates, 1)
	assert.Equal(t, "02/03/25", fetcher.dates[0].Format(model.DateLayout))

	w = doJSON(router, "POST", "/admin/menus/fetch", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, fetcher.upcoming)

	w = doJSON(router, "POST", "/admin/menus/fetch?date=tomorrow", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MENU_INVALID_DATE", decode(t, w)["error"])
}

func TestAdminController_FetchMenusFailure(t *testing.T) {
	router, _, fetcher := setupAdminControllerTest(t)
	fetcher.err = errors.New("connection refused")

	w := doJSON(router, "POST", "/admin/menus/fetch", nil, "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "MENU_FETCH_FAILED", decode(t, w)["error"])
}

func TestAdminController_IngestMenus(t *testing.T) {
	router, menuService, _ := setupAdminControllerTest(t)

	snapshot := gin.H{
		"date":      "01/01/25",
		"campus_id": 46,
		"meal":      "Lunch",
		"items": []gin.H{
			{"value": "Tacos", "tags": []string{"Spicy"}, "category": "Grill"},
		},
	}
	w := doJSON(router, "POST", "/admin/menus/ingest", gin.H{"snapshots": []gin.H{snapshot}}, "")
	require.Equal(t, http.StatusOK, w.Code)

	result := decode(t, w)["result"].(map[string]interface{})
	assert.Equal(t, float64(1), result["menus"])
	assert.Equal(t, float64(1), result["mappings"])

	// The new snapshot replaced the previous item set.
	meals, err := menuService.GetMeals(context.Background())
	require.NoError(t, err)
	menu, err := menuService.GetMenu(context.Background(), "01/01/25", 46, meals[0].ID)
	require.NoError(t, err)
	require.Len(t, menu.Items, 1)
	assert.Equal(t, "Tacos", menu.Items[0].Value)
}

func TestAdminController_IngestMenus_Invalid(t *testing.T) {
	router, _, _ := setupAdminControllerTest(t)

	tests := []struct {
		name     string
		body     interface{}
		wantCode string
	}{
		{
			name:     "No snapshots",
			body:     gin.H{"snapshots": []gin.H{}},
			wantCode: "VALIDATION_INVALID_INPUT",
		},
		{
			name:     "Missing campus",
			body:     gin.H{"snapshots": []gin.H{{"date": "01/01/25", "meal": "Lunch"}}},
			wantCode: "VALIDATION_INVALID_INPUT",
		},
		{
			name:     "Bad date",
			body:     gin.H{"snapshots": []gin.H{{"date": "2025-01-01", "campus_id": 46, "meal": "Lunch"}}},
			wantCode: "MENU_INVALID_DATE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, "POST", "/admin/menus/ingest", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantCode, decode(t, w)["error"])
		})
	}
}

func TestAdminController_UpsertFilters(t *testing.T) {
	router, menuService, _ := setupAdminControllerTest(t)

	body := gin.H{
		"campuses": map[string]string{"46": "Abington", "12": "Altoona"},
		"meals":    []string{"Breakfast", "lunch"},
	}
	w := doJSON(router, "POST", "/admin/filters", body, "")
	require.Equal(t, http.StatusOK, w.Code)

	campuses, err := menuService.GetCampuses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.FilterOption{{ID: 12, Name: "Altoona"}, {ID: 46, Name: "Abington"}}, campuses)

	meals, err := menuService.GetMeals(context.Background())
	require.NoError(t, err)
	assert.Len(t, meals, 2)
}
