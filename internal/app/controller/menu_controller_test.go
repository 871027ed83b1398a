package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whatthedob/whatthedob-backend/internal/app/model"
	"github.com/whatthedob/whatthedob-backend/internal/app/repository"
	"github.com/whatthedob/whatthedob-backend/internal/app/service"
	"github.com/whatthedob/whatthedob-backend/internal/db"
	"github.com/whatthedob/whatthedob-backend/internal/middleware"
)

const testCookieKey = "UserSessionId"

func setupMenuControllerTest(t *testing.T) (*gin.Engine, service.MenuService) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	refs := repository.NewReferenceRepository(testDB)
	menuService := service.NewMenuService(
		repository.NewMenuRepository(testDB, refs),
		repository.NewMenuQueryRepository(testDB),
		nil,
		time.Minute,
	)
	ratingService := service.NewRatingService(repository.NewRatingRepository(testDB), nil)
	menuController := NewMenuController(menuService, ratingService)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.NewSessionMiddleware(testCookieKey, 7).Handle())
	router.GET("/campuses", menuController.GetCampuses)
	router.GET("/meals", menuController.GetMeals)
	router.GET("/menus", menuController.GetMenu)
	router.GET("/ratings", menuController.GetItemRating)
	router.POST("/ratings", menuController.SubmitRating)

	_, err = menuService.Ingest(context.Background(), []model.MenuSnapshot{{
		Date:     "01/01/25",
		CampusID: 46,
		MealName: "Lunch",
		Items: []model.SnapshotItem{
			{Value: "Pasta", Tags: []string{"Vegan"}, Category: "Entree"},
			{Value: "Salad", Category: ""},
		},
	}})
	require.NoError(t, err)

	return router, menuService
}

func doJSON(router *gin.Engine, method, target string, body interface{}, session string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.AddCookie(&http.Cookie{Name: testCookieKey, Value: session})
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func lunchID(t *testing.T, router *gin.Engine) uint {
	w := doJSON(router, "GET", "/meals", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Meals []model.FilterOption `json:"meals"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	for _, meal := range body.Meals {
		if meal.Name == "Lunch" {
			return meal.ID
		}
	}
	t.Fatal("Lunch not listed")
	return 0
}

func menuURL(date string, campusID, mealID interface{}) string {
	q := url.Values{}
	q.Set("date", date)
	q.Set("campus_id", fmt.Sprint(campusID))
	q.Set("meal_id", fmt.Sprint(mealID))
	return "/menus?" + q.Encode()
}

func TestMenuController_GetMenu(t *testing.T) {
	router, _ := setupMenuControllerTest(t)

	w := doJSON(router, "GET", menuURL("01/01/25", 46, lunchID(t, router)), nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Menu model.MenuResponse `json:"menu"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Lunch", body.Menu.Meal)
	require.Len(t, body.Menu.Items, 2)
	assert.Equal(t, "Pasta", body.Menu.Items[0].Value)
	assert.Equal(t, []string{"Vegan"}, body.Menu.Items[0].Tags)
	assert.Equal(t, model.UncategorizedName, body.Menu.Items[1].Category)
}

func TestMenuController_GetMenu_Errors(t *testing.T) {
	router, _ := setupMenuControllerTest(t)
	mealID := lunchID(t, router)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "Unknown menu",
			target:     menuURL("01/02/25", 46, mealID),
			wantStatus: http.StatusNotFound,
			wantCode:   "MENU_NOT_FOUND",
		},
		{
			name:       "Bad date",
			target:     menuURL("2025-01-01", 46, mealID),
			wantStatus: http.StatusBadRequest,
			wantCode:   "MENU_INVALID_DATE",
		},
		{
			name:       "Bad campus",
			target:     menuURL("01/01/25", "abc", mealID),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_INVALID_ID",
		},
		{
			name:       "Zero meal",
			target:     menuURL("01/01/25", 46, 0),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_INVALID_ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, "GET", tt.target, nil, "")
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decode(t, w)["error"])
		})
	}
}

func TestMenuController_ListFilters(t *testing.T) {
	router, _ := setupMenuControllerTest(t)

	w := doJSON(router, "GET", "/campuses", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["count"])

	w = doJSON(router, "GET", "/meals", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])
}

func TestMenuController_SubmitRating(t *testing.T) {
	router, _ := setupMenuControllerTest(t)

	w := doJSON(router, "POST", "/ratings", gin.H{"item": "Pasta", "rating": 5}, "s1")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, "POST", "/ratings", gin.H{"item": "pasta", "rating": 3}, "s1")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(3), body["total_rating"])
	assert.Equal(t, float64(1), body["rating_count"])

	w = doJSON(router, "POST", "/ratings", gin.H{"item": "Pasta", "rating": 5}, "s2")
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, float64(8), body["total_rating"])
	assert.Equal(t, float64(2), body["rating_count"])
	assert.Equal(t, float64(4), body["average_rating"])
}

func TestMenuController_SubmitRating_IssuesSession(t *testing.T) {
	router, _ := setupMenuControllerTest(t)

	w := doJSON(router, "POST", "/ratings", gin.H{"item": "Salad", "rating": 4}, "")
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, testCookieKey, cookies[0].Name)
}

func TestMenuController_SubmitRating_Errors(t *testing.T) {
	router, _ := setupMenuControllerTest(t)

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{
			name:       "Rating too high",
			body:       gin.H{"item": "Pasta", "rating": 6},
			wantStatus: http.StatusBadRequest,
			wantCode:   "RATING_INVALID_VALUE",
		},
		{
			name:       "Rating zero",
			body:       gin.H{"item": "Pasta", "rating": 0},
			wantStatus: http.StatusBadRequest,
			wantCode:   "RATING_INVALID_VALUE",
		},
		{
			name:       "Missing item",
			body:       gin.H{"rating": 3},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_INVALID_INPUT",
		},
		{
			name:       "Unknown item",
			body:       gin.H{"item": "Lobster", "rating": 3},
			wantStatus: http.StatusNotFound,
			wantCode:   "MENU_ITEM_NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, "POST", "/ratings", tt.body, "s1")
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decode(t, w)["error"])
		})
	}
}

func TestMenuController_GetItemRating(t *testing.T) {
	router, _ := setupMenuControllerTest(t)

	w := doJSON(router, "POST", "/ratings", gin.H{"item": "Pasta", "rating": 4}, "s1")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, "GET", "/ratings?item=Pasta", nil, "s1")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(4), body["total_rating"])
	assert.Equal(t, float64(4), body["your_rating"])

	w = doJSON(router, "GET", "/ratings?item=Pasta", nil, "s2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, decode(t, w), "your_rating")

	w = doJSON(router, "GET", "/ratings?item=Lobster", nil, "s1")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, "GET", "/ratings", nil, "s1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
