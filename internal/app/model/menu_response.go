package model

// MenuResponse is the API view of a menu with its rated items.
type MenuResponse struct {
	Date     string             `json:"date"`
	CampusID uint               `json:"campus_id"`
	MealID   uint               `json:"meal_id"`
	Meal     string             `json:"meal"`
	Items    []MenuItemResponse `json:"items"`
}

type MenuItemResponse struct {
	Value         string   `json:"value"`
	Category      string   `json:"category"`
	Tags          []string `json:"tags"`
	TotalRating   int      `json:"total_rating"`
	RatingCount   int      `json:"rating_count"`
	AverageRating float64  `json:"average_rating"`
}

// RatingUpdate is pushed to live clients after a rating is recorded.
type RatingUpdate struct {
	Type          string  `json:"type"`
	Item          string  `json:"item"`
	TotalRating   int     `json:"total_rating"`
	RatingCount   int     `json:"rating_count"`
	AverageRating float64 `json:"average_rating"`
}

const RatingUpdatedEvent = "rating_updated"

// NewRatingUpdate builds the live event for a bucket.
func NewRatingUpdate(bucket *ItemRating) RatingUpdate {
	return RatingUpdate{
		Type:          RatingUpdatedEvent,
		Item:          bucket.Value,
		TotalRating:   bucket.TotalRating,
		RatingCount:   bucket.RatingCount,
		AverageRating: bucket.Average(),
	}
}
