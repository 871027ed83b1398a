package model

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

// ItemRating is the rating bucket shared by every MenuItem with the same
// normalized name, regardless of category.
type ItemRating struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Value       string    `gorm:"type:varchar(255);not null" json:"value"`
	NameKey     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"-"`
	TotalRating int       `gorm:"not null;default:0" json:"total_rating"`
	RatingCount int       `gorm:"not null;default:0" json:"rating_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	UserRatings []UserRating `gorm:"foreignKey:ItemRatingID" json:"-"`
}

func (ItemRating) TableName() string {
	return "item_ratings"
}

// Average returns the mean rating, or 0 when nobody has rated the item.
func (r ItemRating) Average() float64 {
	if r.RatingCount == 0 {
		return 0
	}
	return float64(r.TotalRating) / float64(r.RatingCount)
}

// UserRating is one anonymous session's rating of a bucket.
type UserRating struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	RatingValue  int        `gorm:"not null;check:chk_user_ratings_value,rating_value >= 1 AND rating_value <= 5" json:"rating_value"`
	SessionID    string     `gorm:"type:varchar(128);not null;uniqueIndex:idx_user_rating_bucket_session" json:"-"`
	ItemRatingID uint       `gorm:"not null;uniqueIndex:idx_user_rating_bucket_session" json:"item_rating_id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `gorm:"autoUpdateTime:false" json:"updated_at,omitempty"`

	ItemRating ItemRating `gorm:"foreignKey:ItemRatingID;constraint:OnDelete:CASCADE" json:"-"`
}

func (UserRating) TableName() string {
	return "user_ratings"
}
