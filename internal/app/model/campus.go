package model

import "time"

// Campus is a dining location. Its ID is assigned by the upstream menu
// site and is never generated locally.
type Campus struct {
	ID        uint      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Disabled  bool      `gorm:"not null;default:false" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Menus []Menu `gorm:"foreignKey:CampusID" json:"-"`
}

func (Campus) TableName() string {
	return "campuses"
}

// Meal is a meal period such as Breakfast or Lunch.
type Meal struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	NameKey   string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"-"` // NormalizeKey(Name)
	Disabled  bool      `gorm:"not null;default:false" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Meal) TableName() string {
	return "meals"
}

// Category groups menu items on a page ("Entree", "Soups", ...).
type Category struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	NameKey   string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (Category) TableName() string {
	return "categories"
}

// FilterOption is the id/name pair handed to the front end for campus
// and meal pickers.
type FilterOption struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}
