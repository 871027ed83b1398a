package model

import "time"

// MenuItem is a food as it appears under one category. The same name in
// two categories is two rows that point at one ItemRating bucket.
type MenuItem struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	Value        string    `gorm:"type:varchar(255);not null" json:"value"`
	NameKey      string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_menu_item_key_category;index" json:"-"`
	Tags         string    `gorm:"type:text" json:"-"` // JSON array, see JoinTags
	CategoryID   uint      `gorm:"not null;uniqueIndex:idx_menu_item_key_category" json:"category_id"`
	ItemRatingID *uint     `gorm:"index" json:"item_rating_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Category   Category    `gorm:"foreignKey:CategoryID" json:"category"`
	ItemRating *ItemRating `gorm:"foreignKey:ItemRatingID" json:"item_rating,omitempty"`
}

func (MenuItem) TableName() string {
	return "menu_items"
}

// TagList returns the item's tags in their stored order.
func (m MenuItem) TagList() []string {
	return SplitTags(m.Tags)
}

// Menu is one (date, meal, campus) page.
type Menu struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Date      string    `gorm:"type:varchar(16);not null;uniqueIndex:idx_menu_date_meal_campus" json:"date"`
	MealID    uint      `gorm:"not null;uniqueIndex:idx_menu_date_meal_campus" json:"meal_id"`
	CampusID  uint      `gorm:"not null;uniqueIndex:idx_menu_date_meal_campus" json:"campus_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Meal   Meal   `gorm:"foreignKey:MealID" json:"meal"`
	Campus Campus `gorm:"foreignKey:CampusID" json:"campus"`
}

func (Menu) TableName() string {
	return "menus"
}

// MenuMapping links a menu to one of its items. Rows are replaced as a
// set whenever the menu is re-ingested.
type MenuMapping struct {
	ID         uint `gorm:"primarykey" json:"id"`
	MenuID     uint `gorm:"not null;uniqueIndex:idx_menu_mapping_pair" json:"menu_id"`
	MenuItemID uint `gorm:"not null;uniqueIndex:idx_menu_mapping_pair;index" json:"menu_item_id"`

	Menu     Menu     `gorm:"foreignKey:MenuID;constraint:OnDelete:CASCADE" json:"-"`
	MenuItem MenuItem `gorm:"foreignKey:MenuItemID" json:"menu_item"`
}

func (MenuMapping) TableName() string {
	return "menu_mappings"
}
