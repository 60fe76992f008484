package models

// CategoryModel represents an article category.
type CategoryModel struct {
	Base
	Name string `json:"name"  gorm:"uniqueIndex;not null"`
	Slug string `json:"slug"  gorm:"uniqueIndex;not null"`

	Articles []ArticleModel `json:"articles,omitempty" gorm:"foreignKey:CategoryID"`
}

func (CategoryModel) TableName() string { return "categories" }
