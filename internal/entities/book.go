package entities

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultBookImage is served when a book has no uploaded images.
const DefaultBookImage = "/images/books/default-book.png"

type Book struct {
	ID          uint                        `gorm:"primaryKey" json:"id"`
	Title       string                      `gorm:"index;size:512;not null" json:"title"`
	Author      string                      `gorm:"index;size:256;not null" json:"author"`
	Department  string                      `gorm:"index;size:100;not null" json:"department"`
	ISBN        string                      `gorm:"index;size:20" json:"isbn,omitempty"`
	BookCode    string                      `gorm:"size:64;not null" json:"book_code"`
	Price       float64                     `gorm:"default:0" json:"price"`
	Quantity    int                         `gorm:"default:0;check:quantity >= 0" json:"quantity"`
	IsAvailable bool                        `gorm:"index" json:"is_available"`
	Images      datatypes.JSONSlice[string] `json:"images,omitempty"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
	DeletedAt   gorm.DeletedAt              `gorm:"index" json:"-"`
}

func (Book) TableName() string {
	return "books"
}

// BeforeSave keeps IsAvailable in step with the stock count.
func (b *Book) BeforeSave(tx *gorm.DB) error {
	b.IsAvailable = b.Quantity > 0
	return nil
}

// ImagePath returns the first image or the default placeholder.
func (b Book) ImagePath() string {
	if len(b.Images) > 0 && b.Images[0] != "" {
		return b.Images[0]
	}
	return DefaultBookImage
}

// Status is the catalog label shown next to a book.
func (b Book) Status() string {
	if b.Quantity > 0 {
		return "Available"
	}
	return "Issued"
}
