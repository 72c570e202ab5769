package store

import "time"

// Calculation is one evaluated expression. Rows are never updated.
type Calculation struct {
	ID         uint      `gorm:"primaryKey"`
	Expression string    `gorm:"type:text;not null"`
	Result     float64   `gorm:"not null"`
	CreatedAt  time.Time `gorm:"index;not null"`
}

// TableName pins the table name independently of the struct name.
func (Calculation) TableName() string {
	return "calculations"
}
