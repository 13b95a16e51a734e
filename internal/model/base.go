package model

import "time"

// gorm.Model 的ID是uint，这里统一成uint64；不带DeletedAt，删除就是真删除
type BaseModel struct {
	ID        uint64 `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
