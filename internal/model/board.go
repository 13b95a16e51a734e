package model

// Board 就是一篇帖子，作者只记用户名（没有外键）
type Board struct {
	BaseModel
	Title     string `gorm:"size:100;not null"`
	Content   string `gorm:"type:text;not null"`
	Username  string `gorm:"size:64;not null;index"`
	ViewCount uint64 `gorm:"default:0"`
}

func (Board) TableName() string {
	return "boards"
}
