package model

type User struct {
	BaseModel
	Username string `gorm:"size:64;unique;not null"`
	Password string `gorm:"size:255;not null" json:"-"` // bcrypt哈希，绝不存明文
	Email    string `gorm:"size:255;not null"`
}

func (User) TableName() string {
	return "users"
}
