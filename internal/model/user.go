package model

import "time"

// User 是账户记录。用户名由唯一索引保证不重复。
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	Password  string    `gorm:"type:varchar(255);not null" json:"-"`
	Role      string    `gorm:"type:varchar(16);not null;default:USER" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// Session 是登录后写入 Redis 的会话记录，以用户名为键。
type Session struct {
	Username   string    `json:"username"`
	UserID     uint      `json:"userId"`
	SignedInAt time.Time `json:"signedInAt"`
}
