package domain

import "time"

// Customer is a shopper account. Password holds a bcrypt hash.
type Customer struct {
	ID         int64     `json:"id,string" form:"id"`
	Email      string    `gorm:"uniqueIndex;size:128" json:"email" form:"email"`
	Username   string    `gorm:"index;size:64" json:"username" form:"username"`
	Password   string    `json:"-" form:"-"`
	Realname   string    `json:"realname" form:"realname"`
	Mobile     string    `gorm:"size:32" json:"mobile" form:"mobile"`
	Status     string    `gorm:"size:16" json:"status" form:"status"`
	Verified   bool      `json:"verified"`
	ResetToken string    `gorm:"size:64" json:"-"`
	ResetExpireAt time.Time `json:"-"`
	VerifyToken   string    `gorm:"size:64" json:"-"`
	LastLogin  time.Time `json:"last_login"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Customer) TableName() string {
	return "customers"
}
