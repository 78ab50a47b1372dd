package models

import "time"

// CartSnapshot 购物车持久化槽位（sql 驱动）
type CartSnapshot struct {
	ID        uint      `gorm:"primarykey" json:"id"`                              // 主键
	SlotKey   string    `gorm:"type:varchar(191);uniqueIndex;not null" json:"key"` // 槽位 key
	Payload   string    `gorm:"type:text;not null" json:"payload"`                 // 序列化后的购物车
	CreatedAt time.Time `gorm:"index" json:"created_at"`                           // 创建时间
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`                           // 更新时间
}

// TableName 指定表名
func (CartSnapshot) TableName() string {
	return "cart_snapshots"
}
