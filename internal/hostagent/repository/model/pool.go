package model

import "time"

// PoolPath 存储池 ID 到本地挂载路径的映射
type PoolPath struct {
	PoolID    string    `gorm:"primaryKey;type:text;column:pool_id" json:"pool_id"`
	LocalPath string    `gorm:"type:text;not null;column:local_path" json:"local_path"`
	UNCPath   string    `gorm:"type:text;column:unc_path" json:"unc_path"` // 规范化后的共享路径，只用于展示
	PoolType  string    `gorm:"type:text;column:pool_type" json:"pool_type"`
	CreatedAt time.Time `gorm:"type:datetime;not null;column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:datetime;not null;column:updated_at" json:"updated_at"`
}

// TableName 指定表名
func (PoolPath) TableName() string {
	return "pool_paths"
}
