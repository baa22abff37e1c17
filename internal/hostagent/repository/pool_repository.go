package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jimyag/hostagent/internal/hostagent/repository/model"
)

// ErrPoolNotFound 存储池没有持久化的路径
var ErrPoolNotFound = errors.New("pool path not found")

// PoolRepository 存储池路径仓库接口
type PoolRepository interface {
	Get(ctx context.Context, poolID string) (*model.PoolPath, error)
	Set(ctx context.Context, pool *model.PoolPath) error
	List(ctx context.Context) ([]*model.PoolPath, error)
	Delete(ctx context.Context, poolID string) error
}

type poolRepository struct {
	db *gorm.DB
}

// NewPoolRepository 创建存储池路径仓库
func NewPoolRepository(db *gorm.DB) PoolRepository {
	return &poolRepository{db: db}
}

// Get 根据池 ID 获取路径，不存在时返回 ErrPoolNotFound
func (r *poolRepository) Get(ctx context.Context, poolID string) (*model.PoolPath, error) {
	var pool model.PoolPath
	if err := r.db.WithContext(ctx).Where("pool_id = ?", poolID).First(&pool).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPoolNotFound
		}
		return nil, err
	}
	return &pool, nil
}

// Set 写入或覆盖池路径
func (r *poolRepository) Set(ctx context.Context, pool *model.PoolPath) error {
	now := time.Now()
	if pool.CreatedAt.IsZero() {
		pool.CreatedAt = now
	}
	pool.UpdatedAt = now

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pool_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"local_path", "unc_path", "pool_type", "updated_at"}),
	}).Create(pool).Error
}

// List 列出所有池路径
func (r *poolRepository) List(ctx context.Context) ([]*model.PoolPath, error) {
	var pools []*model.PoolPath
	if err := r.db.WithContext(ctx).Order("pool_id").Find(&pools).Error; err != nil {
		return nil, err
	}
	return pools, nil
}

// Delete 删除池路径映射
func (r *poolRepository) Delete(ctx context.Context, poolID string) error {
	return r.db.WithContext(ctx).Where("pool_id = ?", poolID).Delete(&model.PoolPath{}).Error
}
