package config

import (
	"context"
	"errors"

	"github.com/jimyag/hostagent/internal/hostagent/repository"
	"github.com/jimyag/hostagent/internal/hostagent/repository/model"
	"github.com/jimyag/hostagent/pkg/apierror"
)

// PoolRegistry 网络存储池 ID 到本地挂载路径的映射
type PoolRegistry struct {
	repo repository.PoolRepository
}

// NewPoolRegistry 创建注册表
func NewPoolRegistry(repo repository.PoolRepository) *PoolRegistry {
	return &PoolRegistry{repo: repo}
}

// LocalPath 返回池的本地路径，未注册时返回 NotFound
func (r *PoolRegistry) LocalPath(ctx context.Context, poolID string) (string, error) {
	pool, err := r.repo.Get(ctx, poolID)
	if err != nil {
		if errors.Is(err, repository.ErrPoolNotFound) {
			return "", apierror.NotFoundf("No local path registered for pool %s", poolID)
		}
		return "", apierror.IO("load pool path", err)
	}
	return pool.LocalPath, nil
}

// Register 记录池的本地路径
func (r *PoolRegistry) Register(ctx context.Context, poolID, localPath, uncPath, poolType string) error {
	if poolID == "" {
		return apierror.Invalidf("pool id is empty")
	}
	if err := r.repo.Set(ctx, &model.PoolPath{
		PoolID:    poolID,
		LocalPath: localPath,
		UNCPath:   uncPath,
		PoolType:  poolType,
	}); err != nil {
		return apierror.IO("save pool path", err)
	}
	return nil
}
