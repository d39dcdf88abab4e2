// Package repository 提供数据访问层的实现
// 封装所有与数据库的交互操作，全部使用参数化查询
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"gate-control/internal/model"
)

// UserRepository 用户数据访问层
// 负责门禁用户相关的所有数据库操作
type UserRepository struct {
	db *gorm.DB // GORM 数据库连接实例
}

// NewUserRepository 创建 UserRepository 实例
// 参数:
//   - db: GORM 数据库连接
//
// 返回:
//   - *UserRepository: 用户仓库实例
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create 创建新用户
// 参数:
//   - ctx: 上下文，用于控制请求生命周期
//   - user: 用户对象，ID 和 RegDate 字段会被自动填充
//
// 返回:
//   - error: 如果 user_id 或 api_key 重复，会返回错误
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetByID 根据行 ID 获取用户
// 参数:
//   - ctx: 上下文
//   - id: 行ID
//
// 返回:
//   - *model.User: 用户对象，如果未找到返回 nil
//   - error: 数据库错误（不包括记录未找到）
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByUserID 根据业务标识获取用户
// 用于登录和创建时的重复检查
// 参数:
//   - ctx: 上下文
//   - userID: 用户业务标识
//
// 返回:
//   - *model.User: 用户对象，如果未找到返回 nil
//   - error: 数据库错误
func (r *UserRepository) GetByUserID(ctx context.Context, userID string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByAPIKey 根据 API Key 获取用户
// 调用方仍需对返回的 Key 做常量时间比较
// 参数:
//   - ctx: 上下文
//   - apiKey: API Key
//
// 返回:
//   - *model.User: 用户对象，如果未找到返回 nil
//   - error: 数据库错误
func (r *UserRepository) GetByAPIKey(ctx context.Context, apiKey string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("api_key = ?", apiKey).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// List 获取全部用户
// 按注册时间正序排列，时间相同时按行 ID
// 参数:
//   - ctx: 上下文
//
// 返回:
//   - []model.User: 用户列表，可能为空
//   - error: 数据库错误
func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Order("regdate ASC").
		Order("id ASC").
		Find(&users).Error
	return users, err
}

// Update 更新用户信息
// Save 会写入所有字段，RegDate 不会被修改
// 参数:
//   - ctx: 上下文
//   - user: 完整的用户对象，必须包含 ID
//
// 返回:
//   - error: 数据库错误
func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Omit("regdate").Save(user).Error
}

// Delete 删除用户（硬删除）
// 参数:
//   - ctx: 上下文
//   - id: 行ID
//
// 返回:
//   - bool: 是否删除了记录
//   - error: 数据库错误
func (r *UserRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&model.User{}, id)
	return result.RowsAffected > 0, result.Error
}

// ExistsByUserID 检查业务标识是否已存在
// 参数:
//   - ctx: 上下文
//   - userID: 用户业务标识
//
// 返回:
//   - bool: 是否存在
//   - error: 数据库错误
func (r *UserRepository) ExistsByUserID(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("user_id = ?", userID).Count(&count).Error
	return count > 0, err
}
