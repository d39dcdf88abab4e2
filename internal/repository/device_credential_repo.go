package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"gate-control/internal/model"
)

// DeviceCredentialRepository 设备凭证数据访问层
type DeviceCredentialRepository struct {
	db *gorm.DB
}

// NewDeviceCredentialRepository 创建 DeviceCredentialRepository 实例
func NewDeviceCredentialRepository(db *gorm.DB) *DeviceCredentialRepository {
	return &DeviceCredentialRepository{db: db}
}

// Create 创建设备凭证记录
// 返回:
//   - error: 如果 name 或 token_id 重复会返回错误
func (r *DeviceCredentialRepository) Create(ctx context.Context, cred *model.DeviceCredential) error {
	return r.db.WithContext(ctx).Create(cred).Error
}

// GetByTokenID 根据凭证标识（jti）获取记录
// 用于设备认证
func (r *DeviceCredentialRepository) GetByTokenID(ctx context.Context, tokenID string) (*model.DeviceCredential, error) {
	var cred model.DeviceCredential
	err := r.db.WithContext(ctx).Where("token_id = ?", tokenID).First(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cred, nil
}

// GetByName 根据设备名称获取记录
func (r *DeviceCredentialRepository) GetByName(ctx context.Context, name string) (*model.DeviceCredential, error) {
	var cred model.DeviceCredential
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cred, nil
}

// List 获取全部设备凭证，按创建时间倒序
func (r *DeviceCredentialRepository) List(ctx context.Context) ([]model.DeviceCredential, error) {
	var creds []model.DeviceCredential
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&creds).Error
	return creds, err
}

// UpdateFields 更新设备凭证的指定字段
// 参数:
//   - ctx: 上下文
//   - id: 记录ID
//   - fields: 要更新的字段映射，如 map[string]interface{}{"revoked": true}
//
// 返回:
//   - error: 数据库错误
func (r *DeviceCredentialRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.DeviceCredential{}).Where("id = ?", id).Updates(fields).Error
}
