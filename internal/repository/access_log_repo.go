package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gate-control/internal/model"
)

// AccessLogRepository 访问日志数据访问层
type AccessLogRepository struct {
	db *gorm.DB
}

// NewAccessLogRepository 创建 AccessLogRepository 实例
func NewAccessLogRepository(db *gorm.DB) *AccessLogRepository {
	return &AccessLogRepository{db: db}
}

// Record 写入一条访问日志
// 如果存在时间早于 cutoff 的记录，则原地覆盖其中最旧的一条（行数不变）；
// 否则插入新记录。覆盖时保留原行 ID，entry.ID 会被回填。
// 参数:
//   - ctx: 上下文
//   - entry: 日志对象
//   - cutoff: 保留期边界，早于该时刻的记录可以被覆盖
//
// 返回:
//   - bool: 是否覆盖了旧记录
//   - error: 数据库错误
func (r *AccessLogRepository) Record(ctx context.Context, entry *model.AccessLog, cutoff time.Time) (bool, error) {
	recycled := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var oldest model.AccessLog
		// 锁定被选中的行，并发写入不会覆盖同一条记录
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("timestamp < ?", cutoff).
			Order("timestamp ASC").
			Order("id ASC").
			Take(&oldest).Error

		switch {
		case err == nil:
			entry.ID = oldest.ID
			recycled = true
			if entry.Flag == "" {
				entry.Flag = model.LogFlagDefault
			}
			// Save 写入全部字段，零值（空抓拍、NULL 用户）也会覆盖旧值
			return tx.Save(entry).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			entry.ID = 0
			return tx.Create(entry).Error
		default:
			return err
		}
	})

	return recycled, err
}

// List 分页获取访问日志
// 按事件时间倒序排列，最新的在前面
// 参数:
//   - ctx: 上下文
//   - offset: 跳过的记录数
//   - limit: 返回的最大记录数
//
// 返回:
//   - []model.AccessLog: 日志列表
//   - error: 数据库错误
func (r *AccessLogRepository) List(ctx context.Context, offset, limit int) ([]model.AccessLog, error) {
	var logs []model.AccessLog
	err := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// Count 统计日志总数
func (r *AccessLogRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.AccessLog{}).Count(&count).Error
	return count, err
}

// GetByID 根据 ID 获取日志
// 返回:
//   - *model.AccessLog: 日志对象，如果未找到返回 nil
//   - error: 数据库错误
func (r *AccessLogRepository) GetByID(ctx context.Context, id int64) (*model.AccessLog, error) {
	var entry model.AccessLog
	err := r.db.WithContext(ctx).First(&entry, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}
