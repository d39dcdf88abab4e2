package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"gate-control/internal/model"
	"gate-control/internal/repository"
	"gate-control/pkg/util"
)

// UserService 门禁用户服务
// 处理 API Key 解析以及用户的增删改查
type UserService struct {
	userRepo     *repository.UserRepository // 用户数据访问层
	apiKeySecret string                     // API Key 派生密钥，为空时使用旧版 MD5
}

// NewUserService 创建 UserService 实例
func NewUserService(userRepo *repository.UserRepository, apiKeySecret string) *UserService {
	return &UserService{
		userRepo:     userRepo,
		apiKeySecret: apiKeySecret,
	}
}

// DeriveAPIKey 由 user_id 计算 API Key
func (s *UserService) DeriveAPIKey(userID string) string {
	return util.DeriveAPIKey(s.apiKeySecret, userID)
}

// Resolve 根据 API Key 查找用户
// 参数:
//   - ctx: 上下文
//   - apiKey: 客户端提交的 API Key
//
// 返回:
//   - *model.User: 对应的用户
//   - error: Key 为空或无法识别时返回 ErrAuthenticationFailed
func (s *UserService) Resolve(ctx context.Context, apiKey string) (*model.User, error) {
	// Key 必须原样匹配，不做任何规范化
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: api_key is required", ErrAuthenticationFailed)
	}

	user, err := s.userRepo.GetByAPIKey(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	// 索引查询之后再做一次常量时间比较
	if user == nil || !util.SecureCompare(user.APIKey, apiKey) {
		return nil, fmt.Errorf("%w: unknown api_key", ErrAuthenticationFailed)
	}
	return user, nil
}

// UpsertUserRequest 创建/修改用户请求
// 指针字段为 nil 表示修改时保持原值；客户端提交的 api_key 会被忽略
type UpsertUserRequest struct {
	ID       int64    `json:"id"`        // 行标识，为 0 时创建
	UserID   *string  `json:"user_id"`   // 业务标识
	Name     *string  `json:"name"`      // 显示名称
	Plates   []string `json:"plates"`    // 车牌号列表
	DateFrom *string  `json:"date_from"` // 起始日期
	DateTo   *string  `json:"date_to"`   // 截止日期
	HourFrom *int     `json:"hour_from"` // 每日起始小时
	HourTo   *int     `json:"hour_to"`   // 每日截止小时（不含）
	Flag     *bool    `json:"flag"`      // 是否启用，创建时默认启用
	Password *string  `json:"password"`  // 登录密码，可选
}

// Upsert 没有行标识时创建，否则修改
func (s *UserService) Upsert(ctx context.Context, req *UpsertUserRequest) (*model.User, error) {
	if req.ID == 0 {
		return s.Create(ctx, req)
	}
	return s.Modify(ctx, req)
}

// Create 创建用户
// 参数:
//   - ctx: 上下文
//   - req: 创建请求
//
// 返回:
//   - *model.User: 创建后的用户
//   - error: user_id 重复返回 ErrUserExists，字段不合法返回 ErrValidationFailed
func (s *UserService) Create(ctx context.Context, req *UpsertUserRequest) (*model.User, error) {
	user := &model.User{
		DateFrom: model.UnboundedDate,
		DateTo:   model.UnboundedDate,
		Flag:     true,
	}
	if err := s.apply(user, req); err != nil {
		return nil, err
	}

	exists, err := s.userRepo.ExistsByUserID(ctx, user.UserID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrUserExists, user.UserID)
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Modify 修改用户
// 只覆盖请求中出现的字段，api_key 总是按 user_id 重新计算，注册时间不变
func (s *UserService) Modify(ctx context.Context, req *UpsertUserRequest) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user row %d", ErrNotFound, req.ID)
	}

	previousUserID := user.UserID
	if err := s.apply(user, req); err != nil {
		return nil, err
	}

	if user.UserID != previousUserID {
		other, err := s.userRepo.GetByUserID(ctx, user.UserID)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != user.ID {
			return nil, fmt.Errorf("%w: %s", ErrUserExists, user.UserID)
		}
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// apply 把请求字段写入用户对象并校验
func (s *UserService) apply(user *model.User, req *UpsertUserRequest) error {
	if req.UserID != nil {
		user.UserID = strings.TrimSpace(*req.UserID)
	}
	if user.UserID == "" {
		return fmt.Errorf("%w: user_id is required", ErrValidationFailed)
	}
	if len(user.UserID) > 64 {
		return fmt.Errorf("%w: user_id is too long", ErrValidationFailed)
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			user.Name = nil
		} else {
			user.Name = &name
		}
	}
	if req.Plates != nil {
		plates, err := json.Marshal(req.Plates)
		if err != nil {
			return err
		}
		user.Plates = datatypes.JSON(plates)
	}
	if req.DateFrom != nil {
		user.DateFrom = normalizeDate(*req.DateFrom)
	}
	if req.DateTo != nil {
		user.DateTo = normalizeDate(*req.DateTo)
	}
	if req.HourFrom != nil {
		user.HourFrom = *req.HourFrom
	}
	if req.HourTo != nil {
		user.HourTo = *req.HourTo
	}
	if req.Flag != nil {
		user.Flag = *req.Flag
	}

	if err := WindowOf(user).Validate(); err != nil {
		return err
	}

	if req.Password != nil && *req.Password != "" {
		hash, err := util.HashPassword(*req.Password)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
	}

	user.APIKey = s.DeriveAPIKey(user.UserID)
	return nil
}

// UserView 用户列表项
type UserView struct {
	model.User
	APIKeyDrifted bool `json:"api_key_drifted"` // 存储的 Key 与当前派生规则不一致
}

// List 获取全部用户，按注册时间升序
func (s *UserService) List(ctx context.Context) ([]UserView, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, UserView{
			User:          u,
			APIKeyDrifted: u.APIKey != s.DeriveAPIKey(u.UserID),
		})
	}
	return views, nil
}

// RemoveUserRequest 删除用户请求，id 与 user_id 二选一
type RemoveUserRequest struct {
	ID     int64  `json:"id"`
	UserID string `json:"user_id"`
}

// Remove 物理删除用户
// 返回:
//   - error: 用户不存在返回 ErrNotFound
func (s *UserService) Remove(ctx context.Context, req *RemoveUserRequest) error {
	id := req.ID
	if id == 0 {
		if strings.TrimSpace(req.UserID) == "" {
			return fmt.Errorf("%w: id or user_id is required", ErrValidationFailed)
		}
		user, err := s.userRepo.GetByUserID(ctx, strings.TrimSpace(req.UserID))
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("%w: user %s", ErrNotFound, req.UserID)
		}
		id = user.ID
	}

	deleted, err := s.userRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: user row %d", ErrNotFound, id)
	}
	return nil
}
