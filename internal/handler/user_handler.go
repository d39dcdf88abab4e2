package handler

import (
	"github.com/gin-gonic/gin"

	"gate-control/internal/service"
	"gate-control/pkg/response"
)

// UserHandler 用户管理请求处理器
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler 创建 UserHandler 实例
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// Action 用户管理动作
// 任何有效 API Key 都可以管理用户
// @Summary 用户管理
// @Description action: list / create / modify / upsert / remove
// @Tags 用户
// @Accept json
// @Produce json
// @Param body body ActionRequest true "动作请求"
// @Router /users [post]
func (h *UserHandler) Action(c *gin.Context) {
	req, ok := bindAction(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := h.userService.Resolve(ctx, req.APIKey); err != nil {
		respondError(c, err)
		return
	}

	switch req.Action {
	case "list":
		users, err := h.userService.List(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		response.Success(c, users)

	case "create", "modify", "upsert":
		var data service.UpsertUserRequest
		if err := decodeData(req.Data, &data); err != nil {
			respondError(c, err)
			return
		}

		var (
			saved interface{}
			err   error
		)
		switch req.Action {
		case "create":
			data.ID = 0
			saved, err = h.userService.Create(ctx, &data)
		case "modify":
			if data.ID == 0 {
				respondError(c, errMissingID)
				return
			}
			saved, err = h.userService.Modify(ctx, &data)
		default:
			saved, err = h.userService.Upsert(ctx, &data)
		}
		if err != nil {
			respondError(c, err)
			return
		}
		response.Message(c, "user saved", saved)

	case "remove":
		var data service.RemoveUserRequest
		if err := decodeData(req.Data, &data); err != nil {
			respondError(c, err)
			return
		}
		if err := h.userService.Remove(ctx, &data); err != nil {
			respondError(c, err)
			return
		}
		response.Message(c, "user removed", nil)

	default:
		respondError(c, unknownAction(req.Action))
	}
}
