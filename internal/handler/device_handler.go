package handler

import (
	"github.com/gin-gonic/gin"

	"gate-control/internal/service"
	"gate-control/pkg/response"
)

// DeviceHandler 设备凭证管理请求处理器
type DeviceHandler struct {
	userService   *service.UserService
	deviceService *service.DeviceService
}

// NewDeviceHandler 创建 DeviceHandler 实例
func NewDeviceHandler(userService *service.UserService, deviceService *service.DeviceService) *DeviceHandler {
	return &DeviceHandler{
		userService:   userService,
		deviceService: deviceService,
	}
}

// Action 设备凭证管理动作
// @Summary 设备凭证管理
// @Description action: list / issue / revoke
// @Tags 设备
// @Accept json
// @Produce json
// @Param body body ActionRequest true "动作请求"
// @Router /devices [post]
func (h *DeviceHandler) Action(c *gin.Context) {
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
		creds, err := h.deviceService.List(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		response.Success(c, creds)

	case "issue":
		var data service.IssueDeviceRequest
		if err := decodeData(req.Data, &data); err != nil {
			respondError(c, err)
			return
		}
		issued, err := h.deviceService.Issue(ctx, &data)
		if err != nil {
			respondError(c, err)
			return
		}
		response.Created(c, "device credential issued", issued)

	case "revoke":
		var data service.RevokeDeviceRequest
		if err := decodeData(req.Data, &data); err != nil {
			respondError(c, err)
			return
		}
		if err := h.deviceService.Revoke(ctx, &data); err != nil {
			respondError(c, err)
			return
		}
		response.Message(c, "device credential revoked", nil)

	default:
		respondError(c, unknownAction(req.Action))
	}
}
