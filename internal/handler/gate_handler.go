package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"gate-control/internal/middleware"
	"gate-control/internal/model"
	"gate-control/internal/service"
	"gate-control/pkg/response"
)

// maxUploadSize 外部设备上传抓拍的大小上限
const maxUploadSize = 8 << 20

// GateHandler 门禁请求处理器
type GateHandler struct {
	gateService *service.GateService
}

// NewGateHandler 创建 GateHandler 实例
func NewGateHandler(gateService *service.GateService) *GateHandler {
	return &GateHandler{
		gateService: gateService,
	}
}

// snapshotData snapshot 动作参数
type snapshotData struct {
	CamName string `json:"cam_name"`
}

// Action 网页端门禁动作
// @Summary 门禁动作
// @Description action: ready / open / snapshot
// @Tags 门禁
// @Accept json
// @Produce json
// @Param body body ActionRequest true "动作请求"
// @Router /gate [post]
func (h *GateHandler) Action(c *gin.Context) {
	req, ok := bindAction(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	switch req.Action {
	case "ready":
		result, err := h.gateService.Ready(ctx, req.APIKey)
		if err != nil {
			respondError(c, err)
			return
		}
		response.Success(c, result)

	case "open":
		// data 为前端附带的客户端信息，格式不合法时忽略
		var clientInfo map[string]interface{}
		_ = decodeData(req.Data, &clientInfo)

		result, err := h.gateService.Open(ctx, req.APIKey, service.RequestMeta{
			ClientIP:   c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			ClientInfo: clientInfo,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		response.Success(c, result)

	case "snapshot":
		var data snapshotData
		if err := decodeData(req.Data, &data); err != nil {
			respondError(c, err)
			return
		}
		result, err := h.gateService.Snapshot(ctx, req.APIKey, data.CamName)
		if err != nil {
			respondError(c, err)
			return
		}
		response.Success(c, result)

	default:
		respondError(c, unknownAction(req.Action))
	}
}

// Exit 外部设备触发开门
// 需要 exit 范围的设备凭证（由 DeviceAuthMiddleware 校验）
// @Summary 外部出门
// @Tags 门禁
// @Param mode query string true "固定为 exit"
// @Param token query string false "设备凭证，也可以放在 Authorization 头"
// @Router /gate [get]
func (h *GateHandler) Exit(c *gin.Context) {
	if mode := c.Query("mode"); mode != model.ModeExit {
		response.BadRequest(c, fmt.Sprintf("unsupported mode %q", mode))
		return
	}

	result, err := h.gateService.Exit(c.Request.Context(), middleware.GetDevice(c), service.RequestMeta{
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// UploadSnapshot 外部设备上传抓拍
// multipart 字段 snapshot 为 JPEG 文件，可省略（包括没有请求体）；查询参数原样写入日志
// @Summary 上传抓拍
// @Tags 门禁
// @Accept multipart/form-data
// @Router /snapshot [post]
func (h *GateHandler) UploadSnapshot(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	var image []byte
	if fh, err := c.FormFile("snapshot"); err == nil {
		f, err := fh.Open()
		if err != nil {
			response.BadRequest(c, "unreadable snapshot file")
			return
		}
		defer f.Close()

		image, err = io.ReadAll(f)
		if err != nil {
			response.BadRequest(c, "unreadable snapshot file")
			return
		}
	} else if err != http.ErrMissingFile && err != http.ErrNotMultipart {
		response.BadRequest(c, "malformed upload: "+err.Error())
		return
	}

	params := make(map[string]string)
	for k, v := range c.Request.URL.Query() {
		if k == "token" || len(v) == 0 {
			continue
		}
		params[k] = v[0]
	}

	entry, err := h.gateService.StoreSnapshot(c.Request.Context(), middleware.GetDevice(c), params, image, service.RequestMeta{
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.Message(c, "stored", gin.H{"log_id": entry.ID})
}
