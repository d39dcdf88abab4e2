package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"gate-control/internal/service"
	"gate-control/pkg/response"
)

// LogHandler 访问日志请求处理器
type LogHandler struct {
	logService *service.LogService
}

// NewLogHandler 创建 LogHandler 实例
func NewLogHandler(logService *service.LogService) *LogHandler {
	return &LogHandler{
		logService: logService,
	}
}

// List 分页查询访问日志
// @Summary 访问日志
// @Description 最新的在前；offset 为每页条数
// @Tags 日志
// @Produce json
// @Param api_key query string true "API Key"
// @Param page query int false "页码，默认 1"
// @Param offset query int false "每页条数"
// @Success 200 {object} service.LogPage
// @Router /logs [get]
func (h *LogHandler) List(c *gin.Context) {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		response.BadRequest(c, "page must be an integer")
		return
	}
	size, err := queryInt(c, "offset", 0)
	if err != nil {
		response.BadRequest(c, "offset must be an integer")
		return
	}

	result, err := h.logService.List(c.Request.Context(), page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// Get 获取单条访问日志
// @Router /logs/{id} [get]
func (h *LogHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid log id")
		return
	}

	entry, err := h.logService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, entry)
}

// queryInt 读取整数查询参数，缺省时返回 def
func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
