package web

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/smysle/gift-shuffle-go/internal/service"
	pkglogger "github.com/smysle/gift-shuffle-go/pkg/logger"
)

// actorHeader 上游鉴权后写入的操作员 ID
const actorHeader = "X-Actor-ID"

const actorKey = "actor_id"

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// actorMiddleware 解析操作员身份，缺失时为 0，由服务层拒绝写操作
func actorMiddleware(c *fiber.Ctx) error {
	raw := c.Get(actorHeader)
	if raw == "" {
		c.Locals(actorKey, int64(0))
		return c.Next()
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "无效的操作员 ID",
			Code:  service.KindValidation.String(),
		})
	}
	c.Locals(actorKey, id)
	return c.Next()
}

// actorID 当前请求的操作员
func actorID(c *fiber.Ctx) int64 {
	if id, ok := c.Locals(actorKey).(int64); ok {
		return id
	}
	return 0
}

// statusOf 错误分类对应的 HTTP 状态码
func statusOf(kind service.Kind) int {
	switch kind {
	case service.KindValidation:
		return fiber.StatusBadRequest
	case service.KindPermission:
		return fiber.StatusForbidden
	case service.KindNotFound:
		return fiber.StatusNotFound
	case service.KindConflict:
		return fiber.StatusConflict
	case service.KindConcurrency:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// fail 按错误分类返回响应，内部错误不暴露细节
func fail(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(ErrorResponse{Error: fe.Message, Code: service.KindValidation.String()})
	}

	kind := service.KindOf(err)
	msg := err.Error()
	if kind == service.KindInternal {
		pkglogger.Error().Err(err).Str("path", c.Path()).Msg("请求处理失败")
		msg = "服务器内部错误"
	}
	if kind == service.KindConcurrency {
		c.Set(fiber.HeaderRetryAfter, "1")
	}

	return c.Status(statusOf(kind)).JSON(ErrorResponse{Error: msg, Code: kind.String()})
}

// paramID 解析路径中的 ID
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "无效的 ID")
	}
	return uint(id), nil
}

// queryInt 解析整数查询参数，缺省时返回 def，非数字返回 400
func queryInt(c *fiber.Ctx, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "无效的参数: "+key)
	}
	return v, nil
}

// parseBody 解析请求体
func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "请求格式错误")
	}
	return nil
}
