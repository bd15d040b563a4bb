// Package handler 提供 API Handler 的通用辅助函数
// 用于减少 Handler 层的代码重复，统一错误处理与参数解析
package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/marketplace-pricing/internal/common/errors"
	"github.com/dumeirei/marketplace-pricing/internal/common/logger"
	"github.com/dumeirei/marketplace-pricing/internal/common/response"
)

// HandleError 处理错误并发送适当的响应
// 如果 err 为 nil，返回 false（表示无错误需要处理）
// 如果 err 不为 nil，发送错误响应并返回 true（调用方应该 return）
// 非 AppError 只记录日志，不把内部错误信息返回给客户端
//
// 使用示例:
//
//	result, err := service.Quote(ctx, req)
//	if HandleError(c, err) {
//	    return
//	}
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	if errors.IsAppError(err) {
		appErr := errors.GetAppError(err)
		response.JSON(c, appErr.HTTPStatus(), appErr.Code, appErr.Message, nil)
		return true
	}
	logger.Error("unhandled error", logger.Path(c.FullPath()), logger.Err(err))
	response.InternalError(c, "")
	return true
}

// MustSucceed 便捷封装：如果有错误则返回错误响应，否则返回成功响应
//
// 使用示例:
//
//	result, err := service.GetData()
//	MustSucceed(c, err, result)
//	return  // 注意：调用 MustSucceed 后必须 return
func MustSucceed(c *gin.Context, err error, data interface{}) {
	if HandleError(c, err) {
		return
	}
	response.Success(c, data)
}

// BindJSON 绑定请求体，失败时返回 400
func BindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return false
	}
	return true
}

// ParseID 解析路径参数 id
func ParseID(c *gin.Context, resourceName string) (int64, bool) {
	return ParseParamID(c, "id", resourceName)
}

// ParseParamID 解析指定路径参数为正整数 ID
// resourceName: 资源名称，用于错误消息（如 "卖家", "加价模板"）
func ParseParamID(c *gin.Context, paramName, resourceName string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(paramName), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "无效的"+resourceName+"ID")
		return 0, false
	}
	return id, true
}

// ParseCurrencyCode 解析路径参数中的三位币种代码并转为大写
func ParseCurrencyCode(c *gin.Context, paramName string) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(c.Param(paramName)))
	if len(code) != 3 {
		response.BadRequest(c, "无效的币种代码")
		return "", false
	}
	return code, true
}
