// Package response 提供统一的 API 响应格式
//
// 业务错误以 HTTP 200 加非零 code 返回；参数错误、限流、服务不可用等使用对应的 HTTP 状态码。
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CodeOK 成功业务码
const CodeOK = 0

// Response API 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListData 列表数据结构
type ListData struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
}

// JSON 写出统一结构
func JSON(c *gin.Context, status, code int, message string, data interface{}) {
	c.JSON(status, Response{Code: code, Message: message, Data: data})
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, CodeOK, "success", data)
}

// SuccessWithMessage 成功响应（带消息）
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	JSON(c, http.StatusOK, CodeOK, message, data)
}

// SuccessList 列表成功响应
func SuccessList(c *gin.Context, list interface{}, total int64) {
	JSON(c, http.StatusOK, CodeOK, "success", ListData{List: list, Total: total})
}

// BadRequest 请求参数错误
func BadRequest(c *gin.Context, message string) {
	JSON(c, http.StatusBadRequest, http.StatusBadRequest, message, nil)
}

// InternalError 服务器内部错误，不回传内部细节
func InternalError(c *gin.Context, message string) {
	JSON(c, http.StatusInternalServerError, http.StatusInternalServerError, orDefault(message, "internal server error"), nil)
}

// TooManyRequests 请求过于频繁
func TooManyRequests(c *gin.Context, message string) {
	JSON(c, http.StatusTooManyRequests, http.StatusTooManyRequests, orDefault(message, "too many requests"), nil)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
