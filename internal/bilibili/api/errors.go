package api

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Error B站接口错误，StatusCode为HTTP状态码，Code为响应体里的业务码
type Error struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode != 0 && e.StatusCode != http.StatusOK {
		switch e.StatusCode {
		case http.StatusPreconditionFailed:
			return "请求被拒绝 (412)，可能触发了风控，请稍后再试"
		case http.StatusUnauthorized:
			return "登录状态已失效 (401)，请重新运行 bilibili-cookies 获取cookies"
		}
		return fmt.Sprintf("HTTP错误: %d", e.StatusCode)
	}

	if msg, ok := codeMessages[e.Code]; ok {
		return msg
	}
	return fmt.Sprintf("API错误 (%d): %s", e.Code, e.Message)
}

var codeMessages = map[int]string{
	-400: "请求参数错误",
	-101: "账号未登录",
	-102: "账号被封禁",
	-403: "访问被拒绝，视频可能设为私密",
	-404: "视频不存在或已被删除",
	-412: "请求被拦截 (-412)，请稍后再试",
}

// IsRejected 是否被风控拒绝
func IsRejected(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusPreconditionFailed || apiErr.Code == -412
	}
	return false
}

// IsUnauthorized 是否需要重新登录
func IsUnauthorized(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.Code == -101
	}
	return false
}

// IsNotFound 资源是否不存在
func IsNotFound(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound || apiErr.Code == -404
	}
	return false
}

// IsForbidden 是否无权访问
func IsForbidden(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusForbidden || apiErr.Code == -403
	}
	return false
}
