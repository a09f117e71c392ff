package mcp

import (
	"encoding/json"
	"reflect"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/api"
	"github.com/shirenchuang/bilibili-data-mcp/pkg/logger"
)

// echo 原样回显在结果里的调用参数
type echo map[string]interface{}

// createToolResult 成功结果，total 为列表长度，对象固定为1
func (s *Server) createToolResult(method string, data interface{}, e echo) *mcp.CallToolResult {
	body := map[string]interface{}{
		"success": true,
		"method":  method,
		"total":   countOf(data),
		"data":    data,
	}
	for k, v := range e {
		body[k] = v
	}
	return mcp.NewToolResultText(marshal(body))
}

// createErrorResult 失败结果，isError 置为true
func (s *Server) createErrorResult(err error, e echo) *mcp.CallToolResult {
	switch {
	case api.IsRejected(err):
		logger.Warn("请求被B站风控拦截，请降低请求频率或更新cookies")
	case api.IsUnauthorized(err):
		logger.Warn("B站登录状态失效，请重新运行 bilibili-cookies")
	}

	body := map[string]interface{}{
		"success": false,
		"error":   err.Error(),
	}
	for k, v := range e {
		body[k] = v
	}
	return mcp.NewToolResultError(marshal(body))
}

func countOf(data interface{}) int {
	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Slice {
		return v.Len()
	}
	return 1
}

func marshal(body map[string]interface{}) string {
	out, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		logger.Errorf("序列化工具结果失败: %v", err)
		return `{"success":false,"error":"序列化结果失败"}`
	}
	return string(out)
}
