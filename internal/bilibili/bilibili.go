package bilibili

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Method 数据获取方式
type Method string

const (
	// MethodAPI 调用B站公开API
	MethodAPI Method = "api"
	// MethodScript 抓取网页后解析
	MethodScript Method = "script"
)

// ParseMethod 解析获取方式，空字符串默认为api
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case "", MethodAPI:
		return MethodAPI, nil
	case MethodScript:
		return MethodScript, nil
	default:
		return "", errors.Errorf("不支持的获取方法: %s，可选: api, script", s)
	}
}

var (
	bvidPattern = regexp.MustCompile(`^BV[A-Za-z0-9]{10}$`)
	cvidPattern = regexp.MustCompile(`^[0-9]+$`)
)

// IsValidBVID 校验BV号格式
func IsValidBVID(bvid string) bool {
	return bvidPattern.MatchString(bvid)
}

// ValidateBVID 返回带提示的BV号格式错误
func ValidateBVID(bvid string) error {
	if !IsValidBVID(bvid) {
		return errors.Errorf("无效的BV号格式: %s。BV号应该以\"BV\"开头，后跟10位字符", bvid)
	}
	return nil
}

// NormalizeCVID 规范化专栏CV号，接受 "12411259" 或 "cv12411259"
func NormalizeCVID(cvID string) (string, error) {
	id := strings.TrimSpace(cvID)
	if len(id) > 2 && strings.EqualFold(id[:2], "cv") {
		id = id[2:]
	}
	if !cvidPattern.MatchString(id) {
		return "", errors.Errorf("无效的CV号格式: %s。CV号应该是纯数字", cvID)
	}
	return id, nil
}
