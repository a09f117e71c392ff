package auth

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/playwright-community/playwright-go"
)

// Cookie 单个cookie，字段名与浏览器导出的JSON保持一致
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	HttpOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

// CookieSet B站登录cookie集合
type CookieSet []Cookie

// LoadCookies 读取cookie文件，文件不存在时返回空集合
// 支持三种格式：cookie对象数组、{"cookies": "a=b; c=d"}、"a=b; c=d"
func LoadCookies(path string) (CookieSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return CookieSet{}, nil
		}
		return nil, errors.Wrapf(err, "读取cookie文件失败: %s", path)
	}
	return ParseCookies(data)
}

// ParseCookies 解析cookie文件内容
func ParseCookies(data []byte) (CookieSet, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return CookieSet{}, nil
	}

	switch trimmed[0] {
	case '[':
		var set CookieSet
		if err := json.Unmarshal([]byte(trimmed), &set); err != nil {
			return nil, errors.Wrap(err, "解析cookie数组失败")
		}
		return set.withValues(), nil
	case '{':
		var obj struct {
			Cookies string `json:"cookies"`
		}
		if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
			return nil, errors.Wrap(err, "解析cookie对象失败")
		}
		return ParseCookieHeader(obj.Cookies), nil
	case '"':
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err != nil {
			return nil, errors.Wrap(err, "解析cookie字符串失败")
		}
		return ParseCookieHeader(s), nil
	}
	return nil, errors.New("无法识别的cookie文件格式，应为JSON数组、对象或字符串")
}

// ParseCookieHeader 解析 "a=b; c=d" 形式的cookie字符串
func ParseCookieHeader(header string) CookieSet {
	set := CookieSet{}
	for _, part := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || strings.TrimSpace(name) == "" {
			continue
		}
		set = append(set, Cookie{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)})
	}
	return set
}

// withValues 去掉没有name的条目
func (s CookieSet) withValues() CookieSet {
	out := make(CookieSet, 0, len(s))
	for _, c := range s {
		if c.Name != "" {
			out = append(out, c)
		}
	}
	return out
}

// Header 拼接成请求头用的 "a=b; c=d"
func (s CookieSet) Header() string {
	parts := make([]string, 0, len(s))
	for _, c := range s {
		if c.Name == "" {
			continue
		}
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// Get 按名称取值
func (s CookieSet) Get(name string) (string, bool) {
	for _, c := range s {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// HasLogin 是否包含登录态cookie
func (s CookieSet) HasLogin() bool {
	v, ok := s.Get("SESSDATA")
	return ok && v != ""
}

type cookieKey struct {
	name, domain, path string
}

// Sanitize 清洗cookie：
// 去掉没有名字或值为空的条目，按(name, domain, path)去重（保留第一个），
// 去掉非正数的expires，sameSite为None时强制secure
func (s CookieSet) Sanitize() CookieSet {
	seen := make(map[cookieKey]bool, len(s))
	out := make(CookieSet, 0, len(s))

	for _, c := range s {
		if c.Name == "" || c.Value == "" {
			continue
		}
		path := c.Path
		if path == "" {
			path = "/"
		}
		key := cookieKey{c.Name, c.Domain, path}
		if seen[key] {
			continue
		}
		seen[key] = true

		if c.Expires <= 0 {
			c.Expires = 0
		} else {
			c.Expires = math.Trunc(c.Expires)
		}
		if c.SameSite == "None" {
			c.Secure = true
		}
		out = append(out, c)
	}
	return out
}

// WithDomain 统一设置domain，path为空时补"/"
func (s CookieSet) WithDomain(domain string) CookieSet {
	out := make(CookieSet, len(s))
	for i, c := range s {
		c.Domain = domain
		if c.Path == "" {
			c.Path = "/"
		}
		out[i] = c
	}
	return out
}

// Save 清洗后以缩进JSON数组写入文件
func (s CookieSet) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "创建cookie目录失败")
		}
	}

	data, err := json.MarshalIndent(s.Sanitize(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "序列化cookies失败")
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.Wrapf(err, "写入cookie文件失败: %s", path)
	}
	return nil
}

// Playwright 转换为浏览器上下文可用的cookies，没有domain的条目使用defaultDomain
func (s CookieSet) Playwright(defaultDomain string) []playwright.OptionalCookie {
	out := make([]playwright.OptionalCookie, 0, len(s))
	for _, c := range s.Sanitize() {
		domain := c.Domain
		if domain == "" {
			domain = defaultDomain
		}
		path := c.Path
		if path == "" {
			path = "/"
		}

		oc := playwright.OptionalCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   playwright.String(domain),
			Path:     playwright.String(path),
			HttpOnly: playwright.Bool(c.HttpOnly),
			Secure:   playwright.Bool(c.Secure),
		}
		if c.Expires > 0 {
			oc.Expires = playwright.Float(c.Expires)
		}
		if sameSite := toSameSite(c.SameSite); sameSite != nil {
			oc.SameSite = sameSite
		}
		out = append(out, oc)
	}
	return out
}

// FromPlaywright 转换浏览器上下文返回的cookies
func FromPlaywright(cookies []playwright.Cookie) CookieSet {
	out := make(CookieSet, 0, len(cookies))
	for _, c := range cookies {
		cookie := Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HttpOnly: c.HttpOnly,
			Secure:   c.Secure,
		}
		if c.SameSite != nil {
			cookie.SameSite = string(*c.SameSite)
		}
		out = append(out, cookie)
	}
	return out
}

func toSameSite(s string) *playwright.SameSiteAttribute {
	switch strings.ToLower(s) {
	case "strict":
		return playwright.SameSiteAttributeStrict
	case "lax":
		return playwright.SameSiteAttributeLax
	case "none":
		return playwright.SameSiteAttributeNone
	}
	return nil
}
