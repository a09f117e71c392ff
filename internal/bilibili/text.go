package bilibili

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var (
	countPattern = regexp.MustCompile(`([\d.]+)\s*([十百千万亿]?)`)
	spacePattern = regexp.MustCompile(`\s+`)
	titlePattern = regexp.MustCompile(`<title[^>]*>([^<]*)</title>`)

	fullDatePattern  = regexp.MustCompile(`(\d{4})年(\d{1,2})月(\d{1,2})日`)
	monthDayPattern  = regexp.MustCompile(`(\d{1,2})月(\d{1,2})日`)
	isoDatePattern   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	shortDatePattern = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})$`)
	agoPattern       = regexp.MustCompile(`(\d+)\s*(分钟|小时|天)前`)
)

var unitMultipliers = map[string]float64{
	"十": 10,
	"百": 100,
	"千": 1000,
	"万": 10000,
	"亿": 100000000,
}

// ParseCount 解析带单位的数字文本，如 "134.5万"、"4.1万"、"1.2亿"
func ParseCount(text string) int64 {
	text = strings.NewReplacer(",", "", "，", "").Replace(strings.TrimSpace(text))
	m := countPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	if mul, ok := unitMultipliers[m[2]]; ok {
		n *= mul
	}
	return int64(math.Round(n))
}

// ParsePubDate 解析搜索页上的发布时间文本，返回unix秒，无法识别时返回0
func ParsePubDate(text string, now time.Time) int64 {
	text = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "·"))
	if text == "" {
		return 0
	}
	loc := now.Location()

	if m := fullDatePattern.FindStringSubmatch(text); m != nil {
		return dateUnix(atoi(m[1]), atoi(m[2]), atoi(m[3]), loc)
	}
	if m := monthDayPattern.FindStringSubmatch(text); m != nil {
		return dateUnix(now.Year(), atoi(m[1]), atoi(m[2]), loc)
	}
	if m := isoDatePattern.FindStringSubmatch(text); m != nil {
		return dateUnix(atoi(m[1]), atoi(m[2]), atoi(m[3]), loc)
	}
	if m := shortDatePattern.FindStringSubmatch(text); m != nil {
		return dateUnix(now.Year(), atoi(m[1]), atoi(m[2]), loc)
	}
	if m := agoPattern.FindStringSubmatch(text); m != nil {
		n := time.Duration(atoi(m[1]))
		switch m[2] {
		case "分钟":
			return now.Add(-n * time.Minute).Unix()
		case "小时":
			return now.Add(-n * time.Hour).Unix()
		case "天":
			return now.Add(-n * 24 * time.Hour).Unix()
		}
	}
	if strings.Contains(text, "昨天") {
		return now.Add(-24 * time.Hour).Unix()
	}
	if strings.Contains(text, "刚刚") {
		return now.Unix()
	}
	return 0
}

func dateUnix(year, month, day int, loc *time.Location) int64 {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc).Unix()
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// StripTags 去掉HTML标签并解码实体，连续空白合并为一个空格
func StripTags(html string) string {
	if !strings.ContainsAny(html, "<&") {
		return CollapseSpace(html)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return CollapseSpace(html)
	}
	return CollapseSpace(doc.Text())
}

// CollapseSpace 合并空白字符
func CollapseSpace(s string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}

// PageKind 页面类型，用于识别B站的占位404页面
type PageKind string

const (
	PageVideo   PageKind = "video"
	PageArticle PageKind = "article"
)

// PageTitle 提取<title>文本
func PageTitle(html string) string {
	if m := titlePattern.FindStringSubmatch(html); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// IsNotFoundPage 检测是否是B站的404占位页面
func IsNotFoundPage(html string, kind PageKind) bool {
	title := PageTitle(html)
	switch kind {
	case PageVideo:
		return title == "视频去哪了呢？_哔哩哔哩_bilibili" || strings.Contains(html, "视频去哪了呢？")
	case PageArticle:
		if strings.Contains(title, "文章去哪了呢？") || strings.Contains(title, "页面不存在") {
			return true
		}
		return strings.Contains(html, "文章去哪了呢？") || strings.Contains(html, "页面不存在")
	}
	return false
}

// AbsoluteURL 补全B站常见的协议相对地址 "//i0.hdslb.com/..."
func AbsoluteURL(u string) string {
	u = strings.TrimSpace(u)
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}
