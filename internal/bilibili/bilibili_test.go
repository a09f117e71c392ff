package bilibili

import (
	"testing"
	"time"
)

func TestIsValidBVID(t *testing.T) {
	tests := []struct {
		bvid string
		want bool
	}{
		{"BV1xx411c7mD", true},
		{"BV1GJ411x7h7", true},
		{"bv1xx411c7mD", false},
		{"BV1xx411c7m", false},
		{"BV1xx411c7mD1", false},
		{"BV1xx411c7m!", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValidBVID(tt.bvid); got != tt.want {
			t.Errorf("IsValidBVID(%q) = %v, want %v", tt.bvid, got, tt.want)
		}
	}
	if err := ValidateBVID("av170001"); err == nil {
		t.Error("expected error for av id")
	}
}

func TestNormalizeCVID(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"12411259", "12411259", false},
		{"cv12411259", "12411259", false},
		{" CV42 ", "42", false},
		{"cv", "", true},
		{"12a", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeCVID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeCVID(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeCVID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseMethod(t *testing.T) {
	if m, err := ParseMethod(""); err != nil || m != MethodAPI {
		t.Errorf("empty method = %q, %v", m, err)
	}
	if m, err := ParseMethod("Script"); err != nil || m != MethodScript {
		t.Errorf("Script = %q, %v", m, err)
	}
	if _, err := ParseMethod("rss"); err == nil {
		t.Error("expected error for unknown method")
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"134.5万", 1345000},
		{"4.1万", 41000},
		{"1.2亿", 120000000},
		{"3千", 3000},
		{" 987 ", 987},
		{"播放 12.3万", 123000},
		{"1,234", 1234},
		{"12,345,678", 12345678},
		{"--", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := ParseCount(tt.in); got != tt.want {
			t.Errorf("ParseCount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParsePubDate(t *testing.T) {
	loc := time.FixedZone("CST", 8*3600)
	now := time.Date(2024, 5, 20, 12, 0, 0, 0, loc)

	tests := []struct {
		in   string
		want int64
	}{
		{"2022年01月12日", time.Date(2022, 1, 12, 0, 0, 0, 0, loc).Unix()},
		{" · 03月04日", time.Date(2024, 3, 4, 0, 0, 0, 0, loc).Unix()},
		{"2023-11-02", time.Date(2023, 11, 2, 0, 0, 0, 0, loc).Unix()},
		{"05-01", time.Date(2024, 5, 1, 0, 0, 0, 0, loc).Unix()},
		{"3小时前", now.Add(-3 * time.Hour).Unix()},
		{"15分钟前", now.Add(-15 * time.Minute).Unix()},
		{"2天前", now.Add(-48 * time.Hour).Unix()},
		{"昨天", now.Add(-24 * time.Hour).Unix()},
		{"unknown", 0},
	}
	for _, tt := range tests {
		if got := ParsePubDate(tt.in, now); got != tt.want {
			t.Errorf("ParsePubDate(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestStripTags(t *testing.T) {
	in := `<em class="keyword">Go</em> 语言&amp;并发   教程`
	if got, want := StripTags(in), "Go 语言&并发 教程"; got != want {
		t.Errorf("StripTags = %q, want %q", got, want)
	}
	if got := StripTags("plain  text"); got != "plain text" {
		t.Errorf("StripTags(plain) = %q", got)
	}
}

func TestIsNotFoundPage(t *testing.T) {
	videoGone := `<html><head><title>视频去哪了呢？_哔哩哔哩_bilibili</title></head></html>`
	if !IsNotFoundPage(videoGone, PageVideo) {
		t.Error("expected video placeholder to be detected")
	}
	if IsNotFoundPage(videoGone, PageArticle) {
		t.Error("video placeholder should not count as article placeholder")
	}

	articleGone := `<html><head><title>出错啦</title></head><body>页面不存在</body></html>`
	if !IsNotFoundPage(articleGone, PageArticle) {
		t.Error("expected article placeholder to be detected")
	}

	normal := `<html><head><title>正常视频_哔哩哔哩_bilibili</title></head></html>`
	if IsNotFoundPage(normal, PageVideo) {
		t.Error("normal page flagged as not found")
	}
	if got := PageTitle(normal); got != "正常视频_哔哩哔哩_bilibili" {
		t.Errorf("PageTitle = %q", got)
	}
}

func TestAbsoluteURL(t *testing.T) {
	tests := map[string]string{
		"//i0.hdslb.com/bfs/archive/a.jpg":       "https://i0.hdslb.com/bfs/archive/a.jpg",
		"https://i0.hdslb.com/bfs/archive/a.jpg": "https://i0.hdslb.com/bfs/archive/a.jpg",
		"  ":                                     "",
	}
	for in, want := range tests {
		if got := AbsoluteURL(in); got != want {
			t.Errorf("AbsoluteURL(%q) = %q, want %q", in, got, want)
		}
	}
}
