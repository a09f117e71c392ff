package auth

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/api"
)

func TestLoadCookiesMissingFile(t *testing.T) {
	set, err := LoadCookies(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if len(set) != 0 || set.Header() != "" {
		t.Errorf("expected empty set, got %v", set)
	}
}

func TestParseCookiesFormats(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{
			name: "array",
			data: `[{"name":"SESSDATA","value":"abc","domain":".bilibili.com"},{"name":"bili_jct","value":"xyz"},{"value":"orphan"}]`,
			want: "SESSDATA=abc; bili_jct=xyz",
		},
		{
			name: "object",
			data: `{"cookies": "SESSDATA=abc; bili_jct=xyz"}`,
			want: "SESSDATA=abc; bili_jct=xyz",
		},
		{
			name: "string",
			data: `"SESSDATA=abc;bili_jct=xyz; ;broken"`,
			want: "SESSDATA=abc; bili_jct=xyz",
		},
		{
			name: "empty",
			data: "  ",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := ParseCookies([]byte(tt.data))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := set.Header(); got != tt.want {
				t.Errorf("Header() = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := ParseCookies([]byte("SESSDATA=abc")); err == nil {
		t.Error("expected error for bare text")
	}
}

func TestSanitize(t *testing.T) {
	set := CookieSet{
		{Name: "SESSDATA", Value: "first", Domain: ".bilibili.com", Path: "/", Expires: 1900000000.7},
		{Name: "SESSDATA", Value: "dup", Domain: ".bilibili.com"},
		{Name: "SESSDATA", Value: "other-domain", Domain: "www.bilibili.com", Path: "/"},
		{Name: "", Value: "nameless"},
		{Name: "empty", Value: ""},
		{Name: "session", Value: "1", Expires: -1},
		{Name: "cross", Value: "1", SameSite: "None"},
	}

	got := set.Sanitize()
	if len(got) != 4 {
		t.Fatalf("expected 4 cookies, got %d: %+v", len(got), got)
	}
	if got[0].Value != "first" || got[0].Expires != 1900000000 {
		t.Errorf("first cookie = %+v", got[0])
	}
	if got[1].Value != "other-domain" {
		t.Errorf("distinct domain should be kept, got %+v", got[1])
	}
	if got[2].Expires != 0 {
		t.Errorf("non-positive expires should be dropped, got %v", got[2].Expires)
	}
	if !got[3].Secure {
		t.Error("sameSite=None must force secure")
	}
}

func TestSaveWritesSanitizedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "bilibili_cookies.json")
	set := CookieSet{
		{Name: "SESSDATA", Value: "abc", Expires: -1},
		{Name: "empty", Value: ""},
	}.WithDomain(".bilibili.com")

	if err := set.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var raw []map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("saved file is not a JSON array: %v", err)
	}
	if len(raw) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(raw))
	}
	if raw[0]["domain"] != ".bilibili.com" || raw[0]["path"] != "/" {
		t.Errorf("cookie = %v", raw[0])
	}
	if _, ok := raw[0]["expires"]; ok {
		t.Error("expires should be omitted for session cookies")
	}

	loaded, err := LoadCookies(path)
	if err != nil {
		t.Fatal(err)
	}
	if !loaded.HasLogin() {
		t.Error("expected SESSDATA after reload")
	}
}

func TestPlaywrightConversion(t *testing.T) {
	set := CookieSet{
		{Name: "SESSDATA", Value: "abc", SameSite: "Lax", Expires: 1900000000},
		{Name: "buvid3", Value: "x"},
	}
	out := set.Playwright(".bilibili.com")
	if len(out) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(out))
	}
	if *out[1].Domain != ".bilibili.com" || *out[1].Path != "/" {
		t.Errorf("default domain/path not applied: %+v", out[1])
	}
	if out[0].SameSite == nil || string(*out[0].SameSite) != "Lax" {
		t.Errorf("sameSite = %v", out[0].SameSite)
	}
	if out[1].Expires != nil {
		t.Error("session cookie should not carry expires")
	}
}

type fakeNav struct {
	nav *api.NavInfo
	err error
}

func (f fakeNav) GetNavInfo(ctx context.Context) (*api.NavInfo, error) {
	return f.nav, f.err
}

func TestCheckLoginStatus(t *testing.T) {
	status, err := CheckLoginStatus(context.Background(), fakeNav{}, nil)
	if err != nil || status.HasCookies || status.IsLogin {
		t.Errorf("no cookies: status = %+v, err = %v", status, err)
	}

	nav := &api.NavInfo{IsLogin: true, Uname: "测试用户", Mid: 42}
	nav.LevelInfo.CurrentLevel = 6
	status, err = CheckLoginStatus(context.Background(), fakeNav{nav: nav}, CookieSet{{Name: "SESSDATA", Value: "a"}})
	if err != nil {
		t.Fatal(err)
	}
	if !status.IsLogin || status.Uname != "测试用户" || status.Level != 6 {
		t.Errorf("status = %+v", status)
	}
}
