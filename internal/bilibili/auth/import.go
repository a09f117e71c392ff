package auth

import (
	"bufio"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shirenchuang/bilibili-data-mcp/pkg/logger"
	_ "modernc.org/sqlite"
)

// StoreFormat 浏览器cookie存储格式
type StoreFormat string

const (
	FormatUnknown  StoreFormat = ""
	FormatFirefox  StoreFormat = "firefox"
	FormatChrome   StoreFormat = "chrome"
	FormatNetscape StoreFormat = "netscape"
)

// ImportSource 导入来源
type ImportSource struct {
	Path    string
	Format  StoreFormat
	Browser string
}

var sqliteMagic = []byte("SQLite format 3\x00")

// chromeEpochOffset 1601-01-01 到 1970-01-01 的秒数
const chromeEpochOffset int64 = 11_644_473_600

// ImportCookies 从本地浏览器cookie库或Netscape cookies.txt导入指定域名的cookies
func ImportCookies(path, domain string) (CookieSet, *ImportSource, error) {
	domain = strings.TrimPrefix(domain, ".")
	format, err := DetectFormat(path)
	if err != nil {
		return nil, nil, err
	}

	source := &ImportSource{Path: path, Format: format}
	var cookies CookieSet

	switch format {
	case FormatFirefox:
		source.Browser = "Firefox"
		cookies, err = importSQLite(path, domain, parseFirefox)
	case FormatChrome:
		source.Browser = "Chrome"
		cookies, err = importSQLite(path, domain, parseChrome)
	case FormatNetscape:
		source.Browser = "Netscape"
		cookies, err = parseNetscape(path, domain)
	default:
		return nil, nil, errors.Errorf("不支持的cookie存储格式: %s", path)
	}
	if err != nil {
		return nil, nil, err
	}
	return cookies, source, nil
}

// DetectFormat 根据文件头和表结构判断cookie存储格式
func DetectFormat(path string) (StoreFormat, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FormatUnknown, errors.Errorf("cookie文件不存在: %s", path)
	}
	if info.IsDir() {
		return FormatUnknown, errors.Errorf("%s 是目录，需要cookie文件路径或 auto", path)
	}
	if info.Size() == 0 {
		return FormatUnknown, errors.Errorf("cookie文件为空: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, errors.Wrap(err, "打开cookie文件失败")
	}
	defer f.Close()

	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	head = head[:n]

	if n >= len(sqliteMagic) && string(head[:len(sqliteMagic)]) == string(sqliteMagic) {
		return detectSQLiteFormat(path)
	}

	firstLine := string(head)
	if idx := strings.IndexByte(firstLine, '\n'); idx >= 0 {
		firstLine = firstLine[:idx]
	}
	firstLine = strings.TrimRight(firstLine, "\r")
	if firstLine == "# Netscape HTTP Cookie File" || firstLine == "# HTTP Cookie File" {
		return FormatNetscape, nil
	}
	return FormatUnknown, errors.Errorf("不支持的cookie存储格式: %s", path)
}

func detectSQLiteFormat(path string) (StoreFormat, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return FormatUnknown, errors.Wrap(err, "打开SQLite数据库失败")
	}
	defer db.Close()

	var name string
	if err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='moz_cookies'`).Scan(&name); err == nil {
		return FormatFirefox, nil
	}
	if err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='cookies'`).Scan(&name); err == nil {
		return FormatChrome, nil
	}
	return FormatUnknown, errors.Errorf("不支持的cookie数据库结构: %s", path)
}

// importSQLite 先把数据库复制到临时目录再读取，避免和正在运行的浏览器抢锁
func importSQLite(path, domain string, parse func(string, string) (CookieSet, error)) (CookieSet, error) {
	tempDir, err := os.MkdirTemp("", "bilibili-cookies-*")
	if err != nil {
		return nil, errors.Wrap(err, "创建临时目录失败")
	}
	defer os.RemoveAll(tempDir)

	copied := filepath.Join(tempDir, filepath.Base(path))
	if err := copyFile(path, copied); err != nil {
		return nil, err
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if _, err := os.Stat(path + suffix); err == nil {
			_ = copyFile(path+suffix, copied+suffix)
		}
	}
	return parse(copied, domain)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "打开文件失败: %s", src)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return errors.Wrapf(err, "创建文件失败: %s", dst)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return errors.Wrap(err, "复制文件失败")
	}
	return nil
}

func parseFirefox(dbPath, domain string) (CookieSet, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?immutable=1", dbPath))
	if err != nil {
		return nil, errors.Wrap(err, "打开Firefox cookie数据库失败")
	}
	defer db.Close()

	rows, err := db.Query(`
        SELECT name, value, host, path, expiry, isSecure, isHttpOnly
        FROM moz_cookies
        WHERE (host = ? OR host = ? OR host LIKE ?)
          AND expiry > ?
        ORDER BY path DESC, name ASC
    `, domain, "."+domain, "%."+domain, time.Now().Unix())
	if err != nil {
		return nil, errors.Wrap(err, "查询Firefox cookies失败")
	}
	defer rows.Close()

	var cookies CookieSet
	for rows.Next() {
		var (
			name, value, host, path string
			expiry                  int64
			secure, httpOnly        int
		)
		if err := rows.Scan(&name, &value, &host, &path, &expiry, &secure, &httpOnly); err != nil {
			return nil, errors.Wrap(err, "读取Firefox cookie失败")
		}
		cookies = append(cookies, Cookie{
			Name:     name,
			Value:    value,
			Domain:   host,
			Path:     path,
			Expires:  float64(expiry),
			Secure:   secure != 0,
			HttpOnly: httpOnly != 0,
		})
	}
	return cookies, errors.Wrap(rows.Err(), "遍历Firefox cookies失败")
}

// parseChrome 只读取未加密的cookie，加密的value为空会被跳过
func parseChrome(dbPath, domain string) (CookieSet, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?immutable=1", dbPath))
	if err != nil {
		return nil, errors.Wrap(err, "打开Chrome cookie数据库失败")
	}
	defer db.Close()

	nowChrome := (time.Now().Unix() + chromeEpochOffset) * 1_000_000
	rows, err := db.Query(`
        SELECT name, value, host_key, path, expires_utc, is_secure, is_httponly
        FROM cookies
        WHERE (host_key = ? OR host_key = ? OR host_key LIKE ?)
          AND value != ''
          AND expires_utc > ?
        ORDER BY path DESC, name ASC
    `, domain, "."+domain, "%."+domain, nowChrome)
	if err != nil {
		return nil, errors.Wrap(err, "查询Chrome cookies失败")
	}
	defer rows.Close()

	var cookies CookieSet
	for rows.Next() {
		var (
			name, value, host, path string
			expiresUTC              int64
			secure, httpOnly        int
		)
		if err := rows.Scan(&name, &value, &host, &path, &expiresUTC, &secure, &httpOnly); err != nil {
			return nil, errors.Wrap(err, "读取Chrome cookie失败")
		}
		cookies = append(cookies, Cookie{
			Name:     name,
			Value:    value,
			Domain:   host,
			Path:     path,
			Expires:  float64(expiresUTC/1_000_000 - chromeEpochOffset),
			Secure:   secure != 0,
			HttpOnly: httpOnly != 0,
		})
	}
	return cookies, errors.Wrap(rows.Err(), "遍历Chrome cookies失败")
}

func parseNetscape(path, domain string) (CookieSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "打开cookies.txt失败")
	}
	defer f.Close()

	now := time.Now().Unix()
	var cookies CookieSet

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		httpOnly := false
		if strings.HasPrefix(line, "#HttpOnly_") {
			httpOnly = true
			line = strings.TrimPrefix(line, "#HttpOnly_")
		} else if strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			logger.Warnf("跳过格式错误的cookie行: %q", line)
			continue
		}
		expiry, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			logger.Warnf("跳过expires无效的cookie: %q", fields[4])
			continue
		}
		if !matchesDomain(fields[0], domain) {
			continue
		}
		if expiry > 0 && expiry < now {
			continue
		}

		cookies = append(cookies, Cookie{
			Name:     fields[5],
			Value:    fields[6],
			Domain:   fields[0],
			Path:     fields[2],
			Expires:  float64(expiry),
			Secure:   strings.EqualFold(fields[3], "TRUE"),
			HttpOnly: httpOnly,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "读取cookies.txt失败")
	}
	return cookies, nil
}

func matchesDomain(cookieDomain, domain string) bool {
	cookieDomain = strings.TrimPrefix(cookieDomain, ".")
	return cookieDomain == domain || strings.HasSuffix(cookieDomain, "."+domain)
}

// DetectBrowserCookies 按 Firefox > Chrome > Chromium > Edge 的顺序查找本机cookie库并导入
func DetectBrowserCookies(domain string) (CookieSet, *ImportSource, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, nil, errors.Wrap(err, "无法获取用户目录")
	}
	return detectIn(candidateStores(home), domain)
}

type storeCandidate struct {
	browser string
	path    string
}

func detectIn(candidates []storeCandidate, domain string) (CookieSet, *ImportSource, error) {
	for _, c := range candidates {
		if _, err := os.Stat(c.path); err != nil {
			continue
		}
		cookies, source, err := ImportCookies(c.path, domain)
		if err != nil {
			logger.Debugf("读取 %s cookie库失败: %v", c.browser, err)
			continue
		}
		source.Browser = c.browser
		return cookies, source, nil
	}
	return nil, nil, errors.New("没有找到可用的浏览器cookie库 (已尝试 Firefox, Chrome, Chromium, Edge)")
}

func candidateStores(home string) []storeCandidate {
	var candidates []storeCandidate

	var firefoxRoots, chromeRoots []storeCandidate
	switch runtime.GOOS {
	case "darwin":
		support := filepath.Join(home, "Library", "Application Support")
		firefoxRoots = []storeCandidate{{"Firefox", filepath.Join(support, "Firefox", "Profiles")}}
		chromeRoots = []storeCandidate{
			{"Chrome", filepath.Join(support, "Google", "Chrome", "Default")},
			{"Chromium", filepath.Join(support, "Chromium", "Default")},
			{"Edge", filepath.Join(support, "Microsoft Edge", "Default")},
		}
	case "windows":
		appData := os.Getenv("APPDATA")
		local := os.Getenv("LOCALAPPDATA")
		firefoxRoots = []storeCandidate{{"Firefox", filepath.Join(appData, "Mozilla", "Firefox", "Profiles")}}
		chromeRoots = []storeCandidate{
			{"Chrome", filepath.Join(local, "Google", "Chrome", "User Data", "Default", "Network")},
			{"Edge", filepath.Join(local, "Microsoft", "Edge", "User Data", "Default", "Network")},
		}
	default:
		firefoxRoots = []storeCandidate{
			{"Firefox", filepath.Join(home, ".mozilla", "firefox")},
			{"Firefox", filepath.Join(home, "snap", "firefox", "common", ".mozilla", "firefox")},
		}
		chromeRoots = []storeCandidate{
			{"Chrome", filepath.Join(home, ".config", "google-chrome", "Default")},
			{"Chromium", filepath.Join(home, ".config", "chromium", "Default")},
			{"Edge", filepath.Join(home, ".config", "microsoft-edge", "Default")},
		}
	}

	for _, root := range firefoxRoots {
		matches, _ := filepath.Glob(filepath.Join(root.path, "*", "cookies.sqlite"))
		for _, m := range matches {
			candidates = append(candidates, storeCandidate{root.browser, m})
		}
	}
	for _, root := range chromeRoots {
		candidates = append(candidates, storeCandidate{root.browser, filepath.Join(root.path, "Cookies")})
	}
	return candidates
}
