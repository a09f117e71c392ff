package comment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/api"
	"github.com/shirenchuang/bilibili-data-mcp/pkg/config"
)

const testBVID = "BV1xx411c7mD"

var testConfig = config.CommentsConfig{
	MaxComments: 100,
	MaxPages:    5,
	MaxReplies:  10,
}

// fakeBilibili 模拟评论相关接口，total 为主评论总数，每条评论有 rcount 条回复
type fakeBilibili struct {
	t          *testing.T
	total      int
	rcount     int
	mainPages  []int
	replyRoots []string
	failReply  bool
	// onReply 在每次回复请求时调用
	onReply  func()
	requests []request
}

type request struct {
	path string
	at   time.Time
}

func (f *fakeBilibili) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f.requests = append(f.requests, request{path: r.URL.Path, at: time.Now()})
	switch r.URL.Path {
	case "/x/web-interface/view":
		fmt.Fprint(w, `{"code":0,"data":{"aid":170001,"bvid":"BV1xx411c7mD"}}`)
	case "/x/v2/reply/main":
		if q.Get("oid") != "170001" {
			f.t.Errorf("oid = %s", q.Get("oid"))
		}
		pn, _ := strconv.Atoi(q.Get("pn"))
		ps, _ := strconv.Atoi(q.Get("ps"))
		f.mainPages = append(f.mainPages, pn)
		var replies []map[string]interface{}
		for i := (pn - 1) * ps; i < pn*ps && i < f.total; i++ {
			replies = append(replies, map[string]interface{}{
				"rpid":    1000 + i,
				"like":    i,
				"ctime":   1600000000 + i,
				"rcount":  f.rcount,
				"member":  map[string]string{"uname": fmt.Sprintf("用户%d", i)},
				"content": map[string]string{"message": fmt.Sprintf("评论%d", i)},
			})
		}
		writeData(w, map[string]interface{}{"replies": replies})
	case "/x/v2/reply/reply":
		f.replyRoots = append(f.replyRoots, q.Get("root"))
		if f.onReply != nil {
			f.onReply()
		}
		if f.failReply {
			w.WriteHeader(http.StatusPreconditionFailed)
			return
		}
		pn, _ := strconv.Atoi(q.Get("pn"))
		ps, _ := strconv.Atoi(q.Get("ps"))
		var replies []map[string]interface{}
		for i := (pn - 1) * ps; i < pn*ps && i < f.rcount; i++ {
			replies = append(replies, map[string]interface{}{
				"rpid":    5000 + i,
				"like":    1,
				"ctime":   1600000100,
				"member":  map[string]string{},
				"content": map[string]string{"message": fmt.Sprintf("回复%d", i)},
			})
		}
		writeData(w, map[string]interface{}{"replies": replies})
	default:
		f.t.Errorf("unexpected path %s", r.URL.Path)
	}
}

func writeData(w http.ResponseWriter, data interface{}) {
	json.NewEncoder(w).Encode(map[string]interface{}{"code": 0, "data": data})
}

func newTestService(t *testing.T, fake *fakeBilibili, cookie string) *Service {
	t.Helper()
	return newTestServiceWith(t, fake, cookie, testConfig)
}

func newTestServiceWith(t *testing.T, fake *fakeBilibili, cookie string, cfg config.CommentsConfig) *Service {
	t.Helper()
	fake.t = t
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	client := api.NewClient(api.Options{BaseURL: srv.URL, APIURL: srv.URL, Cookie: cookie})
	return NewService(client, cfg)
}

func TestListRequiresCookies(t *testing.T) {
	svc := newTestService(t, &fakeBilibili{}, "")
	_, err := svc.List(context.Background(), testBVID, Options{TopK: 20})
	if err == nil || err.Error() != "获取评论需要提供用户cookies" {
		t.Errorf("err = %v", err)
	}
}

func TestListInvalidBVID(t *testing.T) {
	svc := newTestService(t, &fakeBilibili{}, "SESSDATA=abc")
	_, err := svc.List(context.Background(), "BV1", Options{TopK: 20})
	if err == nil || !strings.Contains(err.Error(), "无效的BV号格式") {
		t.Errorf("err = %v", err)
	}
}

func TestListPagesUntilTopK(t *testing.T) {
	fake := &fakeBilibili{total: 45}
	svc := newTestService(t, fake, "SESSDATA=abc")

	comments, err := svc.List(context.Background(), testBVID, Options{TopK: 30})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(comments) != 30 {
		t.Fatalf("expected 30 comments, got %d", len(comments))
	}
	if fmt.Sprint(fake.mainPages) != "[1 2]" {
		t.Errorf("pages requested = %v", fake.mainPages)
	}
	first := comments[0]
	if first.Rpid != 1000 || first.User != "用户0" || first.Content != "评论0" || first.Time != 1600000000 {
		t.Errorf("first = %+v", first)
	}
	if first.Replies == nil || len(first.Replies) != 0 {
		t.Errorf("replies should be an empty list, got %v", first.Replies)
	}
	if len(fake.replyRoots) != 0 {
		t.Errorf("replies requested without include_replies: %v", fake.replyRoots)
	}
}

func TestListStopsAtEmptyPageAndCapsTopK(t *testing.T) {
	fake := &fakeBilibili{total: 25}
	svc := newTestService(t, fake, "SESSDATA=abc")

	comments, err := svc.List(context.Background(), testBVID, Options{TopK: 500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(comments) != 25 {
		t.Errorf("expected 25 comments, got %d", len(comments))
	}
	if fmt.Sprint(fake.mainPages) != "[1 2 3]" {
		t.Errorf("pages requested = %v", fake.mainPages)
	}
}

func TestListIncludesReplies(t *testing.T) {
	fake := &fakeBilibili{total: 2, rcount: 15}
	svc := newTestService(t, fake, "SESSDATA=abc")

	comments, err := svc.List(context.Background(), testBVID, Options{TopK: 2, IncludeReplies: true, ReplyCount: 12})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range comments {
		if c.ReplyCount != 15 {
			t.Errorf("reply_count = %d", c.ReplyCount)
		}
		if len(c.Replies) != testConfig.MaxReplies {
			t.Errorf("replies should be capped at %d, got %d", testConfig.MaxReplies, len(c.Replies))
		}
	}
	reply := comments[0].Replies[0]
	if reply.User != "未知用户" || reply.Content != "回复0" || reply.Rpid != 5000 {
		t.Errorf("reply = %+v", reply)
	}
	if fmt.Sprint(fake.replyRoots) != "[1000 1001]" {
		t.Errorf("reply roots = %v", fake.replyRoots)
	}
}

func TestListReplyFailureYieldsEmptyReplies(t *testing.T) {
	fake := &fakeBilibili{total: 1, rcount: 3, failReply: true}
	svc := newTestService(t, fake, "SESSDATA=abc")

	comments, err := svc.List(context.Background(), testBVID, Options{TopK: 5, IncludeReplies: true, ReplyCount: 5})
	if err != nil {
		t.Fatalf("reply failure should not fail the call: %v", err)
	}
	if len(comments) != 1 || comments[0].Replies == nil || len(comments[0].Replies) != 0 {
		t.Errorf("comments = %+v", comments)
	}
}

func TestListMainFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/x/web-interface/view" {
			fmt.Fprint(w, `{"code":0,"data":{"aid":1}}`)
			return
		}
		fmt.Fprint(w, `{"code":-101,"message":"账号未登录"}`)
	}))
	defer srv.Close()
	svc := NewService(api.NewClient(api.Options{BaseURL: srv.URL, APIURL: srv.URL, Cookie: "SESSDATA=expired"}), testConfig)

	_, err := svc.List(context.Background(), testBVID, Options{TopK: 5})
	if err == nil || !strings.Contains(err.Error(), "账号未登录") {
		t.Errorf("err = %v", err)
	}
}

func TestListStopsAtMaxPages(t *testing.T) {
	cfg := testConfig
	cfg.MaxPages = 2
	fake := &fakeBilibili{total: 500}
	svc := newTestServiceWith(t, fake, "SESSDATA=abc", cfg)

	comments, err := svc.List(context.Background(), testBVID, Options{TopK: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fmt.Sprint(fake.mainPages) != "[1 2]" {
		t.Errorf("pages requested = %v", fake.mainPages)
	}
	if len(comments) != 2*mainPageSize {
		t.Errorf("expected %d comments, got %d", 2*mainPageSize, len(comments))
	}
}

func TestListWaitsPageDelay(t *testing.T) {
	const delay = 20 * time.Millisecond
	cfg := testConfig
	cfg.PageDelay = delay
	fake := &fakeBilibili{total: 21, rcount: 3}
	svc := newTestServiceWith(t, fake, "SESSDATA=abc", cfg)

	comments, err := svc.List(context.Background(), testBVID, Options{TopK: 21, IncludeReplies: true, ReplyCount: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(comments) != 21 || len(comments[20].Replies) != 3 {
		t.Fatalf("comments = %d, last replies = %v", len(comments), comments[len(comments)-1].Replies)
	}
	if fmt.Sprint(fake.mainPages) != "[1 2]" || len(fake.replyRoots) != 21 {
		t.Fatalf("main pages = %v, reply requests = %d", fake.mainPages, len(fake.replyRoots))
	}

	// view 和第一页之间不等待，之后每次请求前都等待 page_delay
	for i := 2; i < len(fake.requests); i++ {
		gap := fake.requests[i].at.Sub(fake.requests[i-1].at)
		if gap < delay {
			t.Errorf("request %d (%s) sent %v after the previous one, want >= %v", i, fake.requests[i].path, gap, delay)
		}
	}
}

func TestListReportsCancellationDuringReplies(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fake := &fakeBilibili{total: 2, rcount: 5, onReply: cancel}
	svc := newTestService(t, fake, "SESSDATA=abc")

	comments, err := svc.List(ctx, testBVID, Options{TopK: 2, IncludeReplies: true, ReplyCount: 5})
	if err == nil {
		t.Fatalf("expected cancellation error, got %d comments", len(comments))
	}
	if errors.Cause(err) != context.Canceled {
		t.Errorf("err = %v", err)
	}
}
