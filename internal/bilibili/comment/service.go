package comment

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/api"
	"github.com/shirenchuang/bilibili-data-mcp/pkg/config"
	"github.com/shirenchuang/bilibili-data-mcp/pkg/logger"
)

const (
	mainPageSize  = 20
	replyPageSize = 10
	unknownUser   = "未知用户"
)

// Options 评论获取选项
type Options struct {
	TopK           int
	IncludeReplies bool
	// ReplyCount 每条评论最多获取的回复数
	ReplyCount int
}

// Comment 评论
type Comment struct {
	Rpid       int64   `json:"rpid"`
	User       string  `json:"user"`
	Content    string  `json:"content"`
	Like       int64   `json:"like"`
	Time       int64   `json:"time"`
	ReplyCount int     `json:"reply_count"`
	Replies    []Reply `json:"replies"`
}

// Reply 楼中楼回复
type Reply struct {
	Rpid    int64  `json:"rpid"`
	User    string `json:"user"`
	Content string `json:"content"`
	Like    int64  `json:"like"`
	Time    int64  `json:"time"`
}

// Service 评论服务
type Service struct {
	client *api.Client
	config config.CommentsConfig
}

// NewService 创建评论服务
func NewService(client *api.Client, cfg config.CommentsConfig) *Service {
	return &Service{client: client, config: cfg}
}

// List 获取视频评论，按热度排序
func (s *Service) List(ctx context.Context, bvid string, opts Options) ([]Comment, error) {
	if !s.client.HasCookie() {
		return nil, errors.New("获取评论需要提供用户cookies")
	}
	if err := bilibili.ValidateBVID(bvid); err != nil {
		return nil, err
	}

	topk := opts.TopK
	if topk <= 0 || topk > s.config.MaxComments {
		topk = s.config.MaxComments
	}
	replyLimit := opts.ReplyCount
	if replyLimit > s.config.MaxReplies {
		replyLimit = s.config.MaxReplies
	}

	view, err := s.client.GetVideoView(ctx, bvid)
	if err != nil {
		return nil, errors.Wrapf(err, "无法获取视频AID: %s", bvid)
	}

	raw, err := s.fetchMain(ctx, view.Aid, topk)
	if err != nil {
		return nil, err
	}

	comments := make([]Comment, 0, len(raw))
	for _, r := range raw {
		c := Comment{
			Rpid:       r.Rpid,
			User:       userName(r),
			Content:    r.Content.Message,
			Like:       r.Like,
			Time:       r.Ctime,
			ReplyCount: r.Rcount,
			Replies:    []Reply{},
		}
		if opts.IncludeReplies && replyLimit > 0 && r.Rcount > 0 {
			if c.Replies, err = s.fetchReplies(ctx, view.Aid, r.Rpid, replyLimit); err != nil {
				return nil, err
			}
		}
		comments = append(comments, c)
	}
	// 回复请求失败只记日志，取消需要单独报告
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "请求被取消")
	}

	logger.WithField("bvid", bvid).Infof("获取到%d条评论 (请求%d条)", len(comments), opts.TopK)
	return comments, nil
}

// fetchMain 逐页获取主评论，直到凑够topk、遇到空页或达到最大页数
func (s *Service) fetchMain(ctx context.Context, aid int64, topk int) ([]api.Reply, error) {
	pageSize := topk
	if pageSize > mainPageSize {
		pageSize = mainPageSize
	}

	var replies []api.Reply
	for page := 1; len(replies) < topk && page <= s.config.MaxPages; page++ {
		if page > 1 {
			if err := sleep(ctx, s.config.PageDelay); err != nil {
				return nil, err
			}
		}

		data, err := s.client.MainReplies(ctx, aid, page, pageSize)
		if err != nil {
			if page == 1 {
				return nil, errors.Wrap(err, "获取评论失败")
			}
			logger.Warnf("获取第%d页评论失败，停止翻页: %v", page, err)
			break
		}
		if len(data.Replies) == 0 {
			logger.Debugf("第%d页没有更多评论，停止获取", page)
			break
		}

		replies = append(replies, data.Replies...)
		logger.Debugf("第%d页获取到%d条评论，总计%d条", page, len(data.Replies), len(replies))
		if data.Cursor.IsEnd {
			break
		}
	}

	if len(replies) > topk {
		replies = replies[:topk]
	}
	return replies, nil
}

// fetchReplies 获取某条评论下的回复，请求失败时记录日志并返回空列表，只有取消才返回错误
func (s *Service) fetchReplies(ctx context.Context, aid, root int64, limit int) ([]Reply, error) {
	replies := []Reply{}
	for page := 1; len(replies) < limit; page++ {
		if err := sleep(ctx, s.config.PageDelay); err != nil {
			return nil, err
		}

		data, err := s.client.SubReplies(ctx, aid, root, page, replyPageSize)
		if err != nil {
			logger.Warnf("获取评论 %d 的回复失败: %v", root, err)
			return []Reply{}, nil
		}
		if len(data.Replies) == 0 {
			break
		}
		for _, r := range data.Replies {
			if len(replies) >= limit {
				break
			}
			replies = append(replies, Reply{
				Rpid:    r.Rpid,
				User:    userName(r),
				Content: r.Content.Message,
				Like:    r.Like,
				Time:    r.Ctime,
			})
		}
		if len(data.Replies) < replyPageSize {
			break
		}
	}
	return replies, nil
}

func userName(r api.Reply) string {
	if r.Member.Uname == "" {
		return unknownUser
	}
	return r.Member.Uname
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "请求被取消")
	}
}
