package danmaku

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/api"
	"github.com/shirenchuang/bilibili-data-mcp/pkg/logger"
)

// Result 弹幕结果
type Result struct {
	Bvid       string `json:"bvid"`
	Cid        int64  `json:"cid"`
	DanmakuXML string `json:"danmaku_xml"`
	Count      int    `json:"count"`
}

// Service 弹幕服务
type Service struct {
	client *api.Client
}

// NewService 创建弹幕服务
func NewService(client *api.Client) *Service {
	return &Service{client: client}
}

// Get 获取视频弹幕，cid为空时取第一个分P
func (s *Service) Get(ctx context.Context, bvid, cid string) (*Result, error) {
	if err := bilibili.ValidateBVID(bvid); err != nil {
		return nil, err
	}

	oid, err := s.resolveCid(ctx, bvid, strings.TrimSpace(cid))
	if err != nil {
		return nil, err
	}
	logger.Infof("获取弹幕: %s (cid=%d)", bvid, oid)

	xml, err := s.client.Danmaku(ctx, oid)
	if err != nil {
		return nil, errors.Wrap(err, "获取弹幕失败")
	}
	return &Result{
		Bvid:       bvid,
		Cid:        oid,
		DanmakuXML: xml,
		Count:      strings.Count(xml, "<d p="),
	}, nil
}

func (s *Service) resolveCid(ctx context.Context, bvid, cid string) (int64, error) {
	if cid != "" {
		oid, err := strconv.ParseInt(cid, 10, 64)
		if err != nil || oid <= 0 {
			return 0, errors.Errorf("无效的CID: %s", cid)
		}
		return oid, nil
	}

	view, err := s.client.GetVideoView(ctx, bvid)
	if err != nil {
		return 0, errors.Wrap(err, "无法获取视频信息")
	}
	oid := view.FirstCid()
	if oid == 0 {
		return 0, errors.New("无法获取视频CID")
	}
	return oid, nil
}
