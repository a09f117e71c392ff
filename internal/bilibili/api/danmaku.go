package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// Danmaku 获取某个分P的弹幕XML
func (c *Client) Danmaku(ctx context.Context, cid int64) (string, error) {
	params := url.Values{"oid": {strconv.FormatInt(cid, 10)}}
	headers := c.getHeaders("")
	headers["Accept"] = "application/xml, text/xml, */*"

	status, body, err := c.makeRequest(ctx, c.opts.APIURL+"/x/v1/dm/list.so", params, headers)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", &Error{StatusCode: status}
	}
	return string(body), nil
}
