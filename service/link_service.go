package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/cydxin/sitenotice-sdk/cons"
	"github.com/cydxin/sitenotice-sdk/models"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"gorm.io/gorm"
)

// LinkService 公告内容超链接的提取/改写与点击追踪。
// 改写约定（与保存内容同事务执行）：
// - 每个 <a> 按 (notice_id, trim(文本), trim(href)) 匹配既有记录，命中复用 id，否则新建
// - 锚点写回 data-linkid 与 target=_blank，渲染层据此接点击上报
// - 本轮未匹配到的旧记录删除；点击历史按配置级联
// - 幂等：对已改写内容重跑不产生新记录，id 不漂移（匹配只看文本+href，忽略其他属性）
type LinkService struct{ *Service }

func NewLinkService(s *Service) *LinkService { return &LinkService{Service: s} }

const (
	attrLinkID = "data-linkid"
	attrTarget = "target"
)

// RewriteAnchors 对 content 中所有 <a> 调用 assign 拿到链接 id 并写回属性。
// 纯文本变换，不碰数据库；id 分配策略由 assign 决定。
func RewriteAnchors(content string, assign func(text, link string) (uint64, error)) (string, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(content), body)
	if err != nil {
		return "", err
	}

	var walk func(n *html.Node) error
	walk = func(n *html.Node) error {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			text := strings.TrimSpace(anchorText(n))
			link := strings.TrimSpace(attrValue(n, "href"))
			id, err := assign(text, link)
			if err != nil {
				return err
			}
			setAttr(n, attrLinkID, strconv.FormatUint(id, 10))
			setAttr(n, attrTarget, "_blank")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}

	var sb strings.Builder
	for _, n := range nodes {
		if err := walk(n); err != nil {
			return "", err
		}
		if err := html.Render(&sb, n); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

// RewriteContent 在 tx 内改写公告内容并同步链接表。
// 返回带 data-linkid 的 HTML；同内容重复保存返回相同的 id 分配。
func (s *LinkService) RewriteContent(tx *gorm.DB, noticeID uint64, content string) (string, error) {
	var existing []models.NoticeLink
	if err := tx.Model(&models.NoticeLink{}).
		Where("notice_id = ?", noticeID).
		Order("id asc").
		Find(&existing).Error; err != nil {
		return "", err
	}

	byKey := make(map[string]*models.NoticeLink, len(existing))
	for i := range existing {
		byKey[linkKey(existing[i].Text, existing[i].Link)] = &existing[i]
	}

	used := make(map[uint64]struct{})
	rewritten, err := RewriteAnchors(content, func(text, link string) (uint64, error) {
		key := linkKey(text, link)
		if l, ok := byKey[key]; ok {
			used[l.ID] = struct{}{}
			return l.ID, nil
		}
		l := &models.NoticeLink{NoticeID: noticeID, Text: text, Link: link, CreatedAt: time.Now()}
		if err := tx.Create(l).Error; err != nil {
			return 0, err
		}
		byKey[key] = l
		used[l.ID] = struct{}{}
		return l.ID, nil
	})
	if err != nil {
		return "", err
	}

	// 删除本轮未出现的旧链接
	var stale []uint64
	for i := range existing {
		if _, ok := used[existing[i].ID]; !ok {
			stale = append(stale, existing[i].ID)
		}
	}
	if len(stale) > 0 {
		if err := tx.Where("id IN ?", stale).Delete(&models.NoticeLink{}).Error; err != nil {
			return "", err
		}
		if s.CleanupLinkHistory {
			if err := tx.Where("hlink_id IN ?", stale).Delete(&models.LinkClick{}).Error; err != nil {
				return "", err
			}
		}
	}

	return rewritten, nil
}

// TrackLink 记录一次链接点击。linkID 不存在返回 ErrLinkNotFound。
func (s *LinkService) TrackLink(ctx context.Context, linkID, userID uint64) error {
	if linkID == 0 || userID == 0 {
		return errors.New("link_id and user_id are required")
	}

	var link models.NoticeLink
	if err := s.DB.WithContext(ctx).First(&link, linkID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLinkNotFound
		}
		return err
	}

	click := &models.LinkClick{HlinkID: linkID, UserID: userID, TimeClicked: time.Now()}
	if err := s.DB.WithContext(ctx).Create(click).Error; err != nil {
		return err
	}

	s.dispatch(NoticeEvent{
		Type:     cons.EventNoticeLinkClicked,
		NoticeID: link.NoticeID,
		UserID:   userID,
		Time:     click.TimeClicked,
	})
	return nil
}

// ListNoticeLinks 获取公告全部链接（报表用）。
func (s *LinkService) ListNoticeLinks(noticeID uint64) ([]models.NoticeLink, error) {
	var links []models.NoticeLink
	err := s.DB.Model(&models.NoticeLink{}).
		Where("notice_id = ?", noticeID).
		Order("id asc").
		Find(&links).Error
	return links, err
}

func linkKey(text, link string) string {
	return text + "\x00" + link
}

// anchorText 拼接锚点下所有文本节点（对应渲染后的可见文本）。
func anchorText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		for cc := c.FirstChild; cc != nil; cc = cc.NextSibling {
			walk(cc)
		}
	}
	walk(n)
	return sb.String()
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

