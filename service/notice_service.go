package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cydxin/sitenotice-sdk/cons"
	"github.com/cydxin/sitenotice-sdk/models"
	"gorm.io/gorm"
)

// NoticeService 公告的管理端生命周期：创建/编辑/重置/启停/删除。
// 约定：
// - 输入在边界处一次性校验（显式类型化入参，不传松散字典）
// - 内容保存与链接改写同事务
// - 每个写操作以显式的缓存失效结尾（直接调用，不走隐式 hook），随后分发事件、广播刷新
type NoticeService struct {
	*Service
	Links *LinkService
}

func NewNoticeService(s *Service, links *LinkService) *NoticeService {
	return &NoticeService{Service: s, Links: links}
}

// CreateNoticeInput 创建公告入参。Enabled 缺省为启用。
type CreateNoticeInput struct {
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	Cohorts       []uint64 `json:"cohorts"`
	ReqAck        bool     `json:"reqack"`
	ReqCourse     uint64   `json:"reqcourse"`
	ForceLogout   bool     `json:"forcelogout"`
	Enabled       *bool    `json:"enabled"`
	ResetInterval int64    `json:"resetinterval"`
	TimeStart     int64    `json:"timestart"`
	TimeEnd       int64    `json:"timeend"`
}

// UpdateNoticeInput 编辑公告入参（整体替换语义）。
type UpdateNoticeInput struct {
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	Cohorts       []uint64 `json:"cohorts"`
	ReqAck        bool     `json:"reqack"`
	ReqCourse     uint64   `json:"reqcourse"`
	ForceLogout   bool     `json:"forcelogout"`
	Enabled       bool     `json:"enabled"`
	ResetInterval int64    `json:"resetinterval"`
	TimeStart     int64    `json:"timestart"`
	TimeEnd       int64    `json:"timeend"`
}

// validateNoticeFields 字段校验，违规的公告不落库。
func validateNoticeFields(title, content string, resetInterval, timeStart, timeEnd int64) error {
	if title == "" {
		return errors.New("title is required")
	}
	if content == "" {
		return errors.New("content is required")
	}
	if resetInterval < 0 {
		return errors.New("resetinterval must not be negative")
	}
	// 时间窗要么都为 0（永久），要么都非 0 且 start < end
	if timeStart == 0 && timeEnd == 0 {
		return nil
	}
	if timeStart == 0 || timeEnd == 0 {
		return errors.New("timestart and timeend must both be set or both be zero")
	}
	if timeStart >= timeEnd {
		return errors.New("timestart must be before timeend")
	}
	return nil
}

// Create 创建公告并改写内容中的超链接。
func (s *NoticeService) Create(ctx context.Context, actorID uint64, in CreateNoticeInput) (*models.SiteNotice, error) {
	if !s.isAdmin(actorID) {
		return nil, ErrPermissionDenied
	}
	if err := validateNoticeFields(in.Title, in.Content, in.ResetInterval, in.TimeStart, in.TimeEnd); err != nil {
		return nil, err
	}

	enabled := true
	if in.Enabled != nil {
		enabled = *in.Enabled
	}

	notice := &models.SiteNotice{
		Title:         in.Title,
		Content:       in.Content,
		ReqAck:        in.ReqAck,
		ReqCourse:     in.ReqCourse,
		ForceLogout:   in.ForceLogout,
		Enabled:       enabled,
		ResetInterval: in.ResetInterval,
		TimeStart:     in.TimeStart,
		TimeEnd:       in.TimeEnd,
	}
	if err := notice.SetCohortIDs(in.Cohorts); err != nil {
		return nil, err
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(notice).Error; err != nil {
			return err
		}
		rewritten, err := s.Links.RewriteContent(tx, notice.ID, notice.Content)
		if err != nil {
			return err
		}
		notice.Content = rewritten
		return tx.Model(&models.SiteNotice{}).
			Where("id = ?", notice.ID).
			Update("content", rewritten).Error
	})
	if err != nil {
		return nil, err
	}

	s.afterMutation(ctx, cons.EventNoticeCreated, notice.ID, actorID)
	return notice, nil
}

// Update 编辑公告。内容变化会重新匹配链接记录（复用 id，删除消失的）。
func (s *NoticeService) Update(ctx context.Context, actorID, noticeID uint64, in UpdateNoticeInput) (*models.SiteNotice, error) {
	if !s.isAdmin(actorID) {
		return nil, ErrPermissionDenied
	}
	if err := validateNoticeFields(in.Title, in.Content, in.ResetInterval, in.TimeStart, in.TimeEnd); err != nil {
		return nil, err
	}

	notice, err := s.Get(ctx, noticeID)
	if err != nil {
		return nil, err
	}

	notice.Title = in.Title
	notice.ReqAck = in.ReqAck
	notice.ReqCourse = in.ReqCourse
	notice.ForceLogout = in.ForceLogout
	notice.Enabled = in.Enabled
	notice.ResetInterval = in.ResetInterval
	notice.TimeStart = in.TimeStart
	notice.TimeEnd = in.TimeEnd
	if err := notice.SetCohortIDs(in.Cohorts); err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rewritten, err := s.Links.RewriteContent(tx, notice.ID, in.Content)
		if err != nil {
			return err
		}
		notice.Content = rewritten
		// Save 刷新 UpdatedAt，既有交互记录随之全部过期
		return tx.Save(notice).Error
	})
	if err != nil {
		return nil, err
	}

	s.afterMutation(ctx, cons.EventNoticeUpdated, notice.ID, actorID)
	return notice, nil
}

// Reset 重置公告：只刷新修改时间，让所有用户重新看到它。
func (s *NoticeService) Reset(ctx context.Context, actorID, noticeID uint64) error {
	return s.touch(ctx, actorID, noticeID, cons.EventNoticeReset, nil)
}

// Enable 启用公告（同时刷新修改时间）。
func (s *NoticeService) Enable(ctx context.Context, actorID, noticeID uint64) error {
	enabled := true
	return s.touch(ctx, actorID, noticeID, cons.EventNoticeEnabled, &enabled)
}

// Disable 停用公告。
func (s *NoticeService) Disable(ctx context.Context, actorID, noticeID uint64) error {
	enabled := false
	return s.touch(ctx, actorID, noticeID, cons.EventNoticeDisabled, &enabled)
}

func (s *NoticeService) touch(ctx context.Context, actorID, noticeID uint64, eventType string, enabled *bool) error {
	if !s.isAdmin(actorID) {
		return ErrPermissionDenied
	}
	notice, err := s.Get(ctx, noticeID)
	if err != nil {
		return err
	}

	updates := map[string]any{"updated_at": time.Now()}
	if enabled != nil {
		updates["enabled"] = *enabled
	}
	if err := s.DB.WithContext(ctx).Model(&models.SiteNotice{}).
		Where("id = ?", notice.ID).
		Updates(updates).Error; err != nil {
		return err
	}

	s.afterMutation(ctx, eventType, notice.ID, actorID)
	return nil
}

// Delete 删除公告，并在同事务内清理其交互记录与链接。
// 点击历史按 CleanupLinkHistory 级联；确认审计保留（审计侧重事后追溯）。
func (s *NoticeService) Delete(ctx context.Context, actorID, noticeID uint64) error {
	if !s.isAdmin(actorID) {
		return ErrPermissionDenied
	}
	notice, err := s.Get(ctx, noticeID)
	if err != nil {
		return err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("notice_id = ?", notice.ID).Delete(&models.NoticeView{}).Error; err != nil {
			return err
		}
		if s.CleanupLinkHistory {
			var linkIDs []uint64
			if err := tx.Model(&models.NoticeLink{}).
				Where("notice_id = ?", notice.ID).
				Pluck("id", &linkIDs).Error; err != nil {
				return err
			}
			if len(linkIDs) > 0 {
				if err := tx.Where("hlink_id IN ?", linkIDs).Delete(&models.LinkClick{}).Error; err != nil {
					return err
				}
			}
		}
		if err := tx.Where("notice_id = ?", notice.ID).Delete(&models.NoticeLink{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.SiteNotice{}, notice.ID).Error
	})
	if err != nil {
		return err
	}

	s.afterMutation(ctx, cons.EventNoticeDeleted, notice.ID, actorID)
	return nil
}

// Get 按 id 取公告。不存在返回 ErrNoticeNotFound。
func (s *NoticeService) Get(ctx context.Context, noticeID uint64) (*models.SiteNotice, error) {
	if noticeID == 0 {
		return nil, ErrNoticeNotFound
	}
	var notice models.SiteNotice
	if err := s.DB.WithContext(ctx).First(&notice, noticeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoticeNotFound
		}
		return nil, err
	}
	return &notice, nil
}

// ListAll 全部公告（管理列表，创建顺序）。
func (s *NoticeService) ListAll(ctx context.Context) ([]models.SiteNotice, error) {
	var notices []models.SiteNotice
	err := s.DB.WithContext(ctx).Model(&models.SiteNotice{}).
		Order("id asc").
		Find(&notices).Error
	return notices, err
}

// afterMutation 写操作收尾：清启用集缓存 -> 分发事件 -> 广播刷新。顺序固定，先写后发。
func (s *NoticeService) afterMutation(ctx context.Context, eventType string, noticeID, actorID uint64) {
	s.Cache.PurgeEnabled(ctx)
	s.dispatch(NoticeEvent{Type: eventType, NoticeID: noticeID, UserID: actorID, Time: time.Now()})
	s.notifyRefresh(noticeID)
}

// notifyRefresh 尽力而为的 WS 广播，失败不影响主流程。
func (s *NoticeService) notifyRefresh(noticeID uint64) {
	if s.WsNotifier == nil {
		return
	}
	msg := struct {
		Type     string    `json:"type"`
		NoticeID uint64    `json:"notice_id"`
		Time     time.Time `json:"time"`
	}{
		Type:     cons.WsTypeNoticeRefresh,
		NoticeID: noticeID,
		Time:     time.Now(),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	s.WsNotifier(b)
}
