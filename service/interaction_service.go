package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/cydxin/sitenotice-sdk/cons"
	"github.com/cydxin/sitenotice-sdk/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InteractionService 处理用户对公告的 dismiss/acknowledge，
// 更新最近交互记录并决定交互后的副作用（强制下线跳转）。
// 每个 (user, notice) 的状态机是推导出来的，不落“已完成”状态：
// unseen -> dismissed -> unseen（reqack 或非管理员遇 forcelogout）或 satisfied
// unseen/dismissed -> acknowledged -> satisfied
type InteractionService struct{ *Service }

func NewInteractionService(s *Service) *InteractionService { return &InteractionService{Service: s} }

// InteractionResult 交互结果。RequiresLogout 为 true 时 RedirectURL 指向登录页。
type InteractionResult struct {
	Success        bool
	RequiresLogout bool
	RedirectURL    string
}

// Dismiss 关闭公告。
// - 总是 upsert 最近交互为 dismissed
// - 要求确认的公告被仅关闭：落一条 dismissed 审计并强制下线（不看管理员身份）
// - 否则 forcelogout 公告对非管理员强制下线
// 事件在状态落库后分发。
func (s *InteractionService) Dismiss(ctx context.Context, noticeID, userID uint64) (*InteractionResult, error) {
	notice, err := s.loadNotice(ctx, noticeID)
	if err != nil {
		return nil, err
	}

	admin := s.isAdmin(userID)
	now := time.Now()

	var snapshot *UserInfo
	if notice.ReqAck {
		snapshot = s.userSnapshot(ctx, userID)
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertView(tx, notice.ID, userID, models.ActionDismissed, now); err != nil {
			return err
		}
		if notice.ReqAck {
			// “该确认却只关闭”的审计记录
			return tx.Create(ackRecord(notice, snapshot, models.ActionDismissed, now)).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Cache.PurgeUser(ctx, userID)

	res := &InteractionResult{Success: true}
	if notice.ReqAck {
		res.RequiresLogout = true
	} else if notice.ForceLogout && !admin {
		res.RequiresLogout = true
	}
	s.applyLogout(ctx, res, userID)

	s.dispatch(NoticeEvent{Type: cons.EventNoticeDismissed, NoticeID: notice.ID, UserID: userID, Time: now})
	return res, nil
}

// Acknowledge 确认公告。
// 幂等保护：已有未过期的 acknowledged 记录（公告未被修改、重展间隔未过）时直接返回成功，
// 不重复写审计——多标签页/多端双提交靠这里兜住，不靠锁。
func (s *InteractionService) Acknowledge(ctx context.Context, noticeID, userID uint64) (*InteractionResult, error) {
	notice, err := s.loadNotice(ctx, noticeID)
	if err != nil {
		return nil, err
	}

	admin := s.isAdmin(userID)
	now := time.Now()

	var view models.NoticeView
	err = s.DB.WithContext(ctx).
		Where("notice_id = ? AND user_id = ?", notice.ID, userID).
		First(&view).Error
	if err == nil && view.Action == models.ActionAcknowledged {
		v := ViewedRecord{TimeViewed: view.TimeViewed.Unix(), Action: view.Action}
		if !AckIsStale(notice, v, now) {
			return &InteractionResult{Success: true}, nil
		}
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	snapshot := s.userSnapshot(ctx, userID)

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ackRecord(notice, snapshot, models.ActionAcknowledged, now)).Error; err != nil {
			return err
		}
		return upsertView(tx, notice.ID, userID, models.ActionAcknowledged, now)
	})
	if err != nil {
		return nil, err
	}

	s.Cache.PurgeUser(ctx, userID)

	res := &InteractionResult{Success: true, RequiresLogout: notice.ForceLogout && !admin}
	s.applyLogout(ctx, res, userID)

	s.dispatch(NoticeEvent{Type: cons.EventNoticeAcknowledged, NoticeID: notice.ID, UserID: userID, Time: now})
	return res, nil
}

func (s *InteractionService) loadNotice(ctx context.Context, noticeID uint64) (*models.SiteNotice, error) {
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

// applyLogout 需要下线时吊销该用户全部 token 并给出跳转地址。
func (s *InteractionService) applyLogout(ctx context.Context, res *InteractionResult, userID uint64) {
	if !res.RequiresLogout {
		return
	}
	res.RedirectURL = s.LoginURL
	if s.Auth != nil {
		if err := s.Auth.RevokeAllTokensByUser(ctx, userID); err != nil {
			log.Printf("sitenotice: revoke tokens for user %d: %v", userID, err)
		}
	}
}

// userSnapshot 审计快照。宿主未注入或查询失败时退化为只记 userID。
func (s *Service) userSnapshot(ctx context.Context, userID uint64) *UserInfo {
	if s.UserResolver == nil {
		return &UserInfo{ID: userID}
	}
	info, err := s.UserResolver(ctx, userID)
	if err != nil || info == nil {
		log.Printf("sitenotice: user snapshot lookup failed for %d: %v", userID, err)
		return &UserInfo{ID: userID}
	}
	if info.ID == 0 {
		info.ID = userID
	}
	return info
}

// upsertView (user, notice) 至多一条最近交互记录。
func upsertView(tx *gorm.DB, noticeID, userID uint64, action string, now time.Time) error {
	view := &models.NoticeView{
		NoticeID:   noticeID,
		UserID:     userID,
		Action:     action,
		TimeViewed: now,
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "notice_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"action", "time_viewed", "updated_at"}),
	}).Create(view).Error
}

func ackRecord(n *models.SiteNotice, u *UserInfo, action string, now time.Time) *models.Acknowledgement {
	return &models.Acknowledgement{
		NoticeID:    n.ID,
		UserID:      u.ID,
		Username:    u.Username,
		Firstname:   u.Firstname,
		Lastname:    u.Lastname,
		IDNumber:    u.IDNumber,
		NoticeTitle: n.Title,
		Action:      action,
		CreatedAt:   now,
	}
}
