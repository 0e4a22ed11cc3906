package service

import (
	"context"
	"log"
	"time"

	"github.com/cydxin/sitenotice-sdk/models"
)

// EligibilityService 资格引擎：计算某用户此刻还欠展示的公告集合。
// 每次页面加载/会话调用一次，结果按 id 升序（即创建顺序），决定前端模态框的串行展示顺序。
type EligibilityService struct{ *Service }

func NewEligibilityService(s *Service) *EligibilityService { return &EligibilityService{Service: s} }

// UserNoticeDTO 返回给客户端的公告视图。
type UserNoticeDTO struct {
	ID          uint64 `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"` // 已带 data-linkid 的 HTML
	ReqAck      bool   `json:"reqack"`
	ForceLogout bool   `json:"forcelogout"`
}

// NoticesFor 过滤流程：
// 1. 启用 + 生效窗口包含 now 的公告（缓存回源）
// 2. 按用户最近交互剔除“已完成”的公告；四种情况仍须重新展示：
//    公告在交互后被修改过 / 重展间隔已过 / 要求确认却只被关闭过 /
//    强制下线公告被非管理员关闭过
// 3. 受众过滤（群组交集）与课程完成过滤
// 单条公告的外部查询失败只会让该公告本轮不展示，不影响其余公告。
func (s *EligibilityService) NoticesFor(ctx context.Context, userID uint64, now time.Time) ([]UserNoticeDTO, error) {
	enabled, err := s.enabledNotices(ctx)
	if err != nil {
		return nil, err
	}
	if len(enabled) == 0 {
		return []UserNoticeDTO{}, nil
	}

	viewed, err := s.viewedNotices(ctx, userID)
	if err != nil {
		return nil, err
	}

	admin := s.isAdmin(userID)

	// 用户群组按需解析一次（多数公告面向全员，没必要每次都查宿主）
	var userCohorts []uint64
	cohortsLoaded := false
	cohortsFailed := false

	out := make([]UserNoticeDTO, 0, len(enabled))
	for i := range enabled {
		n := &enabled[i]
		if !n.ActiveAt(now) {
			continue
		}
		if v, ok := viewed[n.ID]; ok && !NeedsRedisplay(n, v, now, admin) {
			continue
		}

		// 受众过滤
		cohorts, err := n.CohortIDs()
		if err != nil {
			log.Printf("sitenotice: notice %d has malformed cohorts, skipped: %v", n.ID, err)
			continue
		}
		if len(cohorts) > 0 {
			if !cohortsLoaded {
				cohortsLoaded = true
				if s.CohortResolver == nil {
					cohortsFailed = true
				} else if userCohorts, err = s.CohortResolver(ctx, userID); err != nil {
					log.Printf("sitenotice: cohort lookup failed for user %d: %v", userID, err)
					cohortsFailed = true
				}
			}
			if cohortsFailed || !intersects(cohorts, userCohorts) {
				continue
			}
		}

		// 课程完成过滤：完成即不再展示；查询失败按“本轮不展示”防御处理
		if n.ReqCourse > 0 {
			if s.CourseCompleted == nil {
				// 未注入完成度查询时无法判断，照常展示
			} else if done, err := s.CourseCompleted(ctx, userID, n.ReqCourse); err != nil {
				log.Printf("sitenotice: course completion lookup failed (notice %d, user %d): %v", n.ID, userID, err)
				continue
			} else if done {
				continue
			}
		}

		out = append(out, UserNoticeDTO{
			ID:          n.ID,
			Title:       n.Title,
			Content:     n.Content,
			ReqAck:      n.ReqAck,
			ForceLogout: n.ForceLogout,
		})
	}
	return out, nil
}

// NeedsRedisplay 判定已有交互记录的公告是否仍须重新展示。
func NeedsRedisplay(n *models.SiteNotice, v ViewedRecord, now time.Time, isAdmin bool) bool {
	if AckIsStale(n, v, now) {
		return true
	}
	if v.Action == models.ActionDismissed && n.ReqAck {
		return true
	}
	if v.Action == models.ActionDismissed && n.ForceLogout && !isAdmin {
		return true
	}
	return false
}

// AckIsStale 与动作无关的过期判定：公告在交互后被修改，或重展间隔已过。
// 确认接口的幂等保护也用它：未过期的 acknowledged 记录不重复写审计。
func AckIsStale(n *models.SiteNotice, v ViewedRecord, now time.Time) bool {
	if v.TimeViewed < n.UpdatedAt.Unix() {
		return true
	}
	if n.ResetInterval > 0 && v.TimeViewed+n.ResetInterval < now.Unix() {
		return true
	}
	return false
}

// enabledNotices 启用公告集，带全局缓存。
func (s *EligibilityService) enabledNotices(ctx context.Context) ([]models.SiteNotice, error) {
	if notices, ok := s.Cache.GetEnabledNotices(ctx); ok {
		return notices, nil
	}
	var notices []models.SiteNotice
	if err := s.DB.WithContext(ctx).Model(&models.SiteNotice{}).
		Where("enabled = ?", true).
		Order("id asc").
		Find(&notices).Error; err != nil {
		return nil, err
	}
	s.Cache.SetEnabledNotices(ctx, notices)
	return notices, nil
}

// viewedNotices 用户最近交互状态，带按用户缓存。
func (s *EligibilityService) viewedNotices(ctx context.Context, userID uint64) (map[uint64]ViewedRecord, error) {
	if viewed, ok := s.Cache.GetViewed(ctx, userID); ok {
		return viewed, nil
	}
	var rows []models.NoticeView
	if err := s.DB.WithContext(ctx).Model(&models.NoticeView{}).
		Where("user_id = ?", userID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	viewed := make(map[uint64]ViewedRecord, len(rows))
	for _, r := range rows {
		viewed[r.NoticeID] = ViewedRecord{TimeViewed: r.TimeViewed.Unix(), Action: r.Action}
	}
	s.Cache.SetViewed(ctx, userID, viewed)
	return viewed, nil
}

func intersects(a, b []uint64) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[uint64]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}
