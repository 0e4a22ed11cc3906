package service

import (
	"time"

	"github.com/cydxin/sitenotice-sdk/models"
	"github.com/cydxin/sitenotice-sdk/repository"
)

// ReportService 管理端报表：确认/关闭审计列表 + 链接点击聚合。
type ReportService struct {
	*Service
	dao *repository.AckDAO
}

func NewReportService(s *Service) *ReportService {
	return &ReportService{Service: s, dao: repository.NewAckDAO(s.DB, s.TablePrefix)}
}

// ReportFilter 报表过滤（handler 层入参）。
type ReportFilter struct {
	NoticeID uint64    `form:"notice_id"`
	UserID   uint64    `form:"user_id"`
	From     time.Time `form:"from" time_format:"unix"`
	To       time.Time `form:"to" time_format:"unix"`
	Limit    int       `form:"limit"`
	Offset   int       `form:"offset"`
}

func (f *ReportFilter) normalize() {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 200 {
		f.Limit = 200
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// Acknowledgements 确认记录报表。
func (s *ReportService) Acknowledgements(f ReportFilter) ([]models.Acknowledgement, error) {
	f.normalize()
	return s.dao.List(repository.AckFilter{
		NoticeID: f.NoticeID,
		UserID:   f.UserID,
		Action:   models.ActionAcknowledged,
		From:     f.From,
		To:       f.To,
		Limit:    f.Limit,
		Offset:   f.Offset,
	})
}

// Dismissals “该确认却只关闭”记录报表。
func (s *ReportService) Dismissals(f ReportFilter) ([]models.Acknowledgement, error) {
	f.normalize()
	return s.dao.List(repository.AckFilter{
		NoticeID: f.NoticeID,
		UserID:   f.UserID,
		Action:   models.ActionDismissed,
		From:     f.From,
		To:       f.To,
		Limit:    f.Limit,
		Offset:   f.Offset,
	})
}

// LinkClicks 用户在某公告上的链接点击聚合。
// 不分页：聚合后每条链接一行，行数上限是单条公告内容里的锚点数，天然有界。
func (s *ReportService) LinkClicks(userID, noticeID uint64) ([]repository.LinkClickCount, error) {
	return s.dao.CountLinkClicks(userID, noticeID)
}
