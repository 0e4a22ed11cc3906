package repository

import (
	"fmt"
	"time"

	"github.com/cydxin/sitenotice-sdk/models"
	"gorm.io/gorm"
)

// AckDAO 封装确认审计与点击历史的查询
//
// 约定：
// - 只做“数据访问”（查询封装），不做业务编排（权限、分页上限等由 service 控制）。
// - 事务边界由 service 控制；如需在事务中执行，请使用 WithDB(tx)。
type AckDAO struct {
	db          *gorm.DB
	tablePrefix string
}

func NewAckDAO(db *gorm.DB, tablePrefix string) *AckDAO {
	return &AckDAO{db: db, tablePrefix: tablePrefix}
}

// WithDB 用于在事务（tx）中复用 DAO
func (dao *AckDAO) WithDB(db *gorm.DB) *AckDAO {
	if db == nil {
		return dao
	}
	return &AckDAO{db: db, tablePrefix: dao.tablePrefix}
}

// AckFilter 审计查询过滤条件。零值字段不参与过滤。
type AckFilter struct {
	NoticeID uint64
	UserID   uint64
	Action   string // acknowledged / dismissed
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}

// List 审计记录列表，固定排序 userid ASC, created_at DESC（与报表展示一致）。
func (dao *AckDAO) List(f AckFilter) ([]models.Acknowledgement, error) {
	q := dao.db.Model(&models.Acknowledgement{})
	if f.NoticeID > 0 {
		q = q.Where("notice_id = ?", f.NoticeID)
	}
	if f.UserID > 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if !f.From.IsZero() {
		q = q.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("created_at < ?", f.To)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var rows []models.Acknowledgement
	err := q.Order("user_id asc").Order("created_at desc").Find(&rows).Error
	return rows, err
}

// LinkClickCount 某用户在某公告上的单条链接点击聚合。
type LinkClickCount struct {
	HlinkID uint64 `json:"hlink_id"`
	Text    string `json:"text"`
	Link    string `json:"link"`
	Clicks  int64  `json:"clicks"`
}

// CountLinkClicks 用户在某公告上的链接点击次数（JOIN 链接表 GROUP BY 聚合）。
func (dao *AckDAO) CountLinkClicks(userID, noticeID uint64) ([]LinkClickCount, error) {
	historyTable := dao.tablePrefix + "notice_hlink_history"
	linkTable := dao.tablePrefix + "notice_hlink"

	sql := fmt.Sprintf(`SELECT h.hlink_id, l.text, l.link, COUNT(h.hlink_id) AS clicks
  FROM %s h
  JOIN %s l ON h.hlink_id = l.id
 WHERE h.user_id = ? AND l.notice_id = ?
 GROUP BY h.hlink_id, l.text, l.link
 ORDER BY h.hlink_id ASC`, historyTable, linkTable)

	var rows []LinkClickCount
	err := dao.db.Raw(sql, userID, noticeID).Scan(&rows).Error
	return rows, err
}
