package models

import (
	"time"
)

// NoticeLink 公告内容中的一条超链接。
// 唯一性按 (notice_id, text, link) 由改写逻辑保证：重复保存相同内容必须复用既有 id，
// 不靠数据库唯一索引（text/link 过长，不适合做 MySQL 组合唯一键）。
// 内容编辑后不再出现的链接在改写时删除。
type NoticeLink struct {
	ID       uint64 `gorm:"primarykey"`
	NoticeID uint64 `gorm:"index;not null"`
	Text     string `gorm:"size:500;not null"`  // 锚点可见文本（trim 后）
	Link     string `gorm:"size:1000;not null"` // href（trim 后）

	CreatedAt time.Time
}

func (NoticeLink) TableName() string { return prefix + "notice_hlink" }

// LinkClick 链接点击历史（追加写入）。
// 报表按 (hlink_id, user_id) GROUP BY 聚合次数。
type LinkClick struct {
	ID      uint64 `gorm:"primarykey"`
	HlinkID uint64 `gorm:"index;not null"`
	UserID  uint64 `gorm:"index;not null"`

	TimeClicked time.Time `gorm:"index;not null"`
}

func (LinkClick) TableName() string { return prefix + "notice_hlink_history" }
