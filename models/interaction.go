package models

import (
	"time"
)

// 用户与公告的交互动作
const (
	ActionDismissed    = "dismissed"    // 仅关闭
	ActionAcknowledged = "acknowledged" // 显式确认
)

// NoticeView 用户对某条公告的最近一次交互（每 (user, notice) 至多一条，upsert 语义）。
// “已完成”不落库：资格引擎每次根据 action + 时间戳重新推导。
type NoticeView struct {
	ID       uint64 `gorm:"primarykey"`
	NoticeID uint64 `gorm:"index:idx_notice_user,unique;not null"`
	UserID   uint64 `gorm:"index:idx_notice_user,unique;not null"`

	Action     string    `gorm:"size:16;not null"` // dismissed / acknowledged
	TimeViewed time.Time `gorm:"not null"`         // 交互时间，与公告 UpdatedAt / ResetInterval 比较

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (NoticeView) TableName() string { return prefix + "notice_view" }

// Acknowledgement 确认审计表（追加写入，不更新）。
// 冗余快照用户身份字段与公告标题：即使用户/公告之后被修改或删除，审计记录保持当时原样。
// 要求确认的公告被“仅关闭”时也会落一条 action=dismissed 的审计。
type Acknowledgement struct {
	ID       uint64 `gorm:"primarykey"`
	NoticeID uint64 `gorm:"index;not null"`
	UserID   uint64 `gorm:"index;not null"`

	Username    string `gorm:"size:100"`
	Firstname   string `gorm:"size:100"`
	Lastname    string `gorm:"size:100"`
	IDNumber    string `gorm:"size:64"` // 学工号等外部编号
	NoticeTitle string `gorm:"size:200"`

	Action string `gorm:"size:16;not null;index"` // acknowledged / dismissed

	CreatedAt time.Time `gorm:"index"`
}

func (Acknowledgement) TableName() string { return prefix + "notice_ack" }
