package cons

// 公告领域事件类型（event_type）
// 约定：先落库再分发，订阅方不会观察到写入前的状态。
const (
	EventNoticeCreated      = "notice.created"      // 公告创建
	EventNoticeUpdated      = "notice.updated"      // 公告编辑
	EventNoticeReset        = "notice.reset"        // 公告重置（对所有用户重新展示）
	EventNoticeEnabled      = "notice.enabled"      // 公告启用
	EventNoticeDisabled     = "notice.disabled"     // 公告停用
	EventNoticeDeleted      = "notice.deleted"      // 公告删除
	EventNoticeDismissed    = "notice.dismissed"    // 用户关闭
	EventNoticeAcknowledged = "notice.acknowledged" // 用户确认
	EventNoticeLinkClicked  = "notice.link.clicked" // 内容链接点击
)

// WS 推送消息类型
const (
	WsTypeNoticeRefresh = "notice.refresh" // 公告集合有变化，客户端应重新拉取
)
