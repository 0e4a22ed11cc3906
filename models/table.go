package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const defaultPrefix = "sn_"

var prefix = defaultPrefix

// SetTablePrefix 设置全部表的名称前缀，空串回落默认值。
// 必须在 AutoMigrate 与任何查询之前调用（engine 初始化时），
// 与 Config.TablePrefix 保持一致，repository 的裸 SQL 依赖同一个前缀。
func SetTablePrefix(p string) {
	if p == "" {
		p = defaultPrefix
	}
	prefix = p
}

// SiteNotice 站点公告表（展示规则的根实体）
// 公告以模态框形式推给登录用户，满足条件后不再展示：
// - enabled + 生效时间窗控制是否参与评估
// - cohorts 限定受众（空 = 全员）
// - reqack 要求用户显式确认，仅“关闭”不算完成
// - forcelogout 交互后强制下线（管理员豁免）
// - resetinterval 秒数，>0 时周期性重新展示
type SiteNotice struct {
	ID      uint64 `gorm:"primarykey"`
	Title   string `gorm:"size:200;not null"`     // 标题
	Content string `gorm:"type:text;not null"`    // 富文本内容（HTML，锚点已带 data-linkid）

	// Cohorts 受众群组 ID 列表（JSON 数组）。空数组/NULL 表示所有用户。
	Cohorts datatypes.JSON `gorm:"type:json"`

	ReqAck      bool   `gorm:"default:false"`          // 是否要求显式确认
	ReqCourse   uint64 `gorm:"default:0"`              // 关联课程 ID，完成该课程后不再展示；0 表示不限
	ForceLogout bool   `gorm:"default:false"`          // 交互后是否强制下线（管理员豁免）
	Enabled     bool   `gorm:"default:true;index"`     // 是否启用

	ResetInterval int64 `gorm:"default:0"` // 重新展示间隔（秒），0 = 交互后不再展示
	TimeStart     int64 `gorm:"default:0"` // 生效开始（epoch 秒），与 TimeEnd 同为 0 表示永久
	TimeEnd       int64 `gorm:"default:0"` // 生效结束（epoch 秒），窗口为 [TimeStart, TimeEnd)

	CreatedAt time.Time
	UpdatedAt time.Time // 任何变更（编辑/重置/启停）都会刷新，用于判定用户侧状态是否过期
}

func (SiteNotice) TableName() string { return prefix + "notice" }

// CohortIDs 解析受众群组列表。空/NULL 返回 nil（表示全员）。
func (n *SiteNotice) CohortIDs() ([]uint64, error) {
	if len(n.Cohorts) == 0 {
		return nil, nil
	}
	var ids []uint64
	if err := json.Unmarshal(n.Cohorts, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// SetCohortIDs 序列化受众群组列表。nil/空切片写 NULL（全员）。
func (n *SiteNotice) SetCohortIDs(ids []uint64) error {
	if len(ids) == 0 {
		n.Cohorts = nil
		return nil
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	n.Cohorts = b
	return nil
}

// Perpetual 是否永久生效（无时间窗）。
func (n *SiteNotice) Perpetual() bool {
	return n.TimeStart == 0 && n.TimeEnd == 0
}

// ActiveAt 判断公告在 now 是否处于生效窗口内。
func (n *SiteNotice) ActiveAt(now time.Time) bool {
	if n.Perpetual() {
		return true
	}
	ts := now.Unix()
	return n.TimeStart <= ts && ts < n.TimeEnd
}
