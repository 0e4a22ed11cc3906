package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cydxin/sitenotice-sdk/models"
)

func TestAckIsStale(t *testing.T) {
	base := time.Unix(10000, 0)
	now := base.Add(time.Hour)

	tests := []struct {
		name   string
		notice models.SiteNotice
		view   ViewedRecord
		want   bool
	}{
		{
			name:   "fresh",
			notice: models.SiteNotice{UpdatedAt: base},
			view:   ViewedRecord{TimeViewed: base.Unix() + 60},
			want:   false,
		},
		{
			name:   "notice modified after view",
			notice: models.SiteNotice{UpdatedAt: base.Add(10 * time.Minute)},
			view:   ViewedRecord{TimeViewed: base.Unix() + 60},
			want:   true,
		},
		{
			name:   "reset interval elapsed",
			notice: models.SiteNotice{UpdatedAt: base, ResetInterval: 600},
			view:   ViewedRecord{TimeViewed: base.Unix() + 60},
			want:   true,
		},
		{
			name:   "reset interval not elapsed",
			notice: models.SiteNotice{UpdatedAt: base, ResetInterval: 7200},
			view:   ViewedRecord{TimeViewed: base.Unix() + 60},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AckIsStale(&tt.notice, tt.view, now); got != tt.want {
				t.Fatalf("AckIsStale = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNeedsRedisplay(t *testing.T) {
	base := time.Unix(10000, 0)
	now := base.Add(time.Minute)
	fresh := ViewedRecord{TimeViewed: base.Unix() + 10}

	tests := []struct {
		name    string
		notice  models.SiteNotice
		view    ViewedRecord
		isAdmin bool
		want    bool
	}{
		{
			name:   "acknowledged and fresh",
			notice: models.SiteNotice{UpdatedAt: base},
			view:   ViewedRecord{TimeViewed: fresh.TimeViewed, Action: models.ActionAcknowledged},
			want:   false,
		},
		{
			name:   "dismissed plain notice",
			notice: models.SiteNotice{UpdatedAt: base},
			view:   ViewedRecord{TimeViewed: fresh.TimeViewed, Action: models.ActionDismissed},
			want:   false,
		},
		{
			name:   "dismissed but requires ack",
			notice: models.SiteNotice{UpdatedAt: base, ReqAck: true},
			view:   ViewedRecord{TimeViewed: fresh.TimeViewed, Action: models.ActionDismissed},
			want:   true,
		},
		{
			name:   "dismissed forcelogout non-admin",
			notice: models.SiteNotice{UpdatedAt: base, ForceLogout: true},
			view:   ViewedRecord{TimeViewed: fresh.TimeViewed, Action: models.ActionDismissed},
			want:   true,
		},
		{
			name:    "dismissed forcelogout admin exempt",
			notice:  models.SiteNotice{UpdatedAt: base, ForceLogout: true},
			view:    ViewedRecord{TimeViewed: fresh.TimeViewed, Action: models.ActionDismissed},
			isAdmin: true,
			want:    false,
		},
		{
			name:   "acknowledged but notice modified",
			notice: models.SiteNotice{UpdatedAt: base.Add(time.Hour)},
			view:   ViewedRecord{TimeViewed: fresh.TimeViewed, Action: models.ActionAcknowledged},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NeedsRedisplay(&tt.notice, tt.view, now, tt.isAdmin); got != tt.want {
				t.Fatalf("NeedsRedisplay = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIntersects(t *testing.T) {
	if intersects(nil, []uint64{1}) {
		t.Fatalf("nil should not intersect")
	}
	if intersects([]uint64{1, 2}, []uint64{3}) {
		t.Fatalf("disjoint sets intersect")
	}
	if !intersects([]uint64{1, 2}, []uint64{3, 2}) {
		t.Fatalf("expected intersection")
	}
}

func TestSiteNotice_ActiveAt(t *testing.T) {
	now := time.Unix(5000, 0)

	perpetual := models.SiteNotice{}
	if !perpetual.ActiveAt(now) {
		t.Fatalf("perpetual notice should be active")
	}

	// 窗口左闭右开
	windowed := models.SiteNotice{TimeStart: 5000, TimeEnd: 6000}
	if !windowed.ActiveAt(now) {
		t.Fatalf("start boundary should be inclusive")
	}
	if windowed.ActiveAt(time.Unix(6000, 0)) {
		t.Fatalf("end boundary should be exclusive")
	}
	if windowed.ActiveAt(time.Unix(4999, 0)) {
		t.Fatalf("before window should be inactive")
	}
}

// NoticesFor 集成流程：启用集 + 交互记录回源 DB，受众与课程过滤生效。
func TestEligibilityService_NoticesFor(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()

	svc := NewEligibilityService(&Service{
		DB:          gormDB,
		TablePrefix: "sn_",
		CohortResolver: func(ctx context.Context, userID uint64) ([]uint64, error) {
			return []uint64{5}, nil
		},
		CourseCompleted: func(ctx context.Context, userID, courseID uint64) (bool, error) {
			return courseID == 77, nil // 课程 77 已完成
		},
	})

	base := time.Unix(10000, 0)
	cols := []string{"id", "title", "content", "cohorts", "req_ack", "req_course", "force_logout", "enabled", "reset_interval", "time_start", "time_end", "updated_at"}
	noticeRows := sqlmock.NewRows(cols).
		AddRow(uint64(1), "全员公告", "<p>a</p>", nil, false, uint64(0), false, true, int64(0), int64(0), int64(0), base).
		AddRow(uint64(2), "群组公告", "<p>b</p>", []byte("[5]"), false, uint64(0), false, true, int64(0), int64(0), int64(0), base).
		AddRow(uint64(3), "限外群组", "<p>c</p>", []byte("[9]"), false, uint64(0), false, true, int64(0), int64(0), int64(0), base).
		AddRow(uint64(4), "课程已完成", "<p>d</p>", nil, false, uint64(77), false, true, int64(0), int64(0), int64(0), base)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `sn_notice` WHERE enabled = ? ORDER BY id asc")).
		WithArgs(true).
		WillReturnRows(noticeRows)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `sn_notice_view` WHERE user_id = ?")).
		WithArgs(uint64(100)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "notice_id", "user_id", "action", "time_viewed"}))

	got, err := svc.NoticesFor(context.Background(), 100, base.Add(time.Minute))
	if err != nil {
		t.Fatalf("NoticesFor: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 notices, got %#v", got)
	}
	if got[0].ID != 1 || got[1].ID != 2 {
		t.Fatalf("unexpected notices: %#v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

// 已确认且未过期的公告不再出现在结果里。
func TestEligibilityService_NoticesFor_SkipsSatisfied(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()

	svc := NewEligibilityService(&Service{DB: gormDB, TablePrefix: "sn_"})

	base := time.Unix(10000, 0)
	cols := []string{"id", "title", "content", "cohorts", "req_ack", "req_course", "force_logout", "enabled", "reset_interval", "time_start", "time_end", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `sn_notice` WHERE enabled = ? ORDER BY id asc")).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(uint64(1), "公告", "<p>a</p>", nil, true, uint64(0), false, true, int64(0), int64(0), int64(0), base))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `sn_notice_view` WHERE user_id = ?")).
		WithArgs(uint64(100)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "notice_id", "user_id", "action", "time_viewed"}).
			AddRow(uint64(1), uint64(1), uint64(100), models.ActionAcknowledged, base.Add(time.Minute)))

	got, err := svc.NoticesFor(context.Background(), 100, base.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("NoticesFor: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no notices, got %#v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}
