package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cydxin/sitenotice-sdk/cons"
)

// mapAssign 按 (text, link) 稳定分配 id，模拟 RewriteContent 的复用逻辑。
func mapAssign() func(text, link string) (uint64, error) {
	ids := make(map[string]uint64)
	var next uint64
	return func(text, link string) (uint64, error) {
		key := text + "\x00" + link
		if id, ok := ids[key]; ok {
			return id, nil
		}
		next++
		ids[key] = next
		return next, nil
	}
}

func TestRewriteAnchors_Basic(t *testing.T) {
	content := `<p>请阅读 <a href="https://example.com/policy">隐私政策</a></p>`

	var gotText, gotLink string
	out, err := RewriteAnchors(content, func(text, link string) (uint64, error) {
		gotText, gotLink = text, link
		return 11, nil
	})
	if err != nil {
		t.Fatalf("RewriteAnchors: %v", err)
	}

	if gotText != "隐私政策" || gotLink != "https://example.com/policy" {
		t.Fatalf("assign got (%q, %q)", gotText, gotLink)
	}
	if !strings.Contains(out, `data-linkid="11"`) {
		t.Fatalf("missing data-linkid: %s", out)
	}
	if !strings.Contains(out, `target="_blank"`) {
		t.Fatalf("missing target: %s", out)
	}
	if !strings.Contains(out, `href="https://example.com/policy"`) {
		t.Fatalf("href changed: %s", out)
	}
}

func TestRewriteAnchors_TrimsTextAndHref(t *testing.T) {
	content := `<a href="  https://example.com  ">  click here  </a>`

	_, err := RewriteAnchors(content, func(text, link string) (uint64, error) {
		if text != "click here" {
			t.Fatalf("text not trimmed: %q", text)
		}
		if link != "https://example.com" {
			t.Fatalf("href not trimmed: %q", link)
		}
		return 1, nil
	})
	if err != nil {
		t.Fatalf("RewriteAnchors: %v", err)
	}
}

func TestRewriteAnchors_NestedMarkupText(t *testing.T) {
	// 锚点文本取渲染后的可见文本，嵌套标签不影响匹配键
	content := `<a href="/x"><strong>bold</strong> link</a>`

	_, err := RewriteAnchors(content, func(text, link string) (uint64, error) {
		if text != "bold link" {
			t.Fatalf("expected flattened text, got %q", text)
		}
		return 1, nil
	})
	if err != nil {
		t.Fatalf("RewriteAnchors: %v", err)
	}
}

func TestRewriteAnchors_Idempotent(t *testing.T) {
	assign := mapAssign()
	content := `<p><a href="/a">one</a> and <a href="/b">two</a> and <a href="/a">one</a></p>`

	first, err := RewriteAnchors(content, assign)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	// 相同 (文本, href) 的锚点拿到相同 id
	if !strings.Contains(first, `data-linkid="1"`) || !strings.Contains(first, `data-linkid="2"`) {
		t.Fatalf("unexpected ids: %s", first)
	}
	if strings.Contains(first, `data-linkid="3"`) {
		t.Fatalf("duplicate anchor got a fresh id: %s", first)
	}

	// 对已改写的内容重跑不漂移
	second, err := RewriteAnchors(first, assign)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if second != first {
		t.Fatalf("not idempotent:\nfirst:  %s\nsecond: %s", first, second)
	}
}

func TestRewriteAnchors_NoAnchors(t *testing.T) {
	out, err := RewriteAnchors(`<p>没有链接</p>`, func(text, link string) (uint64, error) {
		t.Fatalf("assign should not be called")
		return 0, nil
	})
	if err != nil {
		t.Fatalf("RewriteAnchors: %v", err)
	}
	if out != `<p>没有链接</p>` {
		t.Fatalf("content changed: %s", out)
	}
}

func TestRewriteAnchors_AssignError(t *testing.T) {
	wantErr := errors.New("boom")
	_, err := RewriteAnchors(`<a href="/x">x</a>`, func(text, link string) (uint64, error) {
		return 0, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected assign error, got %v", err)
	}
}

var hlinkCols = []string{"id", "notice_id", "text", "link"}

// 重新保存：保留的锚点复用既有 id，消失的链接记录删除，点击历史按配置级联。
func TestLinkService_RewriteContent_ReuseAndCascade(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()

	svc := NewLinkService(&Service{DB: gormDB, TablePrefix: "sn_", CleanupLinkHistory: true})

	mock.ExpectQuery("SELECT \\* FROM `sn_notice_hlink` WHERE notice_id = \\? ORDER BY id asc").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows(hlinkCols).
			AddRow(uint64(1), uint64(5), "keep", "/keep").
			AddRow(uint64(2), uint64(5), "gone", "/gone"))

	mock.ExpectExec("DELETE FROM `sn_notice_hlink` WHERE id IN").
		WithArgs(uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM `sn_notice_hlink_history` WHERE hlink_id IN").
		WithArgs(uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	out, err := svc.RewriteContent(gormDB, 5, `<p><a href="/keep">keep</a></p>`)
	if err != nil {
		t.Fatalf("RewriteContent: %v", err)
	}
	if !strings.Contains(out, `data-linkid="1"`) {
		t.Fatalf("kept anchor should reuse id 1: %s", out)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

// CleanupLinkHistory 关闭时只删链接记录，点击历史保留。
func TestLinkService_RewriteContent_NoCascadeWhenDisabled(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()

	svc := NewLinkService(&Service{DB: gormDB, TablePrefix: "sn_", CleanupLinkHistory: false})

	mock.ExpectQuery("SELECT \\* FROM `sn_notice_hlink` WHERE notice_id = \\? ORDER BY id asc").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows(hlinkCols).
			AddRow(uint64(2), uint64(5), "gone", "/gone"))

	mock.ExpectExec("DELETE FROM `sn_notice_hlink` WHERE id IN").
		WithArgs(uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if _, err := svc.RewriteContent(gormDB, 5, `<p>no links left</p>`); err != nil {
		t.Fatalf("RewriteContent: %v", err)
	}

	// 没有 history 表的 DELETE
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestLinkService_RewriteContent_CreatesNewLink(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()

	svc := NewLinkService(&Service{DB: gormDB, TablePrefix: "sn_"})

	mock.ExpectQuery("SELECT \\* FROM `sn_notice_hlink` WHERE notice_id = \\? ORDER BY id asc").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows(hlinkCols))

	mock.ExpectExec("INSERT INTO `sn_notice_hlink`").
		WillReturnResult(sqlmock.NewResult(7, 1))

	out, err := svc.RewriteContent(gormDB, 5, `<a href="/new">new</a>`)
	if err != nil {
		t.Fatalf("RewriteContent: %v", err)
	}
	if !strings.Contains(out, `data-linkid="7"`) {
		t.Fatalf("new anchor should carry inserted id 7: %s", out)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestLinkService_TrackLink(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()

	var events []NoticeEvent
	svc := NewLinkService(&Service{
		DB:          gormDB,
		TablePrefix: "sn_",
		EventHandler: func(evt NoticeEvent) {
			events = append(events, evt)
		},
	})

	mock.ExpectQuery("SELECT \\* FROM `sn_notice_hlink` WHERE `sn_notice_hlink`\\.`id` = \\?").
		WillReturnRows(sqlmock.NewRows(hlinkCols).
			AddRow(uint64(11), uint64(5), "阅读全文", "https://example.com/a"))

	mock.ExpectExec("INSERT INTO `sn_notice_hlink_history`").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := svc.TrackLink(context.Background(), 11, 100); err != nil {
		t.Fatalf("TrackLink: %v", err)
	}

	if len(events) != 1 || events[0].Type != cons.EventNoticeLinkClicked || events[0].NoticeID != 5 {
		t.Fatalf("expected link clicked event for notice 5, got %#v", events)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestLinkService_TrackLink_NotFound(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()

	svc := NewLinkService(&Service{DB: gormDB, TablePrefix: "sn_"})

	mock.ExpectQuery("SELECT \\* FROM `sn_notice_hlink` WHERE `sn_notice_hlink`\\.`id` = \\?").
		WillReturnRows(sqlmock.NewRows(hlinkCols))

	if err := svc.TrackLink(context.Background(), 404, 100); !errors.Is(err, ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}
}
