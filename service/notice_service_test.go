package service

import (
	"context"
	"testing"
)

func TestValidateNoticeFields(t *testing.T) {
	tests := []struct {
		name          string
		title         string
		content       string
		resetInterval int64
		timeStart     int64
		timeEnd       int64
		wantErr       bool
	}{
		{name: "ok perpetual", title: "t", content: "c"},
		{name: "ok windowed", title: "t", content: "c", timeStart: 100, timeEnd: 200},
		{name: "missing title", content: "c", wantErr: true},
		{name: "missing content", title: "t", wantErr: true},
		{name: "negative reset interval", title: "t", content: "c", resetInterval: -1, wantErr: true},
		{name: "only start set", title: "t", content: "c", timeStart: 100, wantErr: true},
		{name: "only end set", title: "t", content: "c", timeEnd: 200, wantErr: true},
		{name: "start after end", title: "t", content: "c", timeStart: 200, timeEnd: 100, wantErr: true},
		{name: "start equals end", title: "t", content: "c", timeStart: 100, timeEnd: 100, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateNoticeFields(tt.title, tt.content, tt.resetInterval, tt.timeStart, tt.timeEnd)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateNoticeFields err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// 管理操作对非管理员一律拒绝，且不触达数据库。
func TestNoticeService_NonAdminDenied(t *testing.T) {
	svc := NewNoticeService(&Service{
		IsAdmin: func(userID uint64) bool { return false },
	}, nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, 100, CreateNoticeInput{Title: "t", Content: "c"}); err != ErrPermissionDenied {
		t.Fatalf("Create: expected ErrPermissionDenied, got %v", err)
	}
	if _, err := svc.Update(ctx, 100, 1, UpdateNoticeInput{Title: "t", Content: "c"}); err != ErrPermissionDenied {
		t.Fatalf("Update: expected ErrPermissionDenied, got %v", err)
	}
	if err := svc.Reset(ctx, 100, 1); err != ErrPermissionDenied {
		t.Fatalf("Reset: expected ErrPermissionDenied, got %v", err)
	}
	if err := svc.Delete(ctx, 100, 1); err != ErrPermissionDenied {
		t.Fatalf("Delete: expected ErrPermissionDenied, got %v", err)
	}
}

// IsAdmin 未注入时按非管理员处理。
func TestNoticeService_NoAdminCheckerDenied(t *testing.T) {
	svc := NewNoticeService(&Service{}, nil)

	if _, err := svc.Create(context.Background(), 1, CreateNoticeInput{Title: "t", Content: "c"}); err != ErrPermissionDenied {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}
