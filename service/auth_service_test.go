package service

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func TestAuthService_ExtractToken_BearerFirst(t *testing.T) {
	a := NewAuthService(nil)

	req := &http.Request{Header: make(http.Header), URL: &url.URL{RawQuery: "token=q"}}
	req.Header.Set("Authorization", "Bearer headerToken")

	got := a.ExtractToken(req)
	if got != "headerToken" {
		t.Fatalf("expected headerToken, got %q", got)
	}
}

func TestAuthService_ExtractToken_QueryFallback(t *testing.T) {
	a := NewAuthService(nil)

	u, _ := url.Parse("http://example.com/path?token=queryToken")
	req := &http.Request{Header: make(http.Header), URL: u}

	got := a.ExtractToken(req)
	if got != "queryToken" {
		t.Fatalf("expected queryToken, got %q", got)
	}
}

func TestAuthService_TokenLifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	a := NewAuthService(rdb)
	ctx := context.Background()

	token, err := a.Tokens().GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if err := a.Tokens().StoreToken(ctx, token, 42, 0); err != nil {
		t.Fatalf("StoreToken: %v", err)
	}

	uid, err := a.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if uid != 42 {
		t.Fatalf("expected userID 42, got %d", uid)
	}

	if err := a.RevokeToken(ctx, token); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}
	if _, err := a.Authenticate(ctx, token); err == nil {
		t.Fatalf("expected error after revoke")
	}
}

// 强制下线公告依赖的全端注销：吊销后该用户所有 token 都失效。
func TestAuthService_RevokeAllTokensByUser(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	a := NewAuthService(rdb)
	ctx := context.Background()

	var tokens []string
	for i := 0; i < 3; i++ {
		token, err := a.Tokens().GenerateToken()
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}
		if err := a.Tokens().StoreToken(ctx, token, 7, 0); err != nil {
			t.Fatalf("StoreToken: %v", err)
		}
		tokens = append(tokens, token)
	}

	if err := a.RevokeAllTokensByUser(ctx, 7); err != nil {
		t.Fatalf("RevokeAllTokensByUser: %v", err)
	}

	for _, token := range tokens {
		if _, err := a.Authenticate(ctx, token); err == nil {
			t.Fatalf("token %q still valid after revoke all", token)
		}
	}

	// 没有任何 token 的用户吊销不报错
	if err := a.RevokeAllTokensByUser(ctx, 999); err != nil {
		t.Fatalf("RevokeAllTokensByUser for empty user: %v", err)
	}
}
