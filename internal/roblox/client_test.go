package roblox

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// testLogger はテスト出力を汚さないロガーを返す。
func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestLookupByHandle_Found はハンドル名検索の成功パスを検証する。
func TestLookupByHandle_Found(t *testing.T) {
	var callCount int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++

		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/v1/usernames/users" {
			t.Errorf("path = %s, want /v1/usernames/users", r.URL.Path)
		}

		var req struct {
			Usernames          []string `json:"usernames"`
			ExcludeBannedUsers bool     `json:"excludeBannedUsers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("リクエストボディのパースに失敗: %v", err)
		}
		if len(req.Usernames) != 1 || req.Usernames[0] != "builder_jo" {
			t.Errorf("usernames = %v, want [builder_jo]", req.Usernames)
		}
		if !req.ExcludeBannedUsers {
			t.Error("excludeBannedUsers = false, want true")
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":[{"id":1001,"name":"builder_jo"}]}`)
	}))
	defer ts.Close()

	client := NewClient(ts.Client(), testLogger(), ts.URL)

	user, err := client.LookupByHandle(context.Background(), "builder_jo")
	if err != nil {
		t.Fatalf("LookupByHandle() error = %v", err)
	}
	if user == nil {
		t.Fatal("LookupByHandle() = nil, want user")
	}
	if user.ID != 1001 || user.Handle != "builder_jo" {
		t.Errorf("user = %+v, want ID=1001 Handle=builder_jo", user)
	}
	if callCount != 1 {
		t.Errorf("callCount = %d, want 1", callCount)
	}
}

// TestLookupByHandle_NotFound は見つからない場合にnilが返ることを検証する。
func TestLookupByHandle_NotFound(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"空のdata配列", `{"data":[]}`},
		{"IDが欠損", `{"data":[{"name":"builder_jo"}]}`},
		{"nameが欠損", `{"data":[{"id":1001}]}`},
		{"不正なJSON", `{not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			}))
			defer ts.Close()

			client := NewClient(ts.Client(), testLogger(), ts.URL)

			user, err := client.LookupByHandle(context.Background(), "builder_jo")
			if err != nil {
				t.Fatalf("LookupByHandle() error = %v", err)
			}
			if user != nil {
				t.Errorf("LookupByHandle() = %+v, want nil", user)
			}
		})
	}
}

// TestLookupByHandle_UpstreamError は非2xx応答が「見つからない」に正規化されることを検証する。
func TestLookupByHandle_UpstreamError(t *testing.T) {
	statuses := []int{http.StatusBadRequest, http.StatusTooManyRequests, http.StatusInternalServerError}

	for _, status := range statuses {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		client := NewClient(ts.Client(), testLogger(), ts.URL)

		user, err := client.LookupByHandle(context.Background(), "builder_jo")
		if err != nil {
			t.Errorf("status %d: LookupByHandle() error = %v, want nil", status, err)
		}
		if user != nil {
			t.Errorf("status %d: LookupByHandle() = %+v, want nil", status, user)
		}

		ts.Close()
	}
}

// TestLookupByHandle_Timeout はタイムアウトが「見つからない」に正規化されることを検証する。
func TestLookupByHandle_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()

	httpClient := ts.Client()
	httpClient.Timeout = 20 * time.Millisecond
	client := NewClient(httpClient, testLogger(), ts.URL)

	user, err := client.LookupByHandle(context.Background(), "builder_jo")
	if err != nil {
		t.Fatalf("LookupByHandle() error = %v, want nil", err)
	}
	if user != nil {
		t.Errorf("LookupByHandle() = %+v, want nil", user)
	}
}

// TestGetUserByID_Found はID検索の成功パスを検証する。
func TestGetUserByID_Found(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/v1/users/1001" {
			t.Errorf("path = %s, want /v1/users/1001", r.URL.Path)
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":1001,"name":"builder_jo","description":"monday tuesday caramel"}`)
	}))
	defer ts.Close()

	client := NewClient(ts.Client(), testLogger(), ts.URL)

	profile, err := client.GetUserByID(context.Background(), 1001)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if profile == nil {
		t.Fatal("GetUserByID() = nil, want profile")
	}
	if profile.ID != 1001 || profile.Handle != "builder_jo" {
		t.Errorf("profile = %+v, want ID=1001 Handle=builder_jo", profile)
	}
	if profile.Bio != "monday tuesday caramel" {
		t.Errorf("bio = %q, want プロフィール文", profile.Bio)
	}
}

// TestGetUserByID_NotFound は見つからない場合にnilが返ることを検証する。
func TestGetUserByID_NotFound(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"404応答", http.StatusNotFound, `{"errors":[{"code":3}]}`},
		{"IDが欠損", http.StatusOK, `{"name":"builder_jo"}`},
		{"nameが欠損", http.StatusOK, `{"id":1001}`},
		{"不正なJSON", http.StatusOK, `{not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer ts.Close()

			client := NewClient(ts.Client(), testLogger(), ts.URL)

			profile, err := client.GetUserByID(context.Background(), 1001)
			if err != nil {
				t.Fatalf("GetUserByID() error = %v", err)
			}
			if profile != nil {
				t.Errorf("GetUserByID() = %+v, want nil", profile)
			}
		})
	}
}

// TestGetUserByID_EmptyBioAllowed はプロフィール文が空でも成功することを検証する。
func TestGetUserByID_EmptyBioAllowed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"id":1001,"name":"builder_jo","description":""}`)
	}))
	defer ts.Close()

	client := NewClient(ts.Client(), testLogger(), ts.URL)

	profile, err := client.GetUserByID(context.Background(), 1001)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if profile == nil {
		t.Fatal("GetUserByID() = nil, want profile")
	}
	if profile.Bio != "" {
		t.Errorf("bio = %q, want 空文字列", profile.Bio)
	}
}
