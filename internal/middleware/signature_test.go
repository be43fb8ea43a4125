package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/stashlink/internal/payload"
)

// mockRejectionRecorder はRejectionRecorderのモック実装。
type mockRejectionRecorder struct {
	reasons []string
}

func (m *mockRejectionRecorder) RecordPayloadRejection(reason string) {
	m.reasons = append(m.reasons, reason)
}

// compile-time interface check
var _ RejectionRecorder = (*mockRejectionRecorder)(nil)

// signedBody は署名済みペイロードのJSONボディを生成する。
func signedBody(t *testing.T, auth *payload.Authenticator, body map[string]any, at time.Time) []byte {
	t.Helper()
	signed, err := auth.Sign(body, at)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	raw, err := json.Marshal(signed)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	return raw
}

// TestSignatureMiddleware_ValidPayloadPasses は正しく署名されたペイロードが通過することを検証する。
func TestSignatureMiddleware_ValidPayloadPasses(t *testing.T) {
	auth := payload.NewAuthenticator([]byte("shared-secret"))
	recorder := &mockRejectionRecorder{}

	var received payload.Payload
	handler := NewSignatureMiddleware(auth, 5*time.Minute, recorder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := PayloadFromContext(r.Context())
		if err != nil {
			t.Errorf("PayloadFromContext() error = %v", err)
		}
		received = p
		w.WriteHeader(http.StatusOK)
	}))

	body := signedBody(t, auth, map[string]any{"userId": 7, "type": "withdraw"}, time.Now())
	req := httptest.NewRequest(http.MethodPost, "/api/trading/withdraw/confirm", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if received["type"] != "withdraw" {
		t.Errorf("received[type] = %v, want withdraw", received["type"])
	}
	if len(recorder.reasons) != 0 {
		t.Errorf("reasons = %v, want 空", recorder.reasons)
	}
}

// TestSignatureMiddleware_RejectionReasons は拒否理由の分類を検証する。
func TestSignatureMiddleware_RejectionReasons(t *testing.T) {
	auth := payload.NewAuthenticator([]byte("shared-secret"))
	now := time.Now()

	tests := []struct {
		name       string
		body       func(t *testing.T) []byte
		wantStatus int
		wantReason string
	}{
		{
			"署名なし",
			func(t *testing.T) []byte {
				return []byte(`{"userId":7,"timestamp":1000}`)
			},
			http.StatusUnauthorized,
			"missing_signature",
		},
		{
			"改ざんされたフィールド",
			func(t *testing.T) []byte {
				raw := signedBody(t, auth, map[string]any{"userId": 7}, now)
				var p map[string]any
				json.Unmarshal(raw, &p)
				p["userId"] = 8
				tampered, _ := json.Marshal(p)
				return tampered
			},
			http.StatusUnauthorized,
			"bad_signature",
		},
		{
			"再生防止ウィンドウ超過",
			func(t *testing.T) []byte {
				return signedBody(t, auth, map[string]any{"userId": 7}, now.Add(-10*time.Minute))
			},
			http.StatusUnauthorized,
			"stale",
		},
		{
			"未来のタイムスタンプ",
			func(t *testing.T) []byte {
				return signedBody(t, auth, map[string]any{"userId": 7}, now.Add(time.Hour))
			},
			http.StatusUnauthorized,
			"future_timestamp",
		},
		{
			"不正なJSON",
			func(t *testing.T) []byte {
				return []byte(`{not json`)
			},
			http.StatusBadRequest,
			"malformed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := &mockRejectionRecorder{}
			handler := NewSignatureMiddleware(auth, 5*time.Minute, recorder)(okHandler)

			req := httptest.NewRequest(http.MethodPost, "/api/trading/deposit", bytes.NewReader(tt.body(t)))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Result().StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Result().StatusCode, tt.wantStatus)
			}
			if len(recorder.reasons) != 1 || recorder.reasons[0] != tt.wantReason {
				t.Errorf("reasons = %v, want [%s]", recorder.reasons, tt.wantReason)
			}
		})
	}
}

// TestSignatureMiddleware_WrongSecretRejected は別シークレットの署名が拒否されることを検証する。
func TestSignatureMiddleware_WrongSecretRejected(t *testing.T) {
	signer := payload.NewAuthenticator([]byte("attacker-secret"))
	verifier := payload.NewAuthenticator([]byte("shared-secret"))
	recorder := &mockRejectionRecorder{}

	handler := NewSignatureMiddleware(verifier, 5*time.Minute, recorder)(okHandler)

	body := signedBody(t, signer, map[string]any{"userId": 7}, time.Now())
	req := httptest.NewRequest(http.MethodPost, "/api/trading/deposit", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
	if len(recorder.reasons) != 1 || recorder.reasons[0] != "bad_signature" {
		t.Errorf("reasons = %v, want [bad_signature]", recorder.reasons)
	}
}

// TestPayloadFromContext_MissingReturnsError はミドルウェア未通過のコンテキストでエラーになることを検証する。
func TestPayloadFromContext_MissingReturnsError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	if _, err := PayloadFromContext(req.Context()); err == nil {
		t.Error("PayloadFromContext() error = nil, want ErrNoPayload")
	}
}
