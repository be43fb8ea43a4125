// Package payload はゲーム側アクターと交換する取引メッセージの
// 署名と検証を提供する。
//
// ゲーム内でアイテムを実際に動かすアクターは完全には信頼できず、
// 通信路は傍受・再送され得る。署名は共有シークレットを持つ両端のみが
// 生成でき、タイムスタンプと再生防止ウィンドウが捕捉済みメッセージの
// 影響範囲を制限する。
//
// 署名対象の正規エンコーディングは「キーを辞書順にソートし、
// 余分な空白を含まず、HTMLエスケープを行わないJSON」である。
// 署名側と検証側が同一の論理マッピングからバイト単位で一致する
// 直列化を生成できなければ全ての署名が検証不能になるため、
// このエンコーディング契約が本パッケージの要である。
package payload

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	// signatureKey はペイロード内の署名フィールド名。
	signatureKey = "signature"
	// timestampKey はペイロード内のタイムスタンプフィールド名。
	timestampKey = "timestamp"
)

// 検証失敗の理由を表すエラー。呼び出し元はerrors.Isで分類できる。
var (
	// ErrMissingSignature は署名フィールドが存在しない。
	ErrMissingSignature = errors.New("missing signature")
	// ErrMissingTimestamp はタイムスタンプフィールドが存在しないか数値でない。
	ErrMissingTimestamp = errors.New("missing timestamp")
	// ErrBadSignature は署名の再計算結果が一致しない。
	ErrBadSignature = errors.New("bad signature")
	// ErrStale はペイロードが再生防止ウィンドウより古い。
	ErrStale = errors.New("stale")
	// ErrFutureTimestamp はタイムスタンプが未来を指している。
	ErrFutureTimestamp = errors.New("future timestamp")
)

// Payload は署名付き取引メッセージを表す。
// ワイヤ上ではtimestampとsignatureを含むフラットなJSONオブジェクトになる。
type Payload map[string]any

// Authenticator は共有シークレットによるペイロードの署名と検証を行う。
// 全てのメソッドはステートレスであり、並行呼び出しに対して安全。
type Authenticator struct {
	secret []byte
}

// NewAuthenticator はAuthenticatorを生成する。
func NewAuthenticator(secret []byte) *Authenticator {
	return &Authenticator{secret: secret}
}

// Sign はbodyにUnix秒のタイムスタンプを加えて正規エンコーディングで直列化し、
// HMAC-SHA256の16進署名をsignatureフィールドとして付与したペイロードを返す。
// 入力のbodyは変更しない。
func (a *Authenticator) Sign(body map[string]any, now time.Time) (Payload, error) {
	p := make(Payload, len(body)+2)
	for k, v := range body {
		p[k] = v
	}
	p[timestampKey] = now.Unix()

	canonical, err := CanonicalJSON(p)
	if err != nil {
		return nil, fmt.Errorf("ペイロードの正規化に失敗しました: %w", err)
	}

	p[signatureKey] = a.computeSignature(canonical)
	return p, nil
}

// Verify はペイロードの署名とタイムスタンプを検証する。
// 検証順序: 署名・タイムスタンプの存在確認 → 署名の再計算と
// 定数時間比較（シークレットをタイミング側波路から守る）→
// 経過時間の検査。age = now - timestamp として、age > maxAge は
// ErrStale、age < 0 は ErrFutureTimestamp となる。
// 境界は包含的であり、age == maxAge はまだ有効。
// 入力のペイロードは変更しない。
func (a *Authenticator) Verify(p Payload, maxAge time.Duration, now time.Time) error {
	sigVal, ok := p[signatureKey]
	if !ok {
		return ErrMissingSignature
	}
	sig, ok := sigVal.(string)
	if !ok || sig == "" {
		return ErrMissingSignature
	}

	tsVal, ok := p[timestampKey]
	if !ok {
		return ErrMissingTimestamp
	}
	ts, ok := numericTimestamp(tsVal)
	if !ok {
		return ErrMissingTimestamp
	}

	// 署名フィールドを除いたコピーを再正規化する
	unsigned := make(Payload, len(p))
	for k, v := range p {
		if k == signatureKey {
			continue
		}
		unsigned[k] = v
	}

	canonical, err := CanonicalJSON(unsigned)
	if err != nil {
		return fmt.Errorf("ペイロードの正規化に失敗しました: %w", err)
	}

	expected := a.computeSignature(canonical)
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return ErrBadSignature
	}

	age := float64(now.Unix()) - ts
	if age < 0 {
		return ErrFutureTimestamp
	}
	if age > maxAge.Seconds() {
		return ErrStale
	}

	return nil
}

// computeSignature は正規化済みバイト列のHMAC-SHA256を16進文字列で返す。
func (a *Authenticator) computeSignature(canonical []byte) string {
	mac := hmac.New(sha256.New, a.secret)
	mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil))
}

// CanonicalJSON はマッピングを正規エンコーディングで直列化する。
// encoding/jsonはmapのキーを辞書順で出力することを保証しており、
// SetEscapeHTMLを無効化することで余分な変換のない決定的な
// バイト列が得られる。末尾の改行は取り除く。
// 整数値のUnix秒はint64でもJSON再デコード後のfloat64でも
// 同一のバイト列にエンコードされるため、署名側と検証側で一致する。
func CanonicalJSON(m map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// numericTimestamp はタイムスタンプ値をUnix秒のfloat64として解釈する。
// JSONデコード後のfloat64と署名時のint64の両方を受け付ける。
func numericTimestamp(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
