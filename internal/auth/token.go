package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// IssueToken は正規化ユーザー名と有効期限をHMAC-SHA256で署名したトークンを生成する。
// 形式: base64url(name).expiresUnix.base64url(signature)
func IssueToken(secret []byte, name string, expires time.Time) string {
	payload := fmt.Sprintf("%s.%d", base64.RawURLEncoding.EncodeToString([]byte(name)), expires.Unix())
	return payload + "." + sign(secret, payload)
}

// VerifyToken はトークンの署名と有効期限を検証し、正規化ユーザー名を返す。
// 署名の比較は定数時間で行う。
func VerifyToken(secret []byte, token string, now time.Time) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("malformed token")
	}

	payload := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(sign(secret, payload)), []byte(parts[2])) {
		return "", fmt.Errorf("invalid token signature")
	}

	expires, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", fmt.Errorf("malformed token expiry")
	}
	if now.Unix() >= expires {
		return "", fmt.Errorf("token expired")
	}

	name, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("malformed token name")
	}
	return string(name), nil
}

// sign はペイロードのHMAC-SHA256署名をbase64urlで返す。
func sign(secret []byte, payload string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
