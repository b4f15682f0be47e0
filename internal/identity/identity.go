// Package identity поставляет ownerId текущей сессии. Аутентификацию не выполняет,
// только проверяет подпись выданных токенов.
package identity

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/region23/navatar/pkg/errors"
)

const tokenName = "navatar_owner"

// Provider источник ownerId
type Provider interface {
	OwnerID(ctx context.Context) (string, error)
}

// Static фиксированный владелец из конфигурации
type Static string

func (s Static) OwnerID(context.Context) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", errors.ErrInvalidOwner
	}
	return string(s), nil
}

// TokenCodec выпускает и проверяет подписанные токены владельца
type TokenCodec struct {
	sc *securecookie.SecureCookie
}

// NewTokenCodec создает кодек. blockKey может быть пустым: тогда токен только подписан.
func NewTokenCodec(hashKey, blockKey []byte, ttl time.Duration) *TokenCodec {
	if len(blockKey) == 0 {
		blockKey = nil
	}
	sc := securecookie.New(hashKey, blockKey)
	if ttl > 0 {
		sc.MaxAge(int(ttl / time.Second))
	}
	return &TokenCodec{sc: sc}
}

// NewTokenCodecFromBase64 разбирает ключи в base64, как их печатает команда keys
func NewTokenCodecFromBase64(hashKey, blockKey string, ttl time.Duration) (*TokenCodec, error) {
	hash, err := base64.StdEncoding.DecodeString(hashKey)
	if err != nil {
		return nil, fmt.Errorf("decode hash key: %w", err)
	}
	if len(hash) < 32 {
		return nil, fmt.Errorf("hash key must be at least 32 bytes, got %d", len(hash))
	}
	var block []byte
	if blockKey != "" {
		block, err = base64.StdEncoding.DecodeString(blockKey)
		if err != nil {
			return nil, fmt.Errorf("decode block key: %w", err)
		}
		switch len(block) {
		case 16, 24, 32:
		default:
			return nil, fmt.Errorf("block key must be 16, 24 or 32 bytes, got %d", len(block))
		}
	}
	return NewTokenCodec(hash, block, ttl), nil
}

// GenerateKeys возвращает новую пару ключей в base64
func GenerateKeys() (hashKey, blockKey string) {
	hash := securecookie.GenerateRandomKey(32)
	block := securecookie.GenerateRandomKey(32)
	return base64.StdEncoding.EncodeToString(hash), base64.StdEncoding.EncodeToString(block)
}

// Issue выпускает токен для owner
func (c *TokenCodec) Issue(owner string) (string, error) {
	if strings.TrimSpace(owner) == "" {
		return "", errors.ErrInvalidOwner
	}
	return c.sc.Encode(tokenName, map[string]string{"uid": owner})
}

// Parse проверяет токен и возвращает владельца
func (c *TokenCodec) Parse(token string) (string, error) {
	value := map[string]string{}
	if err := c.sc.Decode(tokenName, token, &value); err != nil {
		return "", errors.ErrUnauthorized.WithError(err)
	}
	uid := value["uid"]
	if uid == "" {
		return "", errors.ErrUnauthorized.WithContext("token without owner")
	}
	return uid, nil
}

// Token владелец из заранее выпущенного токена
type Token struct {
	Codec *TokenCodec
	Value string
}

func (t Token) OwnerID(context.Context) (string, error) {
	return t.Codec.Parse(t.Value)
}

// FromRequest извлекает владельца из Authorization: Bearer
func FromRequest(r *http.Request, codec *TokenCodec) (string, error) {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", errors.ErrUnauthorized.WithContext("missing bearer token")
	}
	return codec.Parse(strings.TrimSpace(token))
}

type ctxKey struct{}

// WithOwner кладет владельца в контекст
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ctxKey{}, owner)
}

// OwnerFromContext достает владельца, положенного WithOwner
func OwnerFromContext(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(ctxKey{}).(string)
	return owner, ok && owner != ""
}
