// Package session 实现服务端会话：Redis里存 session:{sid} -> 用户ID，
// 另外每个用户一个集合 user:sessions:{id} 记着他名下的sid，改密码时用来踢掉其他会话。
// 浏览器拿到的cookie是一个HS256签名的JWT，里面只有sid和用户ID。
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MaxLifetime 是一个会话的绝对寿命，Redis里的TTL再怎么续也不会超过它
const MaxLifetime = 24 * time.Hour

var (
	ErrSessionNotFound = errors.New("session: not found")
	ErrInvalidToken    = errors.New("session: invalid token")
)

type Store interface {
	Create(ctx context.Context, userID uint64) (string, error)
	Resolve(ctx context.Context, token string) (uint64, error)
	Destroy(ctx context.Context, token string) error
	// DestroyOthers 删掉用户名下除 keepToken 以外的所有会话，返回删掉的个数
	DestroyOthers(ctx context.Context, userID uint64, keepToken string) (int, error)
}

type redisStore struct {
	rdb    *redis.Client
	secret []byte
	ttl    time.Duration
}

func NewRedisStore(rdb *redis.Client, secret string, ttl time.Duration) Store {
	return &redisStore{
		rdb:    rdb,
		secret: []byte(secret),
		ttl:    ttl,
	}
}

func keySession(sid string) string {
	return "session:" + sid
}

func keyUserSessions(userID uint64) string {
	return "user:sessions:" + strconv.FormatUint(userID, 10)
}

// Create 登录成功后调用：1、生成sid写进Redis 2、签发带sid的token
func (s *redisStore) Create(ctx context.Context, userID uint64) (string, error) {
	sid := uuid.NewString()
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, keySession(sid), userID, s.ttl)
		pipe.SAdd(ctx, keyUserSessions(userID), sid)
		// 集合的寿命跟着最近一次登录续到 MaxLifetime，不会早于任何一个会话过期
		pipe.Expire(ctx, keyUserSessions(userID), MaxLifetime)
		return nil
	})
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        sid,
		Subject:   strconv.FormatUint(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(MaxLifetime)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		_ = s.forget(ctx, userID, sid)
		return "", err
	}
	return token, nil
}

// Resolve 验签之后还要Redis里有这条记录才算数（登出会删掉它），顺便续期
func (s *redisStore) Resolve(ctx context.Context, token string) (uint64, error) {
	claims, err := s.parse(token)
	if err != nil {
		return 0, err
	}

	stored, err := s.rdb.Get(ctx, keySession(claims.ID)).Result()
	if err == redis.Nil {
		return 0, ErrSessionNotFound
	} else if err != nil {
		return 0, err
	}
	if stored != claims.Subject {
		return 0, ErrInvalidToken
	}

	userID, err := strconv.ParseUint(stored, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	if err := s.rdb.Expire(ctx, keySession(claims.ID), s.ttl).Err(); err != nil {
		return 0, err
	}
	return userID, nil
}

// Destroy 删掉Redis里的会话，之后同一个token就再也Resolve不出来了
func (s *redisStore) Destroy(ctx context.Context, token string) error {
	claims, err := s.parse(token, jwt.WithoutClaimsValidation())
	if err != nil {
		return err
	}
	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return s.rdb.Del(ctx, keySession(claims.ID)).Err()
	}
	return s.forget(ctx, userID, claims.ID)
}

// DestroyOthers 改密码之后调用；keepToken 无效时一个不留
func (s *redisStore) DestroyOthers(ctx context.Context, userID uint64, keepToken string) (int, error) {
	keep := ""
	if claims, err := s.parse(keepToken, jwt.WithoutClaimsValidation()); err == nil && claims.Subject == strconv.FormatUint(userID, 10) {
		keep = claims.ID
	}

	sids, err := s.rdb.SMembers(ctx, keyUserSessions(userID)).Result()
	if err != nil {
		return 0, err
	}
	destroyed := 0
	for _, sid := range sids {
		if sid == keep {
			continue
		}
		if err := s.forget(ctx, userID, sid); err != nil {
			return destroyed, err
		}
		destroyed++
	}
	return destroyed, nil
}

// forget 删会话记录，并从用户的会话集合里去掉
func (s *redisStore) forget(ctx context.Context, userID uint64, sid string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keySession(sid))
		pipe.SRem(ctx, keyUserSessions(userID), sid)
		return nil
	})
	return err
}

func (s *redisStore) parse(token string, opts ...jwt.ParserOption) (*jwt.RegisteredClaims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
