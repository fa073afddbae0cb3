package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/landsale/backend/internal/auth"
	"github.com/landsale/backend/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrChallengeNotFound = errors.New("login challenge not found or expired")

// NonceStore keeps single-use login challenges.
type NonceStore interface {
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	// Take returns and deletes the value; ErrChallengeNotFound if absent.
	Take(ctx context.Context, key string) (string, error)
}

type RedisNonceStore struct {
	client *redis.Client
}

func NewRedisNonceStore(client *redis.Client) *RedisNonceStore {
	return &RedisNonceStore{client: client}
}

func (s *RedisNonceStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisNonceStore) Take(ctx context.Context, key string) (string, error) {
	v, err := s.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrChallengeNotFound
	}
	return v, err
}

// AuthService logs wallets in with a signed single-use challenge.
type AuthService struct {
	nonces NonceStore
	cfg    *config.Config
	log    *zap.Logger
	domain string
}

func NewAuthService(nonces NonceStore, cfg *config.Config, log *zap.Logger) *AuthService {
	return &AuthService{nonces: nonces, cfg: cfg, log: log, domain: "landsale"}
}

// Challenge создаёт nonce и возвращает сообщение для personal_sign.
func (s *AuthService) Challenge(ctx context.Context, wallet common.Address) (string, error) {
	nonce := uuid.New().String()
	msg := auth.LoginMessage(s.domain, nonce)
	if err := s.nonces.Put(ctx, challengeKey(wallet), msg, s.cfg.LoginNonceTTL); err != nil {
		return "", fmt.Errorf("failed to store login challenge: %w", err)
	}
	return msg, nil
}

// Login consumes the wallet's challenge and returns a session token.
func (s *AuthService) Login(ctx context.Context, wallet common.Address, signature string) (string, error) {
	// 1. Consume challenge, защита от replay
	msg, err := s.nonces.Take(ctx, challengeKey(wallet))
	if err != nil {
		return "", err
	}

	// 2. Проверяем подпись
	if err := auth.VerifyLogin(wallet, msg, signature); err != nil {
		return "", fmt.Errorf("login signature: %w", err)
	}

	token, err := auth.GenerateJWT(s.cfg.JWTSecret, wallet, s.cfg.JWTExpiration)
	if err != nil {
		return "", err
	}

	s.log.Info("wallet logged in", zap.String("wallet", wallet.Hex()))
	return token, nil
}

func challengeKey(wallet common.Address) string {
	return "login:challenge:" + wallet.Hex()
}
