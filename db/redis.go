// api/db/redis.go
package db

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	logger "github.com/aegisgov/aegis/api/logging"
	"github.com/aegisgov/aegis/api/model"
)

var (
	RedisClient   *redis.Client
	encryptionKey []byte
)

func InitRedis() error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:         viper.GetString("redis.addr"),
		Password:     viper.GetString("redis.password"),
		DB:           viper.GetInt("redis.db"),
		DialTimeout:  viper.GetDuration("redis.dialTimeout"),
		ReadTimeout:  viper.GetDuration("redis.readTimeout"),
		WriteTimeout: viper.GetDuration("redis.writeTimeout"),
		PoolSize:     viper.GetInt("redis.poolSize"),
		PoolTimeout:  viper.GetDuration("redis.poolTimeout"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	encryptionKey = []byte(viper.GetString("redis.encryptionKey"))
	if len(encryptionKey) != 32 {
		return fmt.Errorf("invalid encryption key length: must be 32 bytes")
	}

	logger.Info("Successfully connected to Redis")
	return nil
}

func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logger.Error("Error closing Redis connection", zap.Error(err))
		}
	}
}

func encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decrypt(ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

// CacheAccessRequest stores a request encrypted at rest: justification text
// can carry sensitive detail.
func CacheAccessRequest(ctx context.Context, request *model.AccessRequest) error {
	requestJSON, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal access request: %w", err)
	}

	encryptedRequest, err := encrypt(requestJSON)
	if err != nil {
		return fmt.Errorf("failed to encrypt access request: %w", err)
	}

	key := fmt.Sprintf("access_request:%s", request.ID)
	defaultTTL := viper.GetDuration("redis.defaultCacheTTL")
	err = RedisClient.Set(ctx, key, base64.StdEncoding.EncodeToString(encryptedRequest), defaultTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to cache access request: %w", err)
	}

	logger.Debug("Access request cached successfully", zap.String("requestID", request.ID))
	return nil
}

func GetCachedAccessRequest(ctx context.Context, requestID string) (*model.AccessRequest, error) {
	key := fmt.Sprintf("access_request:%s", requestID)
	encryptedRequestStr, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		logger.Debug("Access request not found in cache", zap.String("requestID", requestID))
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get access request from cache: %w", err)
	}

	encryptedRequest, err := base64.StdEncoding.DecodeString(encryptedRequestStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode access request: %w", err)
	}

	requestJSON, err := decrypt(encryptedRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access request: %w", err)
	}

	var request model.AccessRequest
	err = json.Unmarshal(requestJSON, &request)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal access request: %w", err)
	}

	logger.Debug("Access request retrieved from cache", zap.String("requestID", requestID))
	return &request, nil
}

func CacheTemplate(ctx context.Context, template *model.AccessTemplate) error {
	templateJSON, err := json.Marshal(template)
	if err != nil {
		return fmt.Errorf("failed to marshal template: %w", err)
	}

	key := fmt.Sprintf("access_template:%s", template.ID)
	defaultTTL := viper.GetDuration("redis.defaultCacheTTL")
	err = RedisClient.Set(ctx, key, templateJSON, defaultTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to cache template: %w", err)
	}

	logger.Debug("Template cached successfully", zap.String("templateID", template.ID))
	return nil
}

func GetCachedTemplate(ctx context.Context, templateID string) (*model.AccessTemplate, error) {
	key := fmt.Sprintf("access_template:%s", templateID)
	templateJSON, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		logger.Debug("Template not found in cache", zap.String("templateID", templateID))
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get template from cache: %w", err)
	}

	var template model.AccessTemplate
	err = json.Unmarshal([]byte(templateJSON), &template)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal template: %w", err)
	}

	logger.Debug("Template retrieved from cache", zap.String("templateID", templateID))
	return &template, nil
}

func DeleteCachedTemplate(ctx context.Context, templateID string) error {
	key := fmt.Sprintf("access_template:%s", templateID)
	err := RedisClient.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("failed to delete template from cache: %w", err)
	}
	logger.Debug("Template deleted from cache", zap.String("templateID", templateID))
	return nil
}

func RateLimit(ctx context.Context, key string, limit int, per time.Duration) (bool, error) {
	pipe := RedisClient.Pipeline()
	now := time.Now().UnixNano()
	key = fmt.Sprintf("ratelimit:%s", key)

	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now-(per.Nanoseconds())))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: now})
	pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, per)

	cmds, err := pipe.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to execute rate limit commands: %w", err)
	}

	count := cmds[2].(*redis.IntCmd).Val()
	allowed := count <= int64(limit)
	logger.Debug("Rate limit check",
		zap.String("key", key),
		zap.Int64("count", count),
		zap.Int("limit", limit),
		zap.Bool("allowed", allowed))
	return allowed, nil
}
