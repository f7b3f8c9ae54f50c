package utils

import (
	"errors"
	"sync"
	"time"
)

var (
	blacklistedTokens = make(map[string]time.Time)
	blacklistMutex    sync.RWMutex
)

// BlacklistToken rejects the token until the given expiry.
func BlacklistToken(token string, until time.Time) {
	blacklistMutex.Lock()
	defer blacklistMutex.Unlock()

	pruneBlacklist(time.Now())
	blacklistedTokens[token] = until
}

func IsTokenBlacklisted(token string) bool {
	blacklistMutex.RLock()
	expiry, exists := blacklistedTokens[token]
	blacklistMutex.RUnlock()

	return exists && time.Now().Before(expiry)
}

// pruneBlacklist drops expired entries; caller holds the write lock.
func pruneBlacklist(now time.Time) {
	for token, expiry := range blacklistedTokens {
		if now.After(expiry) {
			delete(blacklistedTokens, token)
		}
	}
}

func ValidateToken(tokenString string) (*CustomClaims, error) {
	if IsTokenBlacklisted(tokenString) {
		return nil, errors.New("token has been revoked")
	}
	return ParseToken(tokenString)
}
