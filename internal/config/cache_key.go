package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// TokenKey returns the cache key holding the persisted bearer token for a profile.
func (r *CacheKeyStruct) TokenKey(profile string) string {
	return fmt.Sprintf("auth:%s:token", profile)
}

// EssayDraftsKey returns the hash key holding unsent essay drafts of an attempt.
func (r *CacheKeyStruct) EssayDraftsKey(attemptID int64) string {
	return fmt.Sprintf("attempt:%d:essay_drafts", attemptID)
}

var CacheKey = NewCacheKeyStruct()
