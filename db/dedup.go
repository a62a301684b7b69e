package db

import (
	"fmt"
	"time"
)

const (
	dedupKeyPrefix = "shen:msg:dedup:"
	dedupTTL       = 5 * time.Minute
)

// DedupStore remembers recently seen event ids so that events redelivered
// after a reconnect are handled once.
type DedupStore struct {
	redis *Redis
}

func NewDedupStore(redis *Redis) *DedupStore {
	return &DedupStore{redis: redis}
}

func dedupKey(selfId, msgId string) string {
	return fmt.Sprintf("%s%s:%s", dedupKeyPrefix, selfId, msgId)
}

// FirstSeen reports whether msgId is new for the bot account selfId and
// records it.
func (s *DedupStore) FirstSeen(selfId, msgId string) (bool, error) {
	return s.redis.SetNX(dedupKey(selfId, msgId), "1", dedupTTL)
}
