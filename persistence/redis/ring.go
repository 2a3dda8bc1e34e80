package redis

import (
	"github.com/buraksezer/consistent"
	"github.com/mohitkumar/promptflow/logger"
	"github.com/spaolacci/murmur3"
	"go.uber.org/zap"
)

const DEFAULT_PARTITION_COUNT = 271

type hasher struct {
}

func (h hasher) Sum64(data []byte) uint64 {
	return murmur3.Sum64(data)
}

type node string

func (n node) String() string {
	return string(n)
}

// Ring assigns every project key to one redis address by consistent hashing.
type Ring struct {
	hring *consistent.Consistent
}

func NewRing(partitionCount int, addrs []string) *Ring {
	if partitionCount <= 0 {
		partitionCount = DEFAULT_PARTITION_COUNT
	}
	cfg := consistent.Config{
		PartitionCount:    partitionCount,
		ReplicationFactor: 20,
		Load:              1.25,
		Hasher:            hasher{},
	}
	members := make([]consistent.Member, 0, len(addrs))
	for _, addr := range addrs {
		logger.Info("adding redis node to ring", zap.String("address", addr))
		members = append(members, node(addr))
	}
	return &Ring{
		hring: consistent.New(members, cfg),
	}
}

func (r *Ring) Locate(key string) string {
	return r.hring.LocateKey([]byte(key)).String()
}

func (r *Ring) Members() []string {
	members := r.hring.GetMembers()
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, m.String())
	}
	return out
}
