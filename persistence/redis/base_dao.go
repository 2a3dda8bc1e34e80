package redis

import (
	"fmt"
	"strings"

	rd "github.com/go-redis/redis/v9"
)

// baseDao owns one client per redis address. With a single address every key lives
// there; with several, the ring picks the owner of each key.
type baseDao struct {
	clients   map[string]rd.UniversalClient
	namespace string
	ring      *Ring
}

func newBaseDao(conf Config) (*baseDao, error) {
	if len(conf.Addrs) == 0 {
		return nil, fmt.Errorf("at least one redis address is required")
	}
	clients := make(map[string]rd.UniversalClient, len(conf.Addrs))
	for _, addr := range conf.Addrs {
		clients[addr] = rd.NewUniversalClient(&rd.UniversalOptions{
			Addrs:    []string{addr},
			Password: conf.Password,
			PoolSize: conf.PoolSize,
		})
	}
	return &baseDao{
		clients:   clients,
		namespace: conf.Namespace,
		ring:      NewRing(conf.PartitionCount, conf.Addrs),
	}, nil
}

func (bs *baseDao) getNamespaceKey(args ...string) string {
	return fmt.Sprintf("%s:%s", bs.namespace, strings.Join(args, ":"))
}

func (bs *baseDao) clientFor(id string) rd.UniversalClient {
	return bs.clients[bs.ring.Locate(id)]
}

func (bs *baseDao) Close() error {
	var firstErr error
	for _, c := range bs.clients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
