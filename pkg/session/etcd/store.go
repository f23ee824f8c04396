// Package etcd implements a [session.Store] backed by etcd.
package etcd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/tzrikka/slashroute/pkg/session"
)

const (
	DefaultPrefix = "/slashroute/sessions/"
	timeout       = 3 * time.Second
)

type Store struct {
	kv     clientv3.KV
	lease  clientv3.Lease
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL attaches every saved session to a new lease with the given TTL.
// Sessions without a TTL (the default) never expire.
func WithTTL(lease clientv3.Lease, ttl time.Duration) Option {
	return func(s *Store) {
		s.lease = lease
		s.ttl = ttl
	}
}

func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// Dial connects to the given etcd endpoints. The caller is responsible for closing the client.
func Dial(endpoints []string) (*clientv3.Client, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}
	return c, nil
}

func New(kv clientv3.KV, opts ...Option) *Store {
	s := &Store{kv: kv, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Load(ctx context.Context, key string) (*session.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := s.kv.Get(ctx, s.prefix+key)
	if err != nil {
		return nil, fmt.Errorf("failed to get session from etcd: %w", err)
	}
	if len(resp.Kvs) == 0 {
		return nil, session.ErrNotFound
	}

	sess := new(session.Session)
	if err := json.Unmarshal(resp.Kvs[0].Value, sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return sess, nil
}

func (s *Store) Save(ctx context.Context, key string, sess *session.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var opts []clientv3.OpOption
	if s.lease != nil && s.ttl > 0 {
		l, err := s.lease.Grant(ctx, int64(s.ttl.Seconds()))
		if err != nil {
			return fmt.Errorf("failed to grant etcd lease: %w", err)
		}
		opts = append(opts, clientv3.WithLease(l.ID))
	}

	if _, err := s.kv.Put(ctx, s.prefix+key, string(data), opts...); err != nil {
		return fmt.Errorf("failed to save session to etcd: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := s.kv.Delete(ctx, s.prefix+key); err != nil {
		return fmt.Errorf("failed to delete session from etcd: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := s.kv.Get(ctx, s.prefix, clientv3.WithPrefix(), clientv3.WithKeysOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions in etcd: %w", err)
	}

	keys := make([]string, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		keys = append(keys, strings.TrimPrefix(string(kv.Key), s.prefix))
	}
	return keys, nil
}
