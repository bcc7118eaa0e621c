package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"copytrade-subscription/internal/domain"
	"copytrade-subscription/internal/domain/model"
	"copytrade-subscription/internal/domain/ports/repository"
)

var _ repository.CheckoutSessionStore = (*CheckoutSessionStore)(nil)

// sessionGrace keeps an expired session readable long enough for the expiry
// path to settle its intent before the key disappears.
const sessionGrace = 5 * time.Minute

type CheckoutSessionStore struct {
	client *Client
}

func NewCheckoutSessionStore(client *Client) *CheckoutSessionStore {
	return &CheckoutSessionStore{client: client}
}

func sessionKey(id string) string { return "checkout:" + id }

func (s *CheckoutSessionStore) Save(ctx context.Context, sess *model.CheckoutSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	ttl := time.Until(sess.ExpiresAt) + sessionGrace
	if ttl <= 0 {
		ttl = sessionGrace
	}
	return s.client.Set(ctx, sessionKey(sess.ID), data, ttl)
}

func (s *CheckoutSessionStore) Find(ctx context.Context, id string) (*model.CheckoutSession, error) {
	data, err := s.client.Get(ctx, sessionKey(id))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrOperationFailed
	}
	var sess model.CheckoutSession
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, domain.ErrOperationFailed
	}
	return &sess, nil
}

func (s *CheckoutSessionStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, sessionKey(id))
}
