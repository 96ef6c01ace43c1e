// Package cache wraps the shared Redis client the way the teacher's
// internal/cache/redis.go does, generalized from booking-specific seat
// locks to the full key layout of spec §6: avail:{flight_id},
// trip:{order_id}, seat:{flight_id}:{seat}, offer:{offer_id}.
package cache

import (
	"context"
	"time"

	"github.com/altis-air/altis-retail-engine/internal/config"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	Raw *redis.Client
}

func New(cfg config.RedisConfig) *Client {
	return &Client{Raw: redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})}
}

func (c *Client) Close() error { return c.Raw.Close() }

func AvailKey(flightID string) string       { return "avail:" + flightID }
func ReservationSetKey(flightID string) string { return "resv:" + flightID }
func TripHoldKey(orderID string) string     { return "trip:" + orderID }
func SeatHoldKey(flightID, seat string) string {
	return "seat:" + flightID + ":" + seat
}
func OfferKey(offerID string) string { return "offer:" + offerID }

// compareAndDelete is the Lua script backing InventoryIndex.ReleaseSeat's
// "delete the key only if the holder equals order_id" semantics. go-redis
// exposes Eval for exactly this kind of atomic read-then-write that a
// bare GET+DEL pair would race on.
const compareAndDeleteScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

func (c *Client) CompareAndDelete(ctx context.Context, key, expected string) (bool, error) {
	res, err := c.Raw.Eval(ctx, compareAndDeleteScript, []string{key}, expected).Result()
	if err != nil {
		return false, err
	}
	n, _ := res.(int64)
	return n == 1, nil
}

// SetIfAbsentOrOwner implements the InventoryIndex.hold_seat contract:
// set-if-absent with TTL, or extend TTL if the caller already owns the
// key (owner-idempotent).
const setIfAbsentOrOwnerScript = `
local current = redis.call("GET", KEYS[1])
if current == false then
	redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
	return 1
elseif current == ARGV[1] then
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
	return 1
else
	return 0
end
`

func (c *Client) SetIfAbsentOrOwner(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	res, err := c.Raw.Eval(ctx, setIfAbsentOrOwnerScript, []string{key}, owner, ttl.Milliseconds()).Result()
	if err != nil {
		return false, err
	}
	n, _ := res.(int64)
	return n == 1, nil
}

// DecrementIfNonNegative implements try_reserve's "atomic decrement only
// if the post-value >= 0" contract without a WATCH/MULTI round trip.
const decrementIfNonNegativeScript = `
local current = tonumber(redis.call("GET", KEYS[1]))
if current == nil then
	current = tonumber(ARGV[2])
end
local updated = current - tonumber(ARGV[1])
if updated < 0 then
	return -1
end
redis.call("SET", KEYS[1], updated)
return updated
`

// DecrementIfNonNegative returns the post-decrement value, or -1 if the
// decrement would have gone negative (in which case no write happened).
// initial seeds the counter on first use (lazy materialization).
func (c *Client) DecrementIfNonNegative(ctx context.Context, key string, by int, initial int) (int, error) {
	res, err := c.Raw.Eval(ctx, decrementIfNonNegativeScript, []string{key}, by, initial).Result()
	if err != nil {
		return 0, err
	}
	n, _ := res.(int64)
	return int(n), nil
}

// compareAndSetJSONFieldScript backs CompareAndSetJSONField: read the
// JSON object at KEYS[1], compare the field named ARGV[1] against the
// expected value ARGV[2], and only if it matches, set it to ARGV[3] and
// write the object back with its remaining TTL preserved. Returns
// {1, encoded} on success, {-1, encoded} on a field mismatch (so the
// caller can inspect the current value), or {0, ""} if the key is
// absent. Redis's Lua sandbox ships cjson, the idiomatic way to do a
// field-level CAS over a JSON blob atomically without a WATCH/MULTI
// round trip.
const compareAndSetJSONFieldScript = `
local raw = redis.call("GET", KEYS[1])
if raw == false then
	return {0, ""}
end
local obj = cjson.decode(raw)
if obj[ARGV[1]] ~= ARGV[2] then
	return {-1, cjson.encode(obj)}
end
obj[ARGV[1]] = ARGV[3]
local encoded = cjson.encode(obj)
local ttl = redis.call("PTTL", KEYS[1])
if ttl and ttl > 0 then
	redis.call("SET", KEYS[1], encoded, "PX", ttl)
else
	redis.call("SET", KEYS[1], encoded)
end
return {1, encoded}
`

// CompareAndSetJSONField atomically transitions a single field within a
// JSON document stored at key, failing without writing anything if the
// field doesn't currently hold expected. Used by OfferStore.AcceptCAS
// for the offer ACTIVE -> ACCEPTED transition (spec's "at most one
// order may reference a given offer_id" invariant).
func (c *Client) CompareAndSetJSONField(ctx context.Context, key, field, expected, newValue string) (code int, value string, err error) {
	res, err := c.Raw.Eval(ctx, compareAndSetJSONFieldScript, []string{key}, field, expected, newValue).Result()
	if err != nil {
		return 0, "", err
	}
	arr, ok := res.([]interface{})
	if !ok || len(arr) != 2 {
		return 0, "", nil
	}
	n, _ := arr[0].(int64)
	s, _ := arr[1].(string)
	return int(n), s, nil
}

// getAndDeleteScript backs GetAndDelete: atomically read and remove a
// key in one round trip so a caller checking "was this ticket already
// consumed" can't race a second caller doing the same check against a
// bare GET+DEL pair.
const getAndDeleteScript = `
local val = redis.call("GET", KEYS[1])
if val == false then
	return {0, ""}
end
redis.call("DEL", KEYS[1])
return {1, val}
`

// GetAndDelete atomically reads and removes key, reporting whether it
// was present. Backs InventoryIndex.Release's idempotent ticket consume
// (spec P4): only the caller that observes existed=true increments
// availability back, so a repeated Release for the same ticket is a
// pure no-op even under concurrent retries.
func (c *Client) GetAndDelete(ctx context.Context, key string) (value string, existed bool, err error) {
	res, err := c.Raw.Eval(ctx, getAndDeleteScript, []string{key}).Result()
	if err != nil {
		return "", false, err
	}
	arr, ok := res.([]interface{})
	if !ok || len(arr) != 2 {
		return "", false, nil
	}
	n, _ := arr[0].(int64)
	s, _ := arr[1].(string)
	return s, n == 1, nil
}

func (c *Client) IncrBy(ctx context.Context, key string, by int) error {
	return c.Raw.IncrBy(ctx, key, int64(by)).Err()
}

func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.Raw.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.Raw.Set(ctx, key, value, ttl).Err()
}

func (c *Client) Del(ctx context.Context, key string) error {
	return c.Raw.Del(ctx, key).Err()
}

// SAdd/SIsMember are thin set helpers. Index.Release does not use them: its
// idempotence comes from GetAndDelete on the per-ticket reservation key.
func (c *Client) SAdd(ctx context.Context, key, member string) (bool, error) {
	n, err := c.Raw.SAdd(ctx, key, member).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *Client) SIsMember(ctx context.Context, key, member string) (bool, error) {
	return c.Raw.SIsMember(ctx, key, member).Result()
}
