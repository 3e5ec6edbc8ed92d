package redis

import "testing"

func TestDedupKey(t *testing.T) {
	if got := dedupKey("cs_1", "r-9"); got != "usage:dedup:cs_1:r-9" {
		t.Fatalf("unexpected dedup key: %s", got)
	}
}

func TestLockKey(t *testing.T) {
	if got := lockKey("client:c1:subscriptions"); got != "lock:client:c1:subscriptions" {
		t.Fatalf("unexpected lock key: %s", got)
	}
}

func TestConfigOptions_Defaults(t *testing.T) {
	opts := Config{Addr: "localhost:6379", DB: 2}.options()

	if opts.PoolSize != defaultPoolSize || opts.DialTimeout != defaultTimeout {
		t.Fatalf("defaults not applied: pool=%d dial=%s", opts.PoolSize, opts.DialTimeout)
	}
	if opts.Addr != "localhost:6379" || opts.DB != 2 {
		t.Fatalf("unexpected options: %+v", opts)
	}
}
