package timestore

import (
	"fmt"
	"time"
)

// Options configures a Store.
type Options[K comparable] struct {
	// TTL is applied to identifiers added without WithTTL. Zero means they never expire.
	TTL time.Duration

	// ExpireOnShutdown makes Shutdown emit Expired for every registered identifier before clearing.
	ExpireOnShutdown bool

	// Mirror, if set, receives every Expired and Renewed notification after the subscribers.
	Mirror Notifier[K]
}

type addOptions struct {
	ttl       time.Duration
	hasTTL    bool
	keepBirth bool
}

type AddOption func(*addOptions)

// WithTTL overrides the store default for a single identifier. Zero disables expiration.
func WithTTL(ttl time.Duration) AddOption {
	checkTTL(ttl)
	return func(o *addOptions) {
		o.ttl = ttl
		o.hasTTL = true
	}
}

// KeepBirthTTL leaves the timestamp and ttl of an already registered identifier untouched.
// The identifier is still reported as renewed.
func KeepBirthTTL() AddOption {
	return func(o *addOptions) {
		o.keepBirth = true
	}
}

func makeAddOptions(opts []AddOption) (o addOptions) {
	for _, opt := range opts {
		opt(&o)
	}
	return
}

func checkTTL(ttl time.Duration) {
	if ttl < 0 {
		panic(fmt.Errorf("timestore: invalid time-to-live: %v", ttl))
	}
}
