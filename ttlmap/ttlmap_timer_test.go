package ttlmap_test

import (
	"fmt"
	"log"
	"testing"
	"testing/synctest"
	"time"

	"github.com/ddirect/timestore"
	"github.com/ddirect/timestore/notify"
	"github.com/ddirect/timestore/ttlmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	// NOTE: the max delay is 63 ticks
	ttlTicks   = 50
	shortTicks = 20
)

func testCore(t *testing.T, numKeys uint16, ops []byte) {
	if numKeys < 1 || len(ops) < 1 {
		return
	}

	const (
		ttl      = ttlTicks * tick
		shortTTL = shortTicks * tick
	)

	synctest.Test(t, func(t *testing.T) {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)

		events := new(notify.Recorder[int])
		m := ttlmap.New[int, int](ttlmap.Options[int]{TTL: ttl, Events: events})
		short := timestore.MakeTTL[int](timestore.WithTTL(shortTTL))

		// expiration time by key
		ref := make(map[int]time.Time)

		check := func() {
			now := time.Now()
			for k, at := range ref {
				if !now.Before(at) {
					delete(ref, k)
				}
			}
			require.Equal(t, len(ref), m.Len())
			for k := range ref {
				require.True(t, m.Has(k), "key %d expired too early", k)
			}
		}

		keyStore := uint16(0)
		for _, op := range ops {
			keyStore++
			if keyStore >= numKeys {
				keyStore = 0
			}
			key := int(keyStore)
			method := opMethod(op >> 6)
			sleepTime := tick * time.Duration(op&0x3F)
			log.Printf("op key %v method %v sleep %v", key, method, sleepTime)

			switch method {
			case opSet:
				m.Set(key, key)
				ref[key] = time.Now().Add(ttl)
			case opSetShort:
				m.SetValue(short(key), key)
				ref[key] = time.Now().Add(shortTTL)
			case opGet:
				_, ok := m.Get(key)
				_, want := ref[key]
				assert.Equal(t, want, ok)
			case opRemove:
				_, want := ref[key]
				assert.Equal(t, want, m.Delete(key))
				delete(ref, key)
			}

			time.Sleep(sleepTime)
			synctest.Wait()
			check()
		}

		time.Sleep(ttl)
		synctest.Wait()
		check()
		assert.Empty(t, ref)
		assert.Equal(t, 0, m.Store().Len())
		assert.LessOrEqual(t, events.Count(notify.Expired), len(ops))
	})
}

type opMethod int

const (
	opSet opMethod = iota
	opSetShort
	opGet
	opRemove
)

func (m opMethod) String() string {
	switch m {
	case opSet:
		return "set"
	case opSetShort:
		return "setShort"
	case opGet:
		return "get"
	case opRemove:
		return "remove"
	default:
		panic(fmt.Errorf("invalid opMethod %d", m))
	}
}

type operations []byte

func (o *operations) reset() {
	*o = (*o)[:0]
}

func (o *operations) append(meth opMethod, delay byte) {
	*o = append(*o, byte(meth)<<6|delay)
}

func (o *operations) toBytes() []byte {
	return []byte(*o)
}

func Fuzz_ItemsExpireAtTheRightTime(f *testing.F) {
	var ops operations
	for delay := byte(45); delay <= 55; delay++ {
		ops.append(opSet, delay)
	}
	f.Add(uint16(1), ops.toBytes())

	ops.reset()
	for delay := range byte(60) {
		for meth := range 4 {
			ops.append(opMethod(meth), delay)
		}
	}
	f.Add(uint16(3), ops.toBytes())

	// the scheduled key is removed before its timer fires
	ops.reset()
	ops.append(opSet, ttlTicks/2)
	ops.append(opRemove, 0)
	f.Add(uint16(1), ops.toBytes())

	// a short key is queued ahead of a long one
	ops.reset()
	ops.append(opSet, 0)
	ops.append(opSetShort, shortTicks)
	ops.append(opGet, 0)
	f.Add(uint16(2), ops.toBytes())

	f.Fuzz(testCore)
}
