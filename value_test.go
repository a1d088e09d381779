package timestore_test

import (
	"testing"
	"time"

	"github.com/ddirect/timestore"
	"github.com/stretchr/testify/assert"
)

func Test_MakeTTL(t *testing.T) {
	tagged := timestore.MakeTTL[string](timestore.WithTTL(time.Minute))("a")
	assert.Equal(t, "a", tagged.Identifier())
	ttl, ok := tagged.TTL()
	assert.True(t, ok)
	assert.Equal(t, time.Minute, ttl)

	def := timestore.MakeTTL[int]()(7)
	assert.Equal(t, 7, def.ID)
	_, ok = def.TTL()
	assert.False(t, ok)

	zero := timestore.MakeTTL[int](timestore.WithTTL(0))(1)
	ttl, ok = zero.TTL()
	assert.True(t, ok)
	assert.Zero(t, ttl)
}

func Test_IsTimed(t *testing.T) {
	assert.True(t, timestore.IsTimed[string](timestore.MakeTTL[string]()("a")))
	assert.False(t, timestore.IsTimed[string](timestore.Plain[string]{ID: "a"}))
	assert.False(t, timestore.IsTimed[string](nil))
}

func Test_ValueIdentifier(t *testing.T) {
	for _, v := range []timestore.Value[string]{
		timestore.Plain[string]{ID: "x"},
		timestore.MakeTTL[string](timestore.WithTTL(time.Second))("x"),
	} {
		assert.Equal(t, "x", v.Identifier())
	}
}
