package beanstalk

import (
	"math"
	"testing"

	"github.com/pior/beanstalk/proto"
	"github.com/stretchr/testify/assert"
)

func TestStats_Accessors(t *testing.T) {
	stats := Stats(proto.ParseDict([]byte("---\nname: foo\ncount: 3\nratio: 1.5\nhuge: 18446744073709551615\nneg: -4\n")))

	name, ok := stats.GetString("name")
	assert.True(t, ok)
	assert.Equal(t, "foo", name)

	count, ok := stats.GetInt("count")
	assert.True(t, ok)
	assert.Equal(t, int64(3), count)

	ratio, ok := stats.GetFloat("ratio")
	assert.True(t, ok)
	assert.Equal(t, 1.5, ratio)

	huge, ok := stats.GetUint("huge")
	assert.True(t, ok)
	assert.Equal(t, uint64(math.MaxUint64), huge)

	_, ok = stats.GetInt("huge")
	assert.False(t, ok, "does not fit in int64")

	_, ok = stats.GetUint("neg")
	assert.False(t, ok)

	asFloat, ok := stats.GetFloat("count")
	assert.True(t, ok)
	assert.Equal(t, 3.0, asFloat)

	_, ok = stats.GetInt("name")
	assert.False(t, ok)

	_, ok = stats.GetString("missing")
	assert.False(t, ok)
}
