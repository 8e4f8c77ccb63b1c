package ring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zkalam/smart-thermal-control/internal/ring"
)

func TestPushAndValues(t *testing.T) {
	b := ring.New[int](3)

	b.Push(1)
	b.Push(2)
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, []int{1, 2}, b.Values())
}

func TestEvictsOldestFirst(t *testing.T) {
	b := ring.New[int](3)

	for i := 1; i <= 5; i++ {
		b.Push(i)
	}

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, []int{3, 4, 5}, b.Values(), "oldest elements should be evicted")
}

func TestLast(t *testing.T) {
	b := ring.New[int](4)
	for i := 1; i <= 6; i++ {
		b.Push(i)
	}

	assert.Equal(t, []int{5, 6}, b.Last(2))
	assert.Equal(t, []int{3, 4, 5, 6}, b.Last(10), "asking for more than stored returns everything")
	assert.Nil(t, b.Last(0))
}

func TestClear(t *testing.T) {
	b := ring.New[int](2)
	b.Push(1)
	b.Push(2)
	b.Clear()

	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 2, b.Cap())
	assert.Empty(t, b.Values())
}

func TestMinimumCapacity(t *testing.T) {
	b := ring.New[string](0)
	b.Push("a")
	b.Push("b")

	assert.Equal(t, []string{"b"}, b.Values())
}
