package post

import (
	"testing"

	"github.com/bmizerany/assert"
)

func TestPost(t *testing.T) {
	var a int
	Post(func() {
		a = 1
	})
	Tick()
	if a != 1 {
		t.Errorf("t should be 1")
	}
}

func TestQueueNested(t *testing.T) {
	q := &Queue{}
	var order []int
	q.Post(func() {
		order = append(order, 1)
		q.Post(func() {
			order = append(order, 3)
		})
	})
	q.Post(func() {
		panic("callback panics")
	})
	q.Post(func() {
		order = append(order, 2)
	})
	assert.Equal(t, 3, q.Len())
	q.Tick()
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, 0, q.Len())
}
