package hotkeys

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_TopOrdersByCountDescending(t *testing.T) {
	tr := New(2)

	for i := 0; i < 5; i++ {
		tr.Record("default", "a")
	}
	for i := 0; i < 3; i++ {
		tr.Record("default", "b")
	}
	tr.Record("default", "c")

	top := tr.Top("default")
	if assert.Len(t, top, 2) {
		assert.Equal(t, "a", top[0].Key)
		assert.EqualValues(t, 5, top[0].Count)
		assert.Equal(t, "b", top[1].Key)
		assert.EqualValues(t, 3, top[1].Count)
	}
}

func TestTracker_UnknownTableReturnsNil(t *testing.T) {
	tr := New(5)
	assert.Nil(t, tr.Top("nope"))
}

func TestTracker_TablesAreIndependent(t *testing.T) {
	tr := New(5)
	tr.Record("t1", "a")
	tr.Record("t2", "b")

	top1 := tr.Top("t1")
	if assert.Len(t, top1, 1) {
		assert.Equal(t, "a", top1[0].Key)
	}

	top2 := tr.Top("t2")
	if assert.Len(t, top2, 1) {
		assert.Equal(t, "b", top2[0].Key)
	}
}
