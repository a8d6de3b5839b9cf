package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManualExecutor_Order(t *testing.T) {
	var exec ManualExecutor
	var ran []int
	for i := 0; i < 3; i++ {
		i := i
		exec.Submit(func() { ran = append(ran, i) })
	}

	assert.True(t, exec.RunAt(2))
	assert.False(t, exec.RunAt(5))
	assert.Equal(t, 2, exec.RunAll())
	assert.False(t, exec.RunNext())
	assert.Equal(t, []int{2, 0, 1}, ran)
}

func TestManualExecutor_TaskSubmitsTask(t *testing.T) {
	var exec ManualExecutor
	var ran []string
	exec.Submit(func() {
		ran = append(ran, "outer")
		exec.Submit(func() { ran = append(ran, "inner") })
	})

	assert.Equal(t, 2, exec.RunAll())
	assert.Equal(t, []string{"outer", "inner"}, ran)
}

func TestGoExecutor_Wait(t *testing.T) {
	var exec GoExecutor
	done := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		exec.Submit(func() { done <- struct{}{} })
	}
	exec.Wait()

	assert.Len(t, done, 3)
}
