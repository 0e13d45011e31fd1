package synctask

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQuarantineTriggersAtThreshold(t *testing.T) {
	q := NewQuarantine()
	assert.False(t, q.RecordFailure("a.txt"))
	assert.False(t, q.RecordFailure("a.txt"))
	assert.True(t, q.RecordFailure("a.txt"), "third consecutive failure crosses the threshold")
	assert.True(t, q.IsQuarantined("a.txt"))
}

func TestQuarantineRecordSuccessClears(t *testing.T) {
	q := NewQuarantine()
	q.RecordFailure("a.txt")
	q.RecordFailure("a.txt")
	q.RecordFailure("a.txt")
	assert.True(t, q.IsQuarantined("a.txt"))

	q.RecordSuccess("a.txt")
	assert.False(t, q.IsQuarantined("a.txt"))
}

func TestQuarantineExpiresAfterDuration(t *testing.T) {
	q := NewQuarantine()
	q.Duration = time.Minute
	current := time.Unix(0, 0)
	q.now = func() time.Time { return current }

	q.RecordFailure("a.txt")
	q.RecordFailure("a.txt")
	q.RecordFailure("a.txt")
	assert.True(t, q.IsQuarantined("a.txt"))

	current = current.Add(2 * time.Minute)
	assert.False(t, q.IsQuarantined("a.txt"), "cool-down window has elapsed")
}
