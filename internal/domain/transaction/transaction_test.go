package transaction

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewNumberShape(t *testing.T) {
	at := time.UnixMilli(1724800000000)
	n := NewNumber(at)

	assert.True(t, strings.HasPrefix(n, "TXN-1724800000000-"), n)
	assert.Len(t, n, len("TXN-1724800000000-")+8)
}

func TestNewNumberUniqueWithinMillisecond(t *testing.T) {
	at := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[NewNumber(at)] = true
	}
	assert.Len(t, seen, 100)
}
