package internal

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeDefines(t *testing.T) {
	assert := assert.New(t)

	first := map[string]string{"B": "1", "A": "2"}
	second := map[string]string{"C": "3", "A": "4"}

	var names, values []string
	for name, value := range MergeDefines(maps.All(first), maps.All(second)) {
		names = append(names, name)
		values = append(values, value)
	}

	assert.Equal([]string{"A", "B", "C"}, names)
	assert.Equal([]string{"4", "1", "3"}, values)

	// Early exit.
	count := 0
	for range MergeDefines(maps.All(first)) {
		count++
		break
	}
	assert.Equal(1, count)

	assert.Equal(0, len(maps.Collect(MergeDefines())))
}
