package estimation

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaclennanMah/MediQ/internal/domain/entities"
)

func TestMedian_Examples(t *testing.T) {
	tests := []struct {
		name   string
		values []int
		want   int
	}{
		{"single", []int{10}, 10},
		{"even pair", []int{10, 20}, 15},
		{"odd triple", []int{10, 20, 30}, 20},
		{"half rounds up", []int{5, 100}, 53},
		{"unsorted", []int{30, 10, 20}, 20},
		{"even unsorted", []int{40, 10, 30, 20}, 25},
		{"duplicates", []int{7, 7, 7, 7}, 7},
		{"zeros", []int{0, 0, 1}, 0},
		{"half of one", []int{0, 1}, 1},
		{"largest ints", []int{math.MaxInt, math.MaxInt}, math.MaxInt},
		{"largest pair rounds up", []int{math.MaxInt - 1, math.MaxInt}, math.MaxInt},
		{"zero and largest", []int{0, math.MaxInt}, math.MaxInt/2 + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Median(tt.values)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMedian_Empty(t *testing.T) {
	_, ok := Median(nil)
	assert.False(t, ok)

	_, ok = Median([]int{})
	assert.False(t, ok)
}

func TestMedian_DoesNotMutateInput(t *testing.T) {
	values := []int{50, 10, 40, 20, 30}
	_, _ = Median(values)
	assert.Equal(t, []int{50, 10, 40, 20, 30}, values)
}

func TestMedian_OrderIndependentAndBounded(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		n := 1 + r.Intn(40)
		values := make([]int, n)
		lo, hi := 1<<30, -1
		for j := range values {
			values[j] = r.Intn(600)
			if values[j] < lo {
				lo = values[j]
			}
			if values[j] > hi {
				hi = values[j]
			}
		}

		want, ok := Median(values)
		require.True(t, ok)
		assert.GreaterOrEqual(t, want, lo)
		assert.LessOrEqual(t, want, hi)

		shuffled := append([]int(nil), values...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got, _ := Median(shuffled)
		assert.Equal(t, want, got)
	}
}

func TestMedian_ConstantInput(t *testing.T) {
	for n := 1; n <= 25; n++ {
		values := make([]int, n)
		for i := range values {
			values[i] = 42
		}
		got, ok := Median(values)
		require.True(t, ok)
		assert.Equal(t, 42, got)
	}
}

func TestFromSubmissions(t *testing.T) {
	assert.Nil(t, FromSubmissions(nil))

	now := time.Now()
	subs := []*entities.Submission{
		{WaitTimeMinutes: 30, ReportedAt: now},
		{WaitTimeMinutes: 10, ReportedAt: now.Add(-time.Minute)},
		nil,
		{WaitTimeMinutes: 20, ReportedAt: now.Add(-2 * time.Minute)},
	}
	got := FromSubmissions(subs)
	require.NotNil(t, got)
	assert.Equal(t, 20, *got)
}
