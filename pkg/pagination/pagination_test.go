package pagination

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name              string
		page, limit       int
		wantPage, wantLim int
	}{
		{"defaults", 0, 0, 1, DefaultLimit},
		{"negative page", -3, 10, 1, 10},
		{"caps limit", 2, 500, 2, MaxLimit},
		{"keeps valid", 4, 50, 4, 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page, limit := Normalize(tc.page, tc.limit)
			assert.Equal(t, tc.wantPage, page)
			assert.Equal(t, tc.wantLim, limit)
		})
	}
}

func TestNewRange(t *testing.T) {
	p := New(1, 25, 60)
	assert.Equal(t, 1, p.Start)
	assert.Equal(t, 25, p.End)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 0, p.Offset())

	p = New(3, 25, 60)
	assert.Equal(t, 51, p.Start)
	assert.Equal(t, 60, p.End)
	assert.Equal(t, 50, p.Offset())
}

func TestNewEmpty(t *testing.T) {
	p := New(1, 25, 0)
	assert.Equal(t, 0, p.Start)
	assert.Equal(t, 0, p.End)
	assert.Equal(t, 0, p.TotalPages)
	assert.Empty(t, p.PageNumbers)
}

func TestNewPastLastPage(t *testing.T) {
	p := New(9, 10, 15)
	assert.Equal(t, 0, p.Start)
	assert.Equal(t, 0, p.End)
}

func TestPageNumbersShapes(t *testing.T) {
	cases := []struct {
		page, total int
		want        []int
	}{
		{1, 1, []int{1}},
		{3, 7, []int{1, 2, 3, 4, 5, 6, 7}},
		{1, 20, []int{1, 2, 3, 4, 5, 0, 20}},
		{4, 20, []int{1, 2, 3, 4, 5, 0, 20}},
		{5, 20, []int{1, 0, 4, 5, 6, 0, 20}},
		{17, 20, []int{1, 0, 16, 17, 18, 19, 20}},
		{20, 20, []int{1, 0, 16, 17, 18, 19, 20}},
		{99, 20, []int{1, 0, 16, 17, 18, 19, 20}},
	}
	for _, tc := range cases {
		got := PageNumbers(tc.page, tc.total)
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("PageNumbers(%d, %d) mismatch (-want +got):\n%s", tc.page, tc.total, diff)
		}
	}
}

func TestPageNumbersProperties(t *testing.T) {
	for total := 1; total <= 40; total++ {
		for page := 1; page <= total; page++ {
			strip := PageNumbers(page, total)
			ellipses := 0
			prev := 0
			sawCurrent := false
			for _, n := range strip {
				if n == Ellipsis {
					ellipses++
					continue
				}
				if n <= prev || n < 1 || n > total {
					t.Fatalf("page=%d total=%d: strip %v not strictly increasing in range", page, total, strip)
				}
				if n == page {
					sawCurrent = true
				}
				prev = n
			}
			assert.LessOrEqual(t, ellipses, 2, "page=%d total=%d", page, total)
			assert.True(t, sawCurrent, "page=%d total=%d: current page missing from %v", page, total, strip)
			assert.Equal(t, 1, strip[0])
			assert.Equal(t, total, strip[len(strip)-1])
		}
	}
}
