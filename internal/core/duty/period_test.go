package duty

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewPeriodValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		year    int
		month   int
		wantErr bool
	}{
		{"valid", 2024, 1, false},
		{"valid december", 2024, 12, false},
		{"min year", 1970, 1, false},
		{"max year", 2100, 12, false},
		{"year too small", 1969, 5, true},
		{"year too large", 2101, 5, true},
		{"three digit year", 999, 5, true},
		{"month zero", 2024, 0, true},
		{"month thirteen", 2024, 13, true},
		{"negative month", 2024, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := NewPeriod(tt.year, tt.month)
			if tt.wantErr {
				require.Error(t, err)
				var perr *PeriodError
				require.ErrorAs(t, err, &perr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.year, p.Year)
			require.Equal(t, tt.month, p.Month)
		})
	}
}

func TestPeriodOrdering(t *testing.T) {
	t.Parallel()

	a := Period{Year: 2024, Month: 12}
	b := Period{Year: 2025, Month: 1}

	require.Less(t, a.Compare(b), 0)
	require.Greater(t, b.Compare(a), 0)
	require.Equal(t, 0, a.Compare(a))

	require.Equal(t, b, a.Next())
	require.Equal(t, a, b.Prev())
	require.True(t, a.Adjacent(b))
	require.True(t, b.Adjacent(a))
	require.False(t, a.Adjacent(Period{Year: 2025, Month: 2}))
	require.False(t, a.Adjacent(a))
}

func TestPeriodKey(t *testing.T) {
	t.Parallel()

	require.Equal(t, "2024-03", Period{Year: 2024, Month: 3}.Key())
	require.Equal(t, "1999-12", Period{Year: 1999, Month: 12}.Key())
}

func TestPeriodOf(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, time.July, 31, 23, 59, 0, 0, time.UTC)
	require.Equal(t, Period{Year: 2024, Month: 7}, PeriodOf(ts))
}
