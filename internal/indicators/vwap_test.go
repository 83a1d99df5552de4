package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tradingDashboard/internal/domain"
)

func TestCalculateVWAP(t *testing.T) {
	tests := []struct {
		name   string
		klines []*domain.Kline
		want   float64
	}{
		{
			name: "volume weighted typical price",
			klines: []*domain.Kline{
				{High: 10, Low: 8, Close: 9, Volume: 100},
				{High: 12, Low: 9, Close: 11, Volume: 300},
			},
			want: 10.25,
		},
		{
			name: "zero volume falls back to last close",
			klines: []*domain.Kline{
				{High: 10, Low: 8, Close: 9},
				{High: 12, Low: 9, Close: 11},
			},
			want: 11,
		},
		{
			name:   "empty",
			klines: nil,
			want:   0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CalculateVWAP(tt.klines), tolerance)
		})
	}
}
