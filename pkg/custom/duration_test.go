package custom

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Duration
		wantErr bool
	}{
		{name: "minutes", in: "90m", want: 90 * time.Minute},
		{name: "bare number is minutes", in: "45", want: 45 * time.Minute},
		{name: "days", in: "2d", want: 48 * time.Hour},
		{name: "compound", in: "1w2d6h", want: (7*24 + 2*24 + 6) * time.Hour},
		{name: "spaces and case", in: " 1H 30M ", want: 90 * time.Minute},
		{name: "zero", in: "0m", want: 0},
		{name: "empty", in: "", wantErr: true},
		{name: "unknown unit", in: "3y", wantErr: true},
		{name: "missing unit", in: "3h20", wantErr: true},
		{name: "negative", in: "-5", wantErr: true},
		{name: "unit without number", in: "h", wantErr: true},
		{name: "largest weeks", in: "15250w", want: 15250 * 7 * 24 * time.Hour},
		{name: "weeks overflow", in: "20000w", wantErr: true},
		{name: "bare minutes overflow", in: "16000000000000", wantErr: true},
		{name: "sum overflows", in: "15250w15250w", wantErr: true},
		{name: "number too large to parse", in: "99999999999999999999s", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidDuration)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got.Std())
		})
	}
}

func TestDuration_String(t *testing.T) {
	require.Equal(t, "1h30m", Duration(90*time.Minute).String())
	require.Equal(t, "1w1d", Duration(8*24*time.Hour).String())
	require.Equal(t, "0m", Duration(0).String())
}

func TestDuration_JSON(t *testing.T) {
	type doc struct {
		Cooldown Duration `json:"cooldown"`
	}

	b, err := json.Marshal(doc{Cooldown: Duration(2 * time.Hour)})
	require.NoError(t, err)
	require.JSONEq(t, `{"cooldown":"2h"}`, string(b))

	var got doc
	require.NoError(t, json.Unmarshal([]byte(`{"cooldown":"1d"}`), &got))
	require.Equal(t, 24*time.Hour, got.Cooldown.Std())

	require.Error(t, json.Unmarshal([]byte(`{"cooldown":"soon"}`), &got))
}
