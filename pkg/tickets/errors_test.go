package tickets

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		want     Kind
		wantMsg  string
		wantSafe bool
	}{
		{name: "nil", err: nil, want: KindUnknown},
		{name: "plain", err: errors.New("boom"), want: KindUnknown},
		{name: "engine", err: notFound("No panel %q.", "x"), want: KindNotFound, wantMsg: `No panel "x".`, wantSafe: true},
		{name: "wrapped", err: fmt.Errorf("error claiming: %w", denied("No.")), want: KindPermissionDenied, wantMsg: "No.", wantSafe: true},
		{name: "denial", err: &Denial{Reason: DenyCooldown, Message: "Wait."}, want: KindEligibility, wantMsg: "Wait.", wantSafe: true},
		{name: "gone", err: fmt.Errorf("error sending: %w", ErrContainerGone), want: KindNotFound},
		{name: "adapter", err: wrapError(KindAdapter, ErrNameRejected, "Rejected."), want: KindAdapter, wantMsg: "Rejected.", wantSafe: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, KindOf(tt.err))
			msg, ok := UserMessage(tt.err)
			require.Equal(t, tt.wantSafe, ok)
			require.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestError(t *testing.T) {
	err := wrapError(KindAdapter, ErrNameRejected, "Rejected.")
	require.ErrorIs(t, err, ErrNameRejected)
	require.Equal(t, "adapter: Rejected.: container name rejected", err.Error())
	require.Equal(t, "invalid: Bad.", invalid("Bad.").Error())
	require.Equal(t, "unknown", KindUnknown.String())
}
