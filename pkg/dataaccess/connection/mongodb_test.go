package connection

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMongoDB_GenerateConnectionString(t *testing.T) {
	tests := []struct {
		name string
		m    *MongoDB
		want string
	}{
		{
			name: "host only",
			m:    &MongoDB{Host: "cluster0.example.net"},
			want: "mongodb+srv://cluster0.example.net",
		},
		{
			name: "credentials port and args",
			m:    &MongoDB{Username: "ticketwolf", Password: "secret", Host: "db", Port: "27017", Args: "retryWrites=true"},
			want: "mongodb+srv://ticketwolf:secret@db:27017/?retryWrites=true",
		},
		{
			name: "username without password",
			m:    &MongoDB{Username: "ticketwolf", Host: "db"},
			want: "mongodb+srv://ticketwolf@db",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.m.GenerateConnectionString()
			require.Equal(t, tt.want, tt.m.ConnectionString)
		})
	}
}
