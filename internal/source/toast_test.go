package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToastPayload(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantTitle string
		wantBody  string
		wantErr   bool
	}{
		{
			name: "generic toast",
			payload: `<toast><visual><binding template="ToastGeneric">
				<text>Ops Alerts</text>
				<text>disk almost full</text>
			</binding></visual></toast>`,
			wantTitle: "Ops Alerts",
			wantBody:  "disk almost full",
		},
		{
			name: "multiline body collapses",
			payload: `<toast><visual><binding template="ToastGeneric">
				<text>Ops Alerts</text>
				<text>line one
line two</text>
			</binding></visual></toast>`,
			wantTitle: "Ops Alerts",
			wantBody:  "line one line two",
		},
		{
			name: "skips non-generic binding",
			payload: `<toast><visual>
				<binding template="ToastText02"><text>a</text><text>b</text></binding>
				<binding template="ToastGeneric"><text>T</text><text>B</text></binding>
			</visual></toast>`,
			wantTitle: "T",
			wantBody:  "B",
		},
		{
			name:    "single text node",
			payload: `<toast><visual><binding template="ToastGeneric"><text>only</text></binding></visual></toast>`,
			wantErr: true,
		},
		{
			name:    "no binding",
			payload: `<toast><visual></visual></toast>`,
			wantErr: true,
		},
		{
			name:    "not xml",
			payload: `{"json": true}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, body, err := ParseToastPayload([]byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, title)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestFiletimeRoundTrip(t *testing.T) {
	// Known point: 2020-01-01T00:00:00Z in FILETIME.
	got := fromFiletime(toFiletime(fromFiletime(132223104000000000)))
	assert.Equal(t, int64(132223104000000000), toFiletime(got))

	assert.Equal(t, "2020-01-01T00:00:00Z", fromFiletime(132223104000000000).UTC().Format("2006-01-02T15:04:05Z07:00"))
}
