package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		want      time.Time
	}{
		{name: "rfc3339 with offset", input: "2024-03-01T09:30:00+01:00", wantValid: true, want: time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)},
		{name: "rfc3339 zulu with millis", input: "2024-03-01T09:30:00.123Z", wantValid: true, want: time.Date(2024, 3, 1, 9, 30, 0, 123000000, time.UTC)},
		{name: "no zone", input: "2024-03-01T09:30:00", wantValid: true, want: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)},
		{name: "no zone with micros", input: "2024-03-01T09:30:00.500000", wantValid: true, want: time.Date(2024, 3, 1, 9, 30, 0, 500000000, time.UTC)},
		{name: "date only", input: "2024-03-01", wantValid: true, want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{name: "garbage", input: "next tuesday", wantValid: false},
		{name: "empty", input: "", wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := ParseTimestamp(tt.input)
			assert.Equal(t, tt.input, ts.Raw)
			assert.Equal(t, tt.wantValid, ts.Valid())
			if tt.wantValid {
				assert.True(t, tt.want.Equal(ts.Time), "got %v", ts.Time)
			}
		})
	}
}

func TestTimestamp_JSON(t *testing.T) {
	var m Meeting
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","title":"x","start_time":null,"end_time":"soon"}`), &m))
	assert.True(t, m.StartTime.IsZero())
	assert.False(t, m.EndTime.Valid())
	assert.Equal(t, "soon", m.EndTime.String())

	out, err := json.Marshal(Timestamp{Raw: "2024-03-01"})
	require.NoError(t, err)
	assert.JSONEq(t, `"2024-03-01"`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"start_time": 5}`), &m))
}

func TestByteSize_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		input   string
		want    ByteSize
		wantErr bool
	}{
		{input: `1024`, want: 1024},
		{input: `"2048"`, want: 2048},
		{input: `""`, want: 0},
		{input: `null`, want: 0},
		{input: `1.5e3`, want: 1500},
		{input: `"big"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var b ByteSize
			err := json.Unmarshal([]byte(tt.input), &b)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, b)
		})
	}
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil, "x"))
	assert.Equal(t, "quota exceeded", UserMessage(&Error{Op: "list_meetings", Status: 200, Message: "quota exceeded"}, "fallback"))
	assert.Equal(t, "fallback", UserMessage(&Error{Op: "list_meetings", Status: 500}, "fallback"))
	assert.Equal(t, "Internal Server Error", UserMessage(&Error{Op: "list_meetings", Status: 500}, ""))
	assert.Equal(t, "Unable to reach the server: connection refused",
		UserMessage(&TransportError{Op: "login", Err: errString("connection refused")}, ""))
}

type errString string

func (e errString) Error() string { return string(e) }
