package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/deskmate/internal/domain"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"bare", `{"action":"get_time"}`, `{"action":"get_time"}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", `Okay. {"a":{"b":2}} Done!`, `{"a":{"b":2}}`},
		{"brace in string", `{"text":"smile :} ok"}`, `{"text":"smile :} ok"}`},
		{"escaped quote", `{"text":"say \"}\" loud"} trailing`, `{"text":"say \"}\" loud"}`},
		{"stray quote in prose", `He said "do it: {"a":1}`, `{"a":1}`},
		{"first of two", `{"a":1} and {"b":2}`, `{"a":1}`},
		{"placeholder before object", `Use {name} like this: {"action":"get_time","parameters":{}}`, `{"action":"get_time","parameters":{}}`},
		{"object inside invalid span", `{oops {"a":1}} then {"b":2}`, `{"a":1}`},
		{"no valid object keeps first", `{name} or {id}`, `{name}`},
		{"unbalanced falls back", `{"a":{"b":1}`, `{"a":{"b":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.reply)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSONNone(t *testing.T) {
	for _, reply := range []string{"", "no braces here", "} backwards {"} {
		_, err := ExtractJSON(reply)
		assert.ErrorIs(t, err, domain.ErrParse, reply)
	}
}
