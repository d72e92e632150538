package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/deskmate/internal/domain"
)

func okHandler(msg string) HandlerFunc {
	return func(context.Context, domain.Params) domain.Result { return domain.OK(msg) }
}

func TestRegistryRegister(t *testing.T) {
	tests := []struct {
		name    string
		entry   Entry
		wantErr bool
	}{
		{"valid", Entry{Name: "open_app", Fn: okHandler("x")}, false},
		{"empty name", Entry{Name: "  ", Fn: okHandler("x")}, true},
		{"nil handler", Entry{Name: "noop"}, true},
		{"reserved error", Entry{Name: "ERROR", Fn: okHandler("x")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			err := r.Register(tt.entry)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Zero(t, r.Len())
			} else {
				assert.NoError(t, err)
				assert.Equal(t, 1, r.Len())
			}
		})
	}
}

func TestRegistryDuplicateIsSetupError(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Entry{Name: "list_workflows", Fn: okHandler("workflows")}))

	err := r.Register(Entry{Name: "List_Workflows", Fn: okHandler("ecosystem")})
	require.ErrorIs(t, err, domain.ErrDuplicateAction)

	e, ok := r.Lookup("list_workflows")
	require.True(t, ok)
	res := e.Fn(context.Background(), nil)
	assert.Equal(t, "workflows", res.Message, "first registration must win")
	assert.Equal(t, 1, r.Len())

	assert.Panics(t, func() { r.MustRegister(Entry{Name: "list_workflows", Fn: okHandler("again")}) })
}

func TestRegistryFreeze(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Entry{Name: "get_time", Fn: okHandler("t")})
	r.Freeze()

	err := r.Register(Entry{Name: "get_date", Fn: okHandler("d")})
	assert.ErrorIs(t, err, domain.ErrRegistryFrozen)
	assert.True(t, r.Has("get_time"))
	assert.False(t, r.Has("get_date"))
}

func TestRegistryCatalogSorted(t *testing.T) {
	r := NewRegistry()
	for _, n := range []string{"take_screenshot", "get_time", "open_app"} {
		r.MustRegister(Entry{Name: n, Fn: okHandler(n)})
	}
	assert.Equal(t, []string{"get_time", "open_app", "take_screenshot"}, r.Names())
}
