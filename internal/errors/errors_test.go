package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without cause",
			err:  NewAppError(ErrTypeParse, "bad timestamp", nil),
			want: "[PARSE] bad timestamp",
		},
		{
			name: "with cause",
			err:  NewAppError(ErrTypeConfig, "load failed", errors.New("no such file")),
			want: "[CONFIG] load failed: no such file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewAppError(ErrTypeStorage, "write failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestIsType(t *testing.T) {
	err := NewInsufficientSampleError(3, 5)

	assert.True(t, IsType(err, ErrTypeInsufficientSample))
	assert.False(t, IsType(err, ErrTypeParse))
	assert.False(t, IsType(errors.New("plain"), ErrTypeParse))

	// Wrapped AppErrors are still matched.
	wrapped := fmt.Errorf("scan lag 2: %w", err)
	assert.True(t, IsType(wrapped, ErrTypeInsufficientSample))
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, ErrTypeInvalidMarket, TypeOf(NewInvalidMarketError("XNAS")))
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
}

func TestConstructors(t *testing.T) {
	t.Run("invalid market carries market id", func(t *testing.T) {
		err := NewInvalidMarketError("BOGUS")
		require.Equal(t, ErrTypeInvalidMarket, err.Type)
		assert.Equal(t, "BOGUS", err.Context["market_id"])
		assert.Contains(t, err.Error(), "BOGUS")
	})

	t.Run("invalid price carries symbol", func(t *testing.T) {
		err := NewInvalidPriceError("ACME", "close price is zero")
		require.Equal(t, ErrTypeInvalidPrice, err.Type)
		assert.Equal(t, "ACME", err.Context["symbol"])
	})

	t.Run("insufficient sample carries counts", func(t *testing.T) {
		err := NewInsufficientSampleError(1, 5)
		require.Equal(t, ErrTypeInsufficientSample, err.Type)
		assert.Equal(t, 1, err.Context["sample_size"])
		assert.Equal(t, 5, err.Context["min_sample_size"])
	})
}

func TestWithContext(t *testing.T) {
	err := NewOutOfRangeError("date before calendar start").
		WithContext("date", "2019-01-02").
		WithContext("market_id", "XNYS")

	assert.Equal(t, "2019-01-02", err.Context["date"])
	assert.Equal(t, "XNYS", err.Context["market_id"])
}
