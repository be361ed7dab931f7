package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alokkulkarni/connect-relay/internal/model/tool"
)

func newTools(locale string) *Service {
	svc := NewService(locale, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func address(zip string) tool.Event {
	return tool.Event{Tool: ToolUpdateAddress, Arguments: map[string]any{
		"street": "1 Main St", "city": "Springfield", "zip_code": zip,
	}}
}

func TestInvokeRejectsMissingAndUnknownTools(t *testing.T) {
	svc := newTools("en_US")

	assert.Equal(t, tool.Error("Invalid Tool Invocation: Tool name missing"), svc.Invoke(context.Background(), tool.Event{}))
	assert.Equal(t, tool.Error("Tool transfer_funds not found"), svc.Invoke(context.Background(), tool.Event{Tool: "transfer_funds"}))
}

func TestUpdateAddressSuccess(t *testing.T) {
	resp := newTools("en_US").Invoke(context.Background(), address("62704"))

	assert.Equal(t, tool.StatusSuccess, resp.Status)
	assert.Equal(t, "Address updated successfully", resp.Message)
	assert.Equal(t, map[string]any{"street": "1 Main St", "city": "Springfield", "zip_code": "62704"}, resp.UpdatedFields)
	assert.Equal(t, "2024-05-01T12:00:00Z", resp.Timestamp)
}

func TestUpdateAddressLocaleValidation(t *testing.T) {
	cases := []struct {
		locale string
		zip    string
		want   string
	}{
		{"en_US", "1234", "Invalid US Zip Code (must be 5 digits)"},
		{"en_US", "12a45", "Invalid US Zip Code (must be 5 digits)"},
		{"en_US", "00000", "Invalid Zip Code"},
		{"en_GB", "SW1", "Invalid UK Postcode"},
		{"en_GB", "SW1A 1AA 9", "Invalid UK Postcode"},
		{"en_GB", "00000", "Invalid Zip Code"},
		{"eu_FR", "00000", "Invalid Zip Code"},
	}

	for _, tc := range cases {
		t.Run(tc.locale+"/"+tc.zip, func(t *testing.T) {
			resp := newTools(tc.locale).Invoke(context.Background(), address(tc.zip))
			assert.Equal(t, tool.Error(tc.want), resp)
		})
	}

	ok := newTools("en_GB").Invoke(context.Background(), address("SW1A 1AA"))
	assert.Equal(t, tool.StatusSuccess, ok.Status)
}

func TestUpdateAddressIgnoresNonStringArguments(t *testing.T) {
	resp := newTools("en_US").Invoke(context.Background(), tool.Event{Tool: ToolUpdateAddress, Arguments: map[string]any{"zip_code": 62704}})
	assert.Equal(t, tool.StatusError, resp.Status)
}

func TestAccountBalanceCurrency(t *testing.T) {
	cases := map[string]string{"en_US": "USD", "en_GB": "GBP", "eu_FR": "EUR", "eu_DE": "EUR", "ja_JP": "USD", "": "USD"}

	for locale, currency := range cases {
		resp := newTools(locale).Invoke(context.Background(), tool.Event{Tool: ToolGetAccountBalance})
		require.NotNil(t, resp.Balance, locale)
		assert.Equal(t, 100.00, *resp.Balance)
		assert.Equal(t, currency, resp.Currency, locale)
	}
}
