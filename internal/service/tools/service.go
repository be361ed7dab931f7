package tools

import (
	"context"
	"fmt"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/alokkulkarni/connect-relay/internal/model/tool"
)

const (
	ToolUpdateAddress     = "update_address"
	ToolGetAccountBalance = "get_account_balance"

	simulatedBalance = 100.00
)

// Service simulates the backend tools exposed to the tool-calling interface.
// No data is persisted.
type Service struct {
	locale string
	now    func() time.Time
	log    *zap.Logger
}

func NewService(locale string, log *zap.Logger) *Service {
	if locale == "" {
		locale = "en_US"
	}
	return &Service{locale: locale, now: time.Now, log: log.With(zap.String("module", "tools"))}
}

// Invoke dispatches a tool call. Failures are reported in the envelope, never
// as a Go error.
func (s *Service) Invoke(_ context.Context, event tool.Event) tool.Response {
	s.log.Info("tool invoked", zap.String("tool", event.Tool))

	switch event.Tool {
	case "":
		return tool.Error("Invalid Tool Invocation: Tool name missing")
	case ToolUpdateAddress:
		return s.updateAddress(event.Arguments)
	case ToolGetAccountBalance:
		return s.accountBalance()
	default:
		return tool.Error(fmt.Sprintf("Tool %s not found", event.Tool))
	}
}

func (s *Service) updateAddress(args map[string]any) tool.Response {
	street := stringArg(args, "street")
	city := stringArg(args, "city")
	zip := stringArg(args, "zip_code")

	switch s.locale {
	case "en_US":
		if len(zip) != 5 || !digitsOnly(zip) {
			return tool.Error("Invalid US Zip Code (must be 5 digits)")
		}
	case "en_GB":
		if len(zip) < 5 || len(zip) > 8 {
			return tool.Error("Invalid UK Postcode")
		}
	}

	if zip == "00000" {
		return tool.Error("Invalid Zip Code")
	}

	s.log.Info("address updated", zap.String("city", city))
	return tool.Response{
		Status:  tool.StatusSuccess,
		Message: "Address updated successfully",
		UpdatedFields: map[string]any{
			"street":   street,
			"city":     city,
			"zip_code": zip,
		},
		Timestamp: s.now().Format(time.RFC3339),
	}
}

func (s *Service) accountBalance() tool.Response {
	balance := simulatedBalance
	return tool.Response{
		Status:   tool.StatusSuccess,
		Balance:  &balance,
		Currency: currencyFor(s.locale),
	}
}

func currencyFor(locale string) string {
	switch locale {
	case "en_GB":
		return "GBP"
	case "eu_FR", "eu_DE":
		return "EUR"
	default:
		return "USD"
	}
}

// stringArg returns args[key] when it is a string.
func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func digitsOnly(s string) bool {
	for _, c := range s {
		if !unicode.IsDigit(c) {
			return false
		}
	}
	return true
}
