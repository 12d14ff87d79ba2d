package services

import "context"

// Remote function names
const (
	FnRealTimeScraper   = "real-time-scraper"
	FnTestOEMScraper    = "test-oem-scraper"
	FnSendNotifications = "send-notifications"
	FnGeminiChat        = "gemini-chat"
)

// FunctionInvoker calls named remote functions. *gateway.Client implements it.
type FunctionInvoker interface {
	Invoke(ctx context.Context, name string, body interface{}, dest interface{}) error
}
