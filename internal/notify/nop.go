package notify

import "context"

// NopChannel discards all messages. Used when no gateway is configured and
// in tests.
type NopChannel struct{}

func (NopChannel) SendText(_ context.Context, _, _ string) error     { return nil }
func (NopChannel) SendImage(_ context.Context, _, _, _ string) error { return nil }
