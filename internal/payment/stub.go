package payment

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Stub implements Provider without any network call, for local development.
type Stub struct {
	BaseURL string
	// NewID overrides session id generation; defaults to a random UUID.
	NewID func() string
}

// CreateCheckoutSession synthesises a session whose URL lives under BaseURL.
func (s Stub) CreateCheckoutSession(_ context.Context, req SessionRequest) (Session, error) {
	if err := req.Validate(); err != nil {
		return Session{}, &ProviderError{Provider: "stub", Message: err.Error(), HTTPStatus: http.StatusBadRequest, Err: err}
	}
	id := "cs_stub_" + strings.ReplaceAll(s.newID(), "-", "")
	host := strings.TrimRight(strings.TrimSpace(s.BaseURL), "/")
	if host == "" {
		host = "https://checkout.stub.local/pay"
	}
	return Session{
		ID:  id,
		URL: fmt.Sprintf("%s/%s", host, id),
	}, nil
}

func (s Stub) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}
