package contractors

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/account"
	"github.com/stripe/stripe-go/v84/accountlink"

	pkgstripe "github.com/homease/homease-backend/pkg/stripe"
)

// ConnectClient exposes the subset of Stripe Connect operations required by onboarding.
type ConnectClient interface {
	CreateAccount(ctx context.Context, params *stripe.AccountParams) (*stripe.Account, error)
	CreateAccountLink(ctx context.Context, params *stripe.AccountLinkParams) (*stripe.AccountLink, error)
}

type connectClientWrapper struct{}

// NewConnectClient wraps the configured Stripe client so onboarding can be tested.
func NewConnectClient(api *pkgstripe.Client) ConnectClient {
	if api == nil {
		return nil
	}
	return &connectClientWrapper{}
}

func (w *connectClientWrapper) CreateAccount(ctx context.Context, params *stripe.AccountParams) (*stripe.Account, error) {
	if params != nil {
		params.Context = ctx
	}
	return account.New(params)
}

func (w *connectClientWrapper) CreateAccountLink(ctx context.Context, params *stripe.AccountLinkParams) (*stripe.AccountLink, error) {
	if params != nil {
		params.Context = ctx
	}
	return accountlink.New(params)
}
