package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/account"
	"github.com/stripe/stripe-go/v81/accountlink"
	"go.uber.org/zap"

	"github.com/spec-kit/creator-service/internal/config"
)

// StripeOracle implements ActivationOracle against Stripe Connect
// Express accounts.
type StripeOracle struct {
	cfg    config.StripeConfig
	logger *zap.Logger
}

// NewStripeOracle sets the global stripe key and returns the adapter.
func NewStripeOracle(cfg config.StripeConfig, logger *zap.Logger) *StripeOracle {
	if cfg.SecretKey == "" {
		logger.Warn("STRIPE_SECRET_KEY not provided; activation calls will fail")
	}
	stripe.Key = cfg.SecretKey
	return &StripeOracle{cfg: cfg, logger: logger}
}

// CreateAccount provisions an Express account and mints the first
// onboarding link.
func (o *StripeOracle) CreateAccount(ctx context.Context, identityID, email, displayName string) (*CreatedAccount, error) {
	params := &stripe.AccountParams{
		Type:  stripe.String(string(stripe.AccountTypeExpress)),
		Email: stripe.String(email),
		Capabilities: &stripe.AccountCapabilitiesParams{
			CardPayments: &stripe.AccountCapabilitiesCardPaymentsParams{Requested: stripe.Bool(true)},
			Transfers:    &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
		BusinessProfile: &stripe.AccountBusinessProfileParams{
			Name: stripe.String(displayName),
		},
	}
	params.Context = ctx
	params.AddMetadata("identity_id", identityID)

	acct, err := account.New(params)
	if err != nil {
		return nil, fmt.Errorf("create stripe account: %w", err)
	}

	url, err := o.OnboardingLink(ctx, acct.ID)
	if err != nil {
		return nil, err
	}

	o.logger.Info("created stripe account",
		zap.String("account_id", acct.ID),
		zap.String("identity_id", identityID))
	return &CreatedAccount{AccountID: acct.ID, OnboardingURL: url}, nil
}

// OnboardingLink mints a fresh hosted-onboarding URL. Links are single-use
// and short-lived on the Stripe side, so re-activation always needs a new one.
func (o *StripeOracle) OnboardingLink(ctx context.Context, accountID string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(o.cfg.OnboardingRefreshURL),
		ReturnURL:  stripe.String(o.cfg.OnboardingReturnURL),
		Type:       stripe.String(string(stripe.AccountLinkTypeAccountOnboarding)),
	}
	params.Context = ctx

	link, err := accountlink.New(params)
	if err != nil {
		return "", fmt.Errorf("create account link: %w", err)
	}
	return link.URL, nil
}

// GetStatus reads the account's capability flags and requirement state.
func (o *StripeOracle) GetStatus(ctx context.Context, accountID string) (*AccountStatus, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx

	acct, err := account.GetByID(accountID, params)
	if err != nil {
		return nil, fmt.Errorf("get stripe account: %w", err)
	}

	status := &AccountStatus{
		ChargesEnabled: acct.ChargesEnabled,
		PayoutsEnabled: acct.PayoutsEnabled,
		Raw:            "onboarding",
	}
	if acct.Requirements != nil {
		if reason := string(acct.Requirements.DisabledReason); reason != "" {
			status.Raw = reason
			// rejected.* reasons are permanent; everything else can clear
			status.Failed = strings.HasPrefix(reason, "rejected")
		} else if len(acct.Requirements.PendingVerification) > 0 {
			status.Raw = "pending_verification"
		} else if len(acct.Requirements.CurrentlyDue) > 0 {
			status.Raw = "requirements_due"
		} else {
			status.Raw = "complete"
		}
	}
	return status, nil
}
