package server

import (
	"context"

	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/config"
	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/session"
	"github.com/Dannaccb/be-kind/pkg/sdk"
	"github.com/sirupsen/logrus"
)

// APIClient is the SDK surface the handlers call.
type APIClient interface {
	Login(ctx context.Context, input sdk.LoginInput) (*sdk.LoginResult, error)
	ListActions(ctx context.Context, input sdk.ListActionsInput) (*sdk.ActionPage, error)
	CreateAction(ctx context.Context, input sdk.CreateActionInput) (*sdk.Action, error)
}

// ClientFactory returns a client bound to one browser session.
type ClientFactory func(sess *session.Session) APIClient

// NewSDKClientFactory builds clients that read the bearer token from the
// session and end the session when the API rejects it.
func NewSDKClientFactory(cfg config.APIConfig, logger logrus.FieldLogger, observer sdk.Observer) ClientFactory {
	return func(sess *session.Session) APIClient {
		opts := []sdk.ClientOption{
			sdk.WithAuthURL(cfg.AuthURL),
			sdk.WithTimeout(cfg.Timeout),
			sdk.WithTokenSource(sess.TokenSource()),
			sdk.WithUnauthorizedHandler(sess.HandleUnauthorized),
			sdk.WithLogger(logger.WithField("session_id", sess.ID())),
		}
		if observer != nil {
			opts = append(opts, sdk.WithObserver(observer))
		}
		if cfg.StrictContract {
			opts = append(opts, sdk.WithStrictContract())
		}
		return sdk.NewClient(cfg.BaseURL, opts...)
	}
}
