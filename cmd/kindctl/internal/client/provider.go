package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Dannaccb/be-kind/cmd/kindctl/internal/auth"
	"github.com/Dannaccb/be-kind/pkg/sdk"
	"github.com/pterm/pterm"
	"golang.org/x/oauth2"
)

// Options configure a Provider.
type Options struct {
	APIURL  string
	AuthURL string
	Timeout time.Duration
	// BearerToken bypasses the credential store (CI, scripts).
	BearerToken string
}

// Provider yields SDK clients backed by the credential store.
type Provider struct {
	opts Options

	storeOnce sync.Once
	store     *auth.FileStore
	storeErr  error

	sdkOnce   sync.Once
	sdkClient *sdk.Client
	sdkErr    error
}

// NewProvider constructs a Provider for the given endpoints.
func NewProvider(opts Options) *Provider {
	return &Provider{opts: opts}
}

// Store returns the credential store shared by the commands.
func (p *Provider) Store() (*auth.FileStore, error) {
	p.storeOnce.Do(func() {
		p.store, p.storeErr = auth.NewFileStore()
	})
	return p.store, p.storeErr
}

// Credentials loads the stored login.
func (p *Provider) Credentials() (*sdk.Credentials, error) {
	store, err := p.Store()
	if err != nil {
		return nil, err
	}
	return store.LoadCredentials()
}

// AnonymousClient is used for login, which carries no bearer token.
func (p *Provider) AnonymousClient() *sdk.Client {
	return sdk.NewClient(p.opts.APIURL, p.baseOptions()...)
}

// SDKClient returns a client that sends the stored token. A token the API
// rejects is removed from the store, the same way the admin ends a session.
func (p *Provider) SDKClient(ctx context.Context) (*sdk.Client, error) {
	p.sdkOnce.Do(func() {
		source, err := p.tokenSource()
		if err != nil {
			p.sdkErr = err
			return
		}

		opts := append(p.baseOptions(),
			sdk.WithTokenSource(source),
			sdk.WithUnauthorizedHandler(p.forget),
		)
		p.sdkClient = sdk.NewClient(p.opts.APIURL, opts...)
	})

	if p.sdkErr != nil {
		return nil, p.sdkErr
	}
	return p.sdkClient, nil
}

func (p *Provider) baseOptions() []sdk.ClientOption {
	opts := []sdk.ClientOption{}
	if p.opts.AuthURL != "" {
		opts = append(opts, sdk.WithAuthURL(p.opts.AuthURL))
	}
	if p.opts.Timeout > 0 {
		opts = append(opts, sdk.WithTimeout(p.opts.Timeout))
	}
	return opts
}

func (p *Provider) tokenSource() (oauth2.TokenSource, error) {
	if p.opts.BearerToken != "" {
		return sdk.StaticTokenSource(p.opts.BearerToken), nil
	}

	creds, err := p.Credentials()
	if err != nil {
		return nil, err
	}
	if creds.IsExpired() {
		return nil, errors.New("access token expired; please run `kindctl auth login`")
	}
	return sdk.StaticTokenSource(creds.AccessToken), nil
}

func (p *Provider) forget(context.Context) {
	if p.opts.BearerToken != "" {
		return
	}
	store, err := p.Store()
	if err != nil {
		return
	}
	if err := store.DeleteCredentials(); err != nil {
		pterm.Warning.Printf("failed to remove rejected credentials: %v\n", err)
		return
	}
	pterm.Warning.Println("The API rejected the stored token; run `kindctl auth login` again.")
}
