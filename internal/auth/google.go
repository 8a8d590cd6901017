package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// GoogleProvider implements Provider over the Google OAuth2 web flow:
// authorization-code exchange followed by a userinfo lookup. The
// userinfo subject id is the stable identity reference.
type GoogleProvider struct {
	cfg *oauth2.Config

	mu      sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

var _ Provider = (*GoogleProvider)(nil)

// NewGoogleFromEnv builds the provider from environment configuration.
// Required: GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE, and
// OAUTH_REDIRECT_URL.
func NewGoogleFromEnv() (*GoogleProvider, error) {
	clientJSON := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"))
	clientFile := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"))

	var b []byte
	var err error
	switch {
	case clientJSON != "":
		b = []byte(clientJSON)
	case clientFile != "":
		b, err = os.ReadFile(clientFile)
		if err != nil {
			return nil, fmt.Errorf("read oauth client file: %w", err)
		}
	default:
		return nil, errors.New("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
	}

	cfg, err := google.ConfigFromJSON(b,
		oauth2api.UserinfoEmailScope,
		oauth2api.UserinfoProfileScope,
	)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}

	redirectURL := strings.TrimSpace(os.Getenv("OAUTH_REDIRECT_URL"))
	if redirectURL == "" {
		return nil, errors.New("set OAUTH_REDIRECT_URL")
	}
	cfg.RedirectURL = redirectURL

	return &GoogleProvider{cfg: cfg, subs: map[int]func(Event){}}, nil
}

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Authenticate exchanges the authorization code and resolves the
// userinfo profile, then notifies subscribers of the sign-in.
func (p *GoogleProvider) Authenticate(ctx context.Context, code string) (Identity, error) {
	tok, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: code exchange: %v", ErrAuthProvider, err)
	}

	svc, err := oauth2api.NewService(ctx, option.WithTokenSource(p.cfg.TokenSource(ctx, tok)))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: userinfo service: %v", ErrAuthProvider, err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return Identity{}, fmt.Errorf("%w: userinfo lookup: %v", ErrAuthProvider, err)
	}
	if info.Id == "" || info.Email == "" {
		return Identity{}, fmt.Errorf("%w: userinfo response missing subject or email", ErrAuthProvider)
	}

	id := Identity{Ref: info.Id, Email: info.Email, Name: info.Name}
	p.emit(Event{Identity: id})
	return id, nil
}

func (p *GoogleProvider) SignOut(ref string) {
	p.emit(Event{Identity: Identity{Ref: ref}, SignedOut: true})
}

func (p *GoogleProvider) Subscribe(handler func(Event)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = handler
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

func (p *GoogleProvider) emit(ev Event) {
	p.mu.Lock()
	handlers := make([]func(Event), 0, len(p.subs))
	for _, h := range p.subs {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}
