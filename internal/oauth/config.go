package oauth

import (
	"strings"

	"golang.org/x/oauth2"
)

const (
	tokenPath = "/v2/oauth2"

	// AuthState is the fixed state value the Withings callback page echoes back.
	AuthState = "OK"
)

var scopes = []string{"user.metrics"}

type Settings struct {
	ClientID       string
	ConsumerSecret string
	CallbackURL    string
	AuthorizeURL   string
	// BaseURL is the Withings API root; the token endpoint lives at BaseURL + /v2/oauth2.
	BaseURL string
}

func NewConfig(s Settings) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.ClientID,
		ClientSecret: s.ConsumerSecret,
		RedirectURL:  s.CallbackURL,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   s.AuthorizeURL,
			TokenURL:  strings.TrimRight(s.BaseURL, "/") + tokenPath,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}
