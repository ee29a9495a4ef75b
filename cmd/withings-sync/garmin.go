package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	go_json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/garrettladley/withings-sync/internal/client/garmin"
	"github.com/garrettladley/withings-sync/internal/oauth"
)

var errMissingGarminToken = errors.New("either --token-file or --access-token is required")

func garminCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "garmin",
		Short: "Manage the Garmin Connect token",
	}
	cmd.AddCommand(garminLoginCmd(opts))
	return cmd
}

// garthToken is the oauth2_token.json layout written by the garth library.
type garthToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresAt    int64  `json:"expires_at"`
}

func (g garthToken) oauth2() *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  g.AccessToken,
		RefreshToken: g.RefreshToken,
		TokenType:    g.TokenType,
	}
	if g.ExpiresAt > 0 {
		token.Expiry = time.Unix(g.ExpiresAt, 0)
	}
	return token
}

func readGarthToken(path string) (garthToken, error) {
	var g garthToken
	data, err := os.ReadFile(path)
	if err != nil {
		return g, fmt.Errorf("failed to read token file: %w", err)
	}
	if err := go_json.Unmarshal(data, &g); err != nil {
		return g, fmt.Errorf("failed to parse token file: %w", err)
	}
	if g.AccessToken == "" {
		return g, fmt.Errorf("token file %s has no access_token", path)
	}
	return g, nil
}

func garminLoginCmd(opts *globalOptions) *cobra.Command {
	var (
		tokenFile string
		flagToken garthToken
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Import a Garmin Connect OAuth2 token",
		Long:  "Stores a Garmin Connect OAuth2 bearer token, either from a garth oauth2_token.json file or from flags.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			token := flagToken
			if tokenFile != "" {
				var err error
				if token, err = readGarthToken(tokenFile); err != nil {
					return err
				}
			}
			if token.AccessToken == "" {
				return errMissingGarminToken
			}

			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			tokens := oauth.NewDBTokenSource(garmin.Provider, a.repo.Tokens)
			oauthToken := token.oauth2()
			if err := tokens.Save(ctx, oauthToken); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Garmin token stored")
			if !oauthToken.Expiry.IsZero() {
				fmt.Fprintf(cmd.OutOrStdout(), "Token expires: %s\n", oauthToken.Expiry.Format(time.DateTime))
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&tokenFile, "token-file", "", "path to a garth oauth2_token.json")
	flags.StringVar(&flagToken.AccessToken, "access-token", "", "Garmin Connect access token")
	flags.StringVar(&flagToken.RefreshToken, "refresh-token", "", "Garmin Connect refresh token")
	flags.StringVar(&flagToken.TokenType, "token-type", "Bearer", "token type")
	flags.Int64Var(&flagToken.ExpiresAt, "expires-at", 0, "token expiry as a Unix timestamp")
	return cmd
}
