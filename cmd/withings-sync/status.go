package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/garrettladley/withings-sync/internal/client/garmin"
	"github.com/garrettladley/withings-sync/internal/credential"
	"github.com/garrettladley/withings-sync/internal/oauth"
)

func statusCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authorization state and sync watermarks",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			store, err := a.credentials()
			if err != nil {
				return err
			}
			session := a.session(store, nil)

			lines := []string{
				titleStyle.Render("withings-sync"),
				row("Credentials", store.Path()),
				row("Withings", withingsState(session.State())),
			}
			if userID := store.String(credential.KeyUserID); userID != "" {
				lines = append(lines, row("User", userID))
			}
			for _, p := range []credential.Platform{credential.PlatformGarmin, credential.PlatformTrainerRoad} {
				lines = append(lines, row("Last "+p.String(), watermark(store, p)))
			}

			tokens := oauth.NewDBTokenSource(garmin.Provider, a.repo.Tokens)
			lines = append(lines, row("Garmin token", garminState(tokens)))

			fmt.Fprintln(cmd.OutOrStdout(), lipgloss.JoinVertical(lipgloss.Left, lines...))
			return nil
		},
	}
}

func withingsState(state oauth.State) string {
	label := strings.ReplaceAll(state.String(), "_", " ")
	if state == oauth.StateNoCode {
		return badStyle.Render(label)
	}
	return okStyle.Render(label)
}

func watermark(store *credential.Store, p credential.Platform) string {
	ts, ok := store.Watermark(p)
	if !ok {
		return badStyle.Render("never")
	}
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}

func garminState(tokens *oauth.DBTokenSource) string {
	token, err := tokens.Token()
	switch {
	case errors.Is(err, oauth.ErrNoToken):
		return badStyle.Render("missing")
	case errors.Is(err, oauth.ErrTokenExpired):
		return badStyle.Render("expired")
	case err != nil:
		return badStyle.Render(err.Error())
	case token.Expiry.IsZero():
		return okStyle.Render("stored")
	default:
		return okStyle.Render("valid until " + token.Expiry.UTC().Format(time.RFC3339))
	}
}
