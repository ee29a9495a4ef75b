package oauth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
)

var ErrEmptyCode = errors.New("no authorization code entered")

// Prompter hands the authorize URL to the operator and returns the code they paste back.
type Prompter interface {
	AuthorizationCode(ctx context.Context, authURL string) (string, error)
}

type TerminalPrompter struct {
	In          io.Reader
	Out         io.Writer
	OpenBrowser bool
}

var _ Prompter = (*TerminalPrompter)(nil)

func (p *TerminalPrompter) AuthorizationCode(ctx context.Context, authURL string) (string, error) {
	_, _ = fmt.Fprintf(p.Out, "User interaction needed to get Authentification Code from Withings!\n\n")
	_, _ = fmt.Fprintf(p.Out, "Open the following URL in your web browser and copy back the token.\n")
	_, _ = fmt.Fprintf(p.Out, "You will have *30 seconds* before the token expires. HURRY UP!\n")
	_, _ = fmt.Fprintf(p.Out, "(This is one-time activity)\n\n%s\n\n", authURL)

	if p.OpenBrowser {
		if err := openBrowser(authURL); err != nil {
			_, _ = fmt.Fprintf(p.Out, "Failed to open browser: %v\n", err)
		}
	}

	_, _ = fmt.Fprint(p.Out, "Token : ")

	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := bufio.NewReader(p.In).ReadString('\n')
		ch <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		code := strings.TrimSpace(r.line)
		if r.err != nil && !errors.Is(r.err, io.EOF) {
			return "", fmt.Errorf("failed to read authorization code: %w", r.err)
		}
		if code == "" {
			return "", ErrEmptyCode
		}
		return code, nil
	}
}

func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
