// Package client builds OAuth2 HTTP clients for the Google APIs used by the
// Gmail importer and the Sheets exporter.
package client

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	callbackPort  = 8085
	callbackPath  = "/callback"
	serverTimeout = 5 * time.Minute
)

const successPage = `<!DOCTYPE html>
<html>
<head><title>spendwise</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 20vh;">
<h1>Signed in</h1>
<p>You can close this window and return to the terminal.</p>
</body>
</html>`

// Options controls where credentials are read from and stored.
type Options struct {
	// SecretFile is the OAuth client secret JSON downloaded from Google Cloud.
	SecretFile string
	// TokenFile caches the user token between runs.
	TokenFile string
	// Prompt receives the sign-in instructions. Defaults to os.Stdout.
	Prompt io.Writer
	Logger *slog.Logger
}

// New returns an authorized HTTP client for the given scopes. A cached token
// is reused when present; otherwise a browser sign-in is started and its
// token saved to opts.TokenFile.
func New(ctx context.Context, opts Options, scopes ...string) (*http.Client, error) {
	secret, err := os.ReadFile(opts.SecretFile)
	if err != nil {
		return nil, fmt.Errorf("reading client secret file: %w", err)
	}

	cfg, err := google.ConfigFromJSON(secret, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parsing client secret: %w", err)
	}

	f := &flow{
		cfg:         cfg,
		logger:      opts.Logger,
		prompt:      opts.Prompt,
		openBrowser: openBrowser,
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	if f.prompt == nil {
		f.prompt = os.Stdout
	}

	tok, err := LoadToken(opts.TokenFile)
	if err != nil {
		f.logger.Info("no cached token, starting browser sign-in", "token_file", opts.TokenFile)
		if tok, err = f.tokenFromWeb(ctx); err != nil {
			return nil, err
		}
		if err := saveToken(opts.TokenFile, tok); err != nil {
			f.logger.Error("failed to save token", "error", err)
		}
	}
	return cfg.Client(ctx, tok), nil
}

type flow struct {
	cfg         *oauth2.Config
	logger      *slog.Logger
	prompt      io.Writer
	openBrowser func(ctx context.Context, url string) error
}

func (f *flow) tokenFromWeb(ctx context.Context) (*oauth2.Token, error) {
	f.cfg.RedirectURL = fmt.Sprintf("http://localhost:%d%s", callbackPort, callbackPath)

	state, err := randomState()
	if err != nil {
		return nil, fmt.Errorf("generating state token: %w", err)
	}

	codes := make(chan string, 1)
	errs := make(chan error, 1)

	lc := net.ListenConfig{}
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("localhost:%d", callbackPort))
	if err != nil {
		return nil, fmt.Errorf("port %d unavailable: %w", callbackPort, err)
	}

	mux := http.NewServeMux()
	mux.Handle(callbackPath, callbackHandler(state, codes, errs))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			f.logger.Warn("error shutting down callback server", "error", err)
		}
	}()

	authURL := f.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
	fmt.Fprintf(f.prompt, "\nSign in with Google to continue.\nIf no browser opens, visit:\n%s\n\n", authURL)
	if err := f.openBrowser(ctx, authURL); err != nil {
		f.logger.Warn("failed to open browser automatically", "error", err)
	}

	timeout := time.NewTimer(serverTimeout)
	defer timeout.Stop()

	select {
	case code := <-codes:
		tok, err := f.cfg.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("exchanging authorization code for token: %w", err)
		}
		return tok, nil
	case err := <-errs:
		return nil, fmt.Errorf("oauth callback: %w", err)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timeout.C:
		return nil, fmt.Errorf("oauth flow timed out after %v", serverTimeout)
	}
}

// callbackHandler receives the provider redirect. Exactly one value is sent on
// codes or errs per request; both channels must be buffered.
func callbackHandler(state string, codes chan<- string, errs chan<- error) http.Handler {
	send := func(err error) {
		select {
		case errs <- err:
		default:
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			send(errors.New("invalid state parameter"))
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}
		if e := q.Get("error"); e != "" {
			send(fmt.Errorf("%s: %s", e, q.Get("error_description")))
			http.Error(w, "Authentication failed: "+e, http.StatusBadRequest)
			return
		}
		code := q.Get("code")
		if code == "" {
			send(errors.New("no authorization code received"))
			http.Error(w, "No authorization code received", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, successPage)
		select {
		case codes <- code:
		default:
		}
	})
}

func openBrowser(ctx context.Context, url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", url)
	case "linux":
		cmd = exec.CommandContext(ctx, "xdg-open", url)
	case "windows":
		cmd = exec.CommandContext(ctx, "cmd", "/c", "start", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}

func randomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// LoadToken reads a token cached by New.
func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decoding token: %w", err)
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating token file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	return nil
}
