package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"
)

func oauthConfig(cfg Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  "http://localhost:8400/callback",
		Scopes:       []string{sheets.SpreadsheetsScope},
	}
}

// GetOrCreateToken loads a saved token, refreshing it when expired, or runs
// the interactive browser flow when none exists yet.
func GetOrCreateToken(ctx context.Context, cfg Config) (*oauth2.Token, error) {
	if cfg.TokenFile != "" {
		token, err := loadToken(cfg.TokenFile)
		if err == nil {
			if token.Valid() {
				return token, nil
			}
			refreshed, err := oauthConfig(cfg).TokenSource(ctx, token).Token()
			if err != nil {
				slog.Warn("failed to refresh Google token, re-authenticating", "error", err)
			} else {
				if err := saveToken(cfg.TokenFile, refreshed); err != nil {
					slog.Warn("failed to save refreshed token", "error", err)
				}
				return refreshed, nil
			}
		}
	}
	return authenticateInteractive(ctx, cfg)
}

// authenticateInteractive runs the OAuth2 authorization-code flow with a
// local callback server.
func authenticateInteractive(ctx context.Context, cfg Config) (*oauth2.Token, error) {
	conf := oauthConfig(cfg)

	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			errChan <- fmt.Errorf("no authorization code received")
			fmt.Fprint(w, "<html><body><h1>Authentication failed</h1><p>No authorization code received. Please try again.</p></body></html>")
			return
		}
		codeChan <- code
		fmt.Fprint(w, "<html><body><h1>Authentication successful</h1><p>You can close this window and return to the terminal.</p></body></html>")
	})

	server := &http.Server{Addr: ":8400", Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- fmt.Errorf("failed to start callback server: %w", err)
		}
	}()
	defer func() { _ = server.Shutdown(context.Background()) }()

	authURL := conf.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	slog.Info("Google authentication required")
	slog.Info("Please visit this URL to authenticate", "url", authURL)

	var code string
	select {
	case code = <-codeChan:
	case err := <-errChan:
		return nil, err
	case <-time.After(5 * time.Minute):
		return nil, fmt.Errorf("authentication timeout: no response received within 5 minutes")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if cfg.TokenFile != "" {
		if err := saveToken(cfg.TokenFile, token); err != nil {
			slog.Warn("failed to save token", "error", err, "file", cfg.TokenFile)
		}
	}
	return token, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	token := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(token)
	return token, err
}

func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	return nil
}
