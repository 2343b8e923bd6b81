package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/finleyhq/finley/internal/cli"
	"github.com/finleyhq/finley/internal/tokenstore"
)

func linkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Connect a bank account",
		Long: `Connect a bank account through Plaid Link.

This command will:
1. Start a local web server
2. Open Plaid Link in your browser
3. Let you connect a bank account
4. Save the access token for future syncs`,
		RunE: runLink,
	}

	cmd.Flags().Int("port", 8080, "local port for the Link page")
	return cmd
}

type linkSuccess struct {
	AccessToken     string
	ItemID          string
	InstitutionName string
}

func runLink(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	port, _ := cmd.Flags().GetInt("port")

	client, err := newPlaidClient()
	if err != nil {
		return fmt.Errorf("failed to create aggregator client: %w", err)
	}

	linkToken, err := client.CreateLinkToken(ctx, profileName())
	if err != nil {
		return fmt.Errorf("failed to create link token: %w", err)
	}

	successChan := make(chan linkSuccess, 1)
	errorChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprintf(w, linkPageHTML, linkToken)
	})
	mux.HandleFunc("/exchange", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			PublicToken string `json:"public_token"`
			Metadata    struct {
				Institution struct {
					Name string `json:"name"`
				} `json:"institution"`
			} `json:"metadata"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "Invalid request"})
			return
		}

		accessToken, itemID, err := client.ExchangePublicToken(r.Context(), req.PublicToken)
		if err != nil {
			errorChan <- fmt.Errorf("failed to exchange token: %w", err)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "Failed to exchange token"})
			return
		}

		successChan <- linkSuccess{
			AccessToken:     accessToken,
			ItemID:          itemID,
			InstitutionName: req.Metadata.Institution.Name,
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			errorChan <- fmt.Errorf("failed to start link server: %w", err)
		}
	}()
	defer func() { _ = server.Close() }()

	url := fmt.Sprintf("http://localhost:%d", port)
	fmt.Println(cli.FormatTitle("Connect your bank account"))
	fmt.Printf("Open %s in your browser to continue.\n", cli.BoldStyle.Render(url))

	select {
	case success := <-successChan:
		tokens := newTokenStore()
		if err := tokens.Save(tokenstore.Connection{
			AccessToken: success.AccessToken,
			ItemID:      success.ItemID,
		}); err != nil {
			return fmt.Errorf("failed to save access token: %w", err)
		}

		bank := success.InstitutionName
		if bank == "" {
			bank = "your bank"
		}
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Connected to %s. Run 'finley sync' to pull transactions.", bank)))
		return nil
	case err := <-errorChan:
		return err
	case <-time.After(10 * time.Minute):
		return fmt.Errorf("link timeout: no connection completed within 10 minutes")
	case <-ctx.Done():
		slog.Info("link canceled")
		return ctx.Err()
	}
}

const linkPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Connect Your Bank Account - Finley</title>
    <script src="https://cdn.plaid.com/link/v2/stable/link-initialize.js"></script>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background-color: #f5f5f5; }
        .container { text-align: center; background: white; padding: 40px; border-radius: 8px;
                    box-shadow: 0 2px 10px rgba(0,0,0,0.1); }
        h1 { color: #333; margin-bottom: 20px; }
        button { background-color: #2BB673; color: white; padding: 12px 24px;
                font-size: 16px; border: none; border-radius: 4px; cursor: pointer; }
        button:hover { background-color: #249c62; }
        .error { color: #d32f2f; margin-top: 20px; }
        .success { color: #388e3c; margin-top: 20px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>🏦 Connect Your Bank Account</h1>
        <p>Click the button below to securely connect your bank account through Plaid.</p>
        <button id="link-button">Connect Bank Account</button>
        <div id="message"></div>
    </div>

    <script>
    const linkHandler = Plaid.create({
        token: '%s',
        onSuccess: (public_token, metadata) => {
            document.getElementById('message').innerHTML =
                '<div class="success">Processing connection...</div>';

            fetch('/exchange', {
                method: 'POST',
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify({ public_token, metadata })
            })
            .then(response => response.json())
            .then(data => {
                if (data.success) {
                    document.getElementById('message').innerHTML =
                        '<div class="success">Account connected. You can close this window.</div>';
                } else {
                    document.getElementById('message').innerHTML =
                        '<div class="error">' + (data.error || 'Connection failed') + '</div>';
                }
            })
            .catch(error => {
                document.getElementById('message').innerHTML =
                    '<div class="error">Network error: ' + error + '</div>';
            });
        },
        onExit: (err, metadata) => {
            if (err != null) {
                document.getElementById('message').innerHTML =
                    '<div class="error">Connection canceled or failed.</div>';
            }
        }
    });

    document.getElementById('link-button').onclick = () => {
        linkHandler.open();
    };
    </script>
</body>
</html>`
