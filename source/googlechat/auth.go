package googlechat

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/chat/v1"
)

// Scopes are the read-only scopes needed to list spaces and messages.
var Scopes = []string{
	chat.ChatSpacesReadonlyScope,
	chat.ChatMessagesReadonlyScope,
}

// storedToken accepts both the golang.org/x/oauth2 token layout and the
// authorized-user layout written by Google's Python client libraries.
type storedToken struct {
	AccessToken  string    `json:"access_token"`
	Token        string    `json:"token"`
	TokenType    string    `json:"token_type"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry"`
}

func (s storedToken) oauth2Token() *oauth2.Token {
	access := s.AccessToken
	if access == "" {
		access = s.Token
	}
	return &oauth2.Token{
		AccessToken:  access,
		TokenType:    s.TokenType,
		RefreshToken: s.RefreshToken,
		Expiry:       s.Expiry,
	}
}

// TokenSourceFromFiles builds a refreshing token source from an OAuth client
// secrets file and a previously saved token file.
func TokenSourceFromFiles(ctx context.Context, credentialsPath, tokenPath string) (oauth2.TokenSource, error) {
	secrets, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read client secrets: %w", err)
	}
	cfg, err := google.ConfigFromJSON(secrets, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse client secrets: %w", err)
	}

	tok, err := loadToken(tokenPath)
	if err != nil {
		return nil, err
	}
	return cfg.TokenSource(ctx, tok), nil
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	var stored storedToken
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}
	tok := stored.oauth2Token()
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, ErrMissingToken
	}
	return tok, nil
}
