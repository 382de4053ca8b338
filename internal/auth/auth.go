// Package auth supplies bearer tokens for the directory and sheets APIs.
package auth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	ScopeContacts     = "https://www.google.com/m8/feeds"
	ScopeSpreadsheets = "https://www.googleapis.com/auth/spreadsheets"

	defaultTokenURI = "https://oauth2.googleapis.com/token"
)

type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Static is a token acquired outside this program.
type Static string

func (s Static) Token(context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("access token is empty")
	}
	return string(s), nil
}

type serviceAccountKey struct {
	Type        string `json:"type"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// ServiceAccount exchanges a signed JWT for an access token and caches it
// until shortly before expiry. When subject is set the token is issued on
// behalf of that user (domain-wide delegation), which the shared contacts
// feed requires.
type ServiceAccount struct {
	key        serviceAccountKey
	privKey    *rsa.PrivateKey
	subject    string
	scopes     []string
	httpClient *http.Client

	mu     sync.Mutex
	token  string
	expiry time.Time
}

func NewServiceAccount(credentialsFile, subject string, scopes ...string) (*ServiceAccount, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	var key serviceAccountKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("parse credentials file: %w", err)
	}

	if key.TokenURI == "" {
		key.TokenURI = defaultTokenURI
	}

	block, _ := pem.Decode([]byte(key.PrivateKey))
	if block == nil {
		return nil, fmt.Errorf("decode private key: no PEM block")
	}

	privKey, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	rsaKey, ok := privKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}

	return &ServiceAccount{
		key:        key,
		privKey:    rsaKey,
		subject:    subject,
		scopes:     scopes,
		httpClient: &http.Client{},
	}, nil
}

func (sa *ServiceAccount) Token(ctx context.Context) (string, error) {
	sa.mu.Lock()
	defer sa.mu.Unlock()

	if sa.token != "" && time.Now().Before(sa.expiry) {
		return sa.token, nil
	}

	now := time.Now()
	jwt, err := sa.assertion(now)
	if err != nil {
		return "", fmt.Errorf("sign JWT: %w", err)
	}

	form := url.Values{
		"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"assertion":  {jwt},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sa.key.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := sa.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("parse token response: %w", err)
	}

	sa.token = tokenResp.AccessToken
	sa.expiry = now.Add(time.Duration(tokenResp.ExpiresIn-60) * time.Second)

	return sa.token, nil
}

// jwtClaims is the JWT-bearer grant body. Sub is the domain user the
// service account acts as.
type jwtClaims struct {
	Iss   string `json:"iss"`
	Sub   string `json:"sub,omitempty"`
	Scope string `json:"scope"`
	Aud   string `json:"aud"`
	Iat   int64  `json:"iat"`
	Exp   int64  `json:"exp"`
}

var jwtHeader = base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`))

// assertion returns the RS256-signed JWT exchanged for an access token.
func (sa *ServiceAccount) assertion(now time.Time) (string, error) {
	payload, err := json.Marshal(jwtClaims{
		Iss:   sa.key.ClientEmail,
		Sub:   sa.subject,
		Scope: strings.Join(sa.scopes, " "),
		Aud:   sa.key.TokenURI,
		Iat:   now.Unix(),
		Exp:   now.Add(time.Hour).Unix(),
	})
	if err != nil {
		return "", err
	}

	unsigned := jwtHeader + "." + base64.RawURLEncoding.EncodeToString(payload)
	digest := sha256.Sum256([]byte(unsigned))
	sig, err := rsa.SignPKCS1v15(rand.Reader, sa.privKey, crypto.SHA256, digest[:])
	if err != nil {
		return "", err
	}
	return unsigned + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}
