// Package auth implements the identity service client used during login
// encryption negotiation: credential authentication followed by the
// session join confirmation.
package auth

import (
	"bytes"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const (
	defaultAuthURL    = "https://authserver.mojang.com"
	defaultSessionURL = "https://sessionserver.mojang.com"
)

// AuthError reports a rejection by the identity service, as opposed to a
// transport failure reaching it.
type AuthError struct {
	Op      string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth: %s failed: %s", e.Op, e.Message)
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithAuthURL(url string) Option {
	return func(c *Client) { c.authURL = url }
}

func WithSessionURL(url string) Option {
	return func(c *Client) { c.sessionURL = url }
}

func WithClientToken(token string) Option {
	return func(c *Client) { c.clientToken = token }
}

// Client talks to the identity service. Authenticate must succeed before
// JoinServer; the access token and profile it yields are carried between
// the two calls.
type Client struct {
	http        *http.Client
	authURL     string
	sessionURL  string
	clientToken string

	accessToken string
	profileID   string
	profileName string
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		http:       &http.Client{Timeout: 15 * time.Second},
		authURL:    defaultAuthURL,
		sessionURL: defaultSessionURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ProfileName() string { return c.profileName }

type authRequest struct {
	Agent struct {
		Name    string `json:"name"`
		Version int    `json:"version"`
	} `json:"agent"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	ClientToken string `json:"clientToken,omitempty"`
}

type authResponse struct {
	AccessToken     string `json:"accessToken"`
	ClientToken     string `json:"clientToken"`
	SelectedProfile struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"selectedProfile"`
}

type errorResponse struct {
	Error        string `json:"error"`
	ErrorMessage string `json:"errorMessage"`
}

// Authenticate exchanges credentials for an access token and profile.
func (c *Client) Authenticate(username, password string) error {
	req := authRequest{Username: username, Password: password, ClientToken: c.clientToken}
	req.Agent.Name = "Minecraft"
	req.Agent.Version = 1

	body, err := json.Marshal(&req)
	if err != nil {
		return errors.Wrap(err, "auth: encode authenticate request")
	}
	resp, err := c.http.Post(c.authURL+"/authenticate", "application/json", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "auth: authenticate request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &AuthError{Op: "authenticate", Message: decodeErrorMessage(resp)}
	}

	var ar authResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return errors.Wrap(err, "auth: decode authenticate response")
	}
	if ar.AccessToken == "" {
		return &AuthError{Op: "authenticate", Message: "no access token in response"}
	}
	c.accessToken = ar.AccessToken
	c.clientToken = ar.ClientToken
	c.profileID = ar.SelectedProfile.ID
	c.profileName = ar.SelectedProfile.Name
	return nil
}

type joinRequest struct {
	AccessToken     string `json:"accessToken"`
	SelectedProfile string `json:"selectedProfile"`
	ServerID        string `json:"serverId"`
}

// JoinServer confirms the session against the identity service, proving
// possession of the shared secret negotiated with the game server.
func (c *Client) JoinServer(serverID string, sharedSecret, publicKey []byte) error {
	if c.accessToken == "" {
		return &AuthError{Op: "join", Message: "not authenticated"}
	}
	req := joinRequest{
		AccessToken:     c.accessToken,
		SelectedProfile: c.profileID,
		ServerID:        ServerIDHash(serverID, sharedSecret, publicKey),
	}
	body, err := json.Marshal(&req)
	if err != nil {
		return errors.Wrap(err, "auth: encode join request")
	}
	resp, err := c.http.Post(c.sessionURL+"/session/minecraft/join", "application/json", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "auth: join request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return &AuthError{Op: "join", Message: decodeErrorMessage(resp)}
	}
	return nil
}

func decodeErrorMessage(resp *http.Response) string {
	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil || er.ErrorMessage == "" {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}
	return er.ErrorMessage
}

// ServerIDHash computes the session hash: SHA-1 over the server id, the
// shared secret and the server's public key, rendered as a signed
// twos-complement hex number with leading zeros dropped.
func ServerIDHash(serverID string, sharedSecret, publicKey []byte) string {
	h := sha1.New()
	h.Write([]byte(serverID))
	h.Write(sharedSecret)
	h.Write(publicKey)
	digest := h.Sum(nil)

	negative := digest[0]&0x80 != 0
	if negative {
		// Twos complement of the 160 bit digest.
		carry := true
		for i := len(digest) - 1; i >= 0; i-- {
			digest[i] = ^digest[i]
			if carry {
				digest[i]++
				carry = digest[i] == 0
			}
		}
	}
	s := new(big.Int).SetBytes(digest).Text(16)
	if negative {
		return "-" + s
	}
	return s
}
