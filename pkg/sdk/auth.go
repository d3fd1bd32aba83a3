package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// LoginInput carries the credentials typed into the login form.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult is the token and profile recovered from a login response.
type LoginResult struct {
	Token string
	User  User
}

// Credentials converts the result into the form persisted by CLI credential stores.
func (r *LoginResult) Credentials() *Credentials {
	creds := &Credentials{
		AccessToken: r.Token,
		TokenType:   "Bearer",
		User:        r.User,
	}
	if exp, ok := TokenExpiration(r.Token); ok {
		creds.ExpiresAt = exp
	}
	return creds
}

// tokenPaths are probed in order when the login response is a JSON object.
var tokenPaths = []string{
	"token", "accessToken", "access_token", "Token", "AccessToken", "tokenValue", "jwt", "jwtToken",
	"data.token", "data.accessToken", "data.access_token", "data.Token", "data.AccessToken",
	"result.token", "result.accessToken",
	"response.token", "response.accessToken",
	"body.token", "body.accessToken",
}

var (
	jwtPattern = regexp.MustCompile(`[A-Za-z0-9_-]{20,}\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]{20,}`)

	tokenFieldPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)"token"\s*:\s*"([^"]+)"`),
		regexp.MustCompile(`(?i)"accessToken"\s*:\s*"([^"]+)"`),
		regexp.MustCompile(`(?i)"access_token"\s*:\s*"([^"]+)"`),
		regexp.MustCompile(`(?i)"jwt"\s*:\s*"([^"]+)"`),
		regexp.MustCompile(`(?i)"jwtToken"\s*:\s*"([^"]+)"`),
	}
)

// Login exchanges credentials for a token. The login endpoint is never sent
// a bearer token and a 401 from it is reported as a plain HTTP error.
func (c *Client) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	payload, err := json.Marshal(map[string]string{
		"username": input.Email,
		"password": input.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("encode login request: %w", err)
	}

	endpoint, err := c.endpoint(c.authURL, LoginPath, nil)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(ctx, OpLogin, req, false)
	if err != nil {
		return nil, err
	}

	token := ExtractToken(resp.body)
	if token == "" {
		c.logger.WithField("operation", OpLogin).Warn("login response carried no token")
		return nil, ErrNoToken
	}

	return &LoginResult{
		Token: token,
		User:  ExtractUser(resp.body, input.Email),
	}, nil
}

// ExtractToken finds the JWT in a login response of unknown layout.
// It returns "" unless the candidate has exactly three dot-separated parts.
func ExtractToken(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}

	if !gjson.ValidBytes(trimmed) || gjson.ParseBytes(trimmed).Type == gjson.String {
		text := string(trimmed)
		if gjson.ValidBytes(trimmed) {
			text = gjson.ParseBytes(trimmed).String()
		}
		text = CleanToken(text)
		if isThreePart(text) {
			return text
		}
		return ""
	}

	root := gjson.ParseBytes(trimmed)
	token := ""
	for _, path := range tokenPaths {
		if v := root.Get(path); v.Type == gjson.String && v.Str != "" {
			token = v.Str
			break
		}
	}

	if token == "" {
		for _, match := range jwtPattern.FindAllString(string(trimmed), -1) {
			if len(match) > len(token) {
				token = match
			}
		}
	}

	if token == "" {
		for _, pattern := range tokenFieldPatterns {
			if m := pattern.FindSubmatch(trimmed); m != nil {
				token = string(m[1])
				break
			}
		}
	}

	token = CleanToken(token)
	if !isThreePart(token) {
		return ""
	}
	return token
}

// ExtractUser reads the profile from a login response, synthesizing one from
// top-level fields and the submitted email when the response has none.
func ExtractUser(body []byte, email string) User {
	root := gjson.ParseBytes(body)
	if root.IsObject() {
		for _, path := range []string{"user", "data.user", "result.user"} {
			v := root.Get(path)
			if !v.IsObject() {
				continue
			}
			var user User
			if err := decodeRecord(v.Raw, &user); err == nil {
				if user.Email == "" {
					user.Email = email
				}
				return user
			}
		}
	}

	user := User{ID: "1", Email: email, Name: emailLocalPart(email)}
	if !root.IsObject() {
		return user
	}
	for _, path := range []string{"userId", "id"} {
		if v := root.Get(path); truthy(v) {
			user.ID = v.String()
			break
		}
	}
	for _, path := range []string{"name", "userName"} {
		if v := root.Get(path); truthy(v) {
			user.Name = v.String()
			break
		}
	}
	return user
}

func emailLocalPart(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}

func isThreePart(token string) bool {
	return token != "" && len(strings.Split(token, ".")) == 3
}
