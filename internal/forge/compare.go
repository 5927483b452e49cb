package forge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"git.home.luguber.info/inful/mapbuilder/internal/foundation/errors"
)

// CompareClient fetches the changed file list of a commit range from the forge API.
type CompareClient struct {
	httpClient *http.Client
	token      string
}

// NewCompareClient returns a client using timeout for every request. A non-empty token is
// sent as a bearer credential.
func NewCompareClient(timeout time.Duration, token string) *CompareClient {
	return NewCompareClientWithHTTP(&http.Client{Timeout: timeout}, token)
}

// NewCompareClientWithHTTP creates a client around an existing *http.Client.
func NewCompareClientWithHTTP(httpClient *http.Client, token string) *CompareClient {
	return &CompareClient{httpClient: httpClient, token: token}
}

// compareResponse mirrors the fields of the compare API we read.
type compareResponse struct {
	Files []struct {
		Filename string `json:"filename"`
	} `json:"files"`
}

// ResolveCompareURL substitutes the literal {base} and {head} placeholders.
func ResolveCompareURL(template, base, head string) string {
	return strings.NewReplacer("{base}", base, "{head}", head).Replace(template)
}

// ChangedFiles returns the file names changed between base and head.
func (c *CompareClient) ChangedFiles(ctx context.Context, compareURL, base, head string) ([]string, error) {
	u := ResolveCompareURL(compareURL, base, head)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, errors.ForgeError("failed to create compare request").
			WithCause(err).
			WithContext("url", u).
			Build()
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "mapbuilder/1.0")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NetworkError("failed to execute compare request").
			WithCause(err).
			WithContext("url", u).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Read limited body for diagnostics
		limitedBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		bodyStr := strings.ReplaceAll(string(limitedBody), "\n", " ")

		b := errors.ForgeError(fmt.Sprintf("compare API error: %s", resp.Status))
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			b = b.WithCategory(errors.CategoryAuth)
		case http.StatusNotFound:
			b = b.WithCategory(errors.CategoryNotFound)
		case http.StatusTooManyRequests:
			b = b.RateLimit()
		}
		return nil, b.WithContext("status", resp.Status).
			WithContext("code", resp.StatusCode).
			WithContext("url", u).
			WithContext("response", bodyStr).
			Build()
	}

	var cr compareResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, errors.ForgeError("failed to decode compare response").
			WithCause(err).
			WithContext("url", u).
			Build()
	}

	files := make([]string, 0, len(cr.Files))
	for _, f := range cr.Files {
		files = append(files, f.Filename)
	}
	return files, nil
}
