package forge

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // GitHub's X-Hub-Signature is HMAC-SHA1
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"hash"
	"net/http"
	"regexp"
	"strings"
)

// GitHub webhook headers.
const (
	HeaderSignature    = "X-Hub-Signature"
	HeaderSignature256 = "X-Hub-Signature-256"
	HeaderEvent        = "X-GitHub-Event"
	HeaderDelivery     = "X-GitHub-Delivery"
)

// Webhook event names handled by the server.
const (
	EventPush = "push"
	EventPing = "ping"
)

// VerifySignature checks an HMAC signature of body against secret.
// Both "sha1=<hex>" and "sha256=<hex>" forms are accepted. An empty secret never verifies.
func VerifySignature(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}

	var newHash func() hash.Hash
	var expected string
	switch {
	case strings.HasPrefix(signature, "sha256="):
		newHash, expected = sha256.New, signature[len("sha256="):]
	case strings.HasPrefix(signature, "sha1="):
		newHash, expected = sha1.New, signature[len("sha1="):]
	default:
		return false
	}

	mac := hmac.New(newHash, []byte(secret))
	mac.Write(body)
	calc := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(strings.ToLower(expected)), []byte(calc))
}

// SignatureFromHeaders returns the strongest signature GitHub supplied.
func SignatureFromHeaders(h http.Header) string {
	if sig := h.Get(HeaderSignature256); sig != "" {
		return sig
	}
	return h.Get(HeaderSignature)
}

// PushEvent is the subset of a GitHub push payload the build trigger needs.
type PushEvent struct {
	Ref        string         `json:"ref"`
	Before     string         `json:"before"`
	After      string         `json:"after"`
	Repository PushRepository `json:"repository"`
}

// PushRepository identifies the pushed repository.
type PushRepository struct {
	FullName   string `json:"full_name"`
	CloneURL   string `json:"clone_url"`
	CompareURL string `json:"compare_url"`
}

// ParsePushEvent decodes and validates a push payload. Any decode failure or missing
// required field yields a validation-category error.
func ParsePushEvent(body []byte) (*PushEvent, error) {
	var ev PushEvent
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&ev); err != nil {
		return nil, malformedPayload("invalid JSON", err)
	}

	switch {
	case ev.Ref == "":
		return nil, malformedPayload("missing ref", nil)
	case ev.Before == "":
		return nil, malformedPayload("missing before", nil)
	case ev.After == "":
		return nil, malformedPayload("missing after", nil)
	case !validFullName(ev.Repository.FullName):
		return nil, malformedPayload("missing or invalid repository.full_name", nil)
	case ev.Repository.CloneURL == "":
		return nil, malformedPayload("missing repository.clone_url", nil)
	case ev.Repository.CompareURL == "":
		return nil, malformedPayload("missing repository.compare_url", nil)
	}
	return &ev, nil
}

var nameSegment = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// validFullName accepts owner/repo where both segments are plain names. "." and ".." are
// rejected so a working copy path can never resolve to the cache root or an owner directory.
func validFullName(fullName string) bool {
	owner, repo, ok := strings.Cut(fullName, "/")
	if !ok {
		return false
	}
	for _, seg := range []string{owner, repo} {
		if seg == "." || seg == ".." || !nameSegment.MatchString(seg) {
			return false
		}
	}
	return true
}
