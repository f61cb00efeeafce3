// Package token recovers a bearer access token from a web session's
// client-side storage or page content.
package token

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avh/meetfetch/internal/browser"
)

const graphAPIHost = "graph.microsoft.com"

const pollInterval = time.Second

const storageScript = `return Object.entries(window.localStorage || {}).concat(Object.entries(window.sessionStorage || {}));`

const pageScanScript = `
const looksLikeJwt = value => {
  if (typeof value !== 'string') return false;
  const parts = value.split('.');
  return parts.length === 3 && parts[0].length > 10 && parts[1].length > 10;
};
const fields = Array.from(document.querySelectorAll('input, textarea'));
for (const field of fields) {
  const value = field.value || field.getAttribute('value') || '';
  if (looksLikeJwt(value)) return value;
}
const text = document.body ? document.body.innerText : '';
if (text) {
  const match = text.match(/[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+/);
  if (match) return match[0];
}
return null;`

// tokenFields are object keys that plausibly hold a token.
var tokenFields = []string{"secret", "accessToken", "access_token"}

// LooksLikeToken reports whether a string structurally resembles a
// three-part dot-separated token. This is a plausibility filter, not
// validation.
func LooksLikeToken(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return false
	}
	for _, part := range parts {
		if len(part) <= 10 {
			return false
		}
	}
	return true
}

// Extract scans the session's local and session storage for an access
// token. It never fails; an empty string means nothing plausible was
// found.
func Extract(s browser.Session) string {
	raw, err := s.ExecuteScript(storageScript, nil)
	if err != nil {
		logrus.WithError(err).Warn("failed to read storage for token")
		return ""
	}

	entries, ok := raw.([]interface{})
	if !ok {
		return ""
	}

	// Entries tagged as access credentials rank above anything the
	// generic scan turns up, so untagged lookalikes elsewhere in
	// storage cannot shadow the real credential.
	var tagged []map[string]interface{}
	var fallback string

	for _, entry := range entries {
		pair, ok := entry.([]interface{})
		if !ok || len(pair) < 2 {
			continue
		}
		value, ok := pair[1].(string)
		if !ok || value == "" {
			continue
		}

		var data interface{}
		if err := json.Unmarshal([]byte(value), &data); err != nil {
			if fallback == "" && LooksLikeToken(value) {
				fallback = value
			}
			continue
		}

		obj, ok := data.(map[string]interface{})
		if !ok {
			continue
		}

		if obj["credentialType"] == "AccessToken" {
			tagged = append(tagged, obj)
		} else {
			for _, nested := range obj {
				if m, ok := nested.(map[string]interface{}); ok && m["credentialType"] == "AccessToken" {
					tagged = append(tagged, m)
				}
			}
		}

		if fallback == "" {
			fallback = scanValue(obj)
		}
	}

	for _, entry := range tagged {
		target, _ := entry["target"].(string)
		if !strings.Contains(strings.ToLower(target), graphAPIHost) {
			continue
		}
		if secret, ok := entry["secret"].(string); ok && secret != "" {
			return secret
		}
	}
	for _, entry := range tagged {
		if secret, ok := entry["secret"].(string); ok && secret != "" {
			return secret
		}
	}

	return fallback
}

// scanValue is a recursive visitor over decoded storage values. Strings
// are only accepted under a known token field name, validated by shape.
func scanValue(v interface{}) string {
	switch value := v.(type) {
	case map[string]interface{}:
		for _, field := range tokenFields {
			if s, ok := value[field].(string); ok && LooksLikeToken(s) {
				return s
			}
		}
		for _, nested := range value {
			if tok := scanValue(nested); tok != "" {
				return tok
			}
		}
	case []interface{}:
		for _, item := range value {
			if tok := scanValue(item); tok != "" {
				return tok
			}
		}
	}
	return ""
}

// Wait polls Extract once per second until a token is found or the
// timeout elapses. This is the only polling primitive in the system.
func Wait(s browser.Session, timeout time.Duration) string {
	deadline := time.Now().Add(timeout)
	for {
		if tok := Extract(s); tok != "" {
			return tok
		}
		if !time.Now().Before(deadline) {
			return ""
		}
		time.Sleep(pollInterval)
	}
}

// FromPage scans on-page input fields and visible text for a
// token-shaped substring. Used only when storage extraction fails.
func FromPage(s browser.Session) string {
	raw, err := s.ExecuteScript(pageScanScript, nil)
	if err != nil {
		logrus.WithError(err).Warn("failed to read token from page")
		return ""
	}
	if tok, ok := raw.(string); ok {
		return tok
	}
	return ""
}
