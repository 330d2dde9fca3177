package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
)

// sessionJar is a cookie jar that persists the backend's cookies to disk so
// the session survives between CLI invocations. Only cookies for the API
// host are stored.
type sessionJar struct {
	inner *cookiejar.Jar
	path  string
	base  *url.URL
}

func newSessionJar(path, baseURL string) (*sessionJar, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	j := &sessionJar{inner: inner, path: path, base: base}
	if err := j.load(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	return j.inner.Cookies(u)
}

func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.inner.SetCookies(u, cookies)
	if u.Host == j.base.Host {
		j.save()
	}
}

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Path  string `json:"path,omitempty"`
}

func (j *sessionJar) load() error {
	payload, err := os.ReadFile(j.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read session file: %w", err)
	}

	var stored []storedCookie
	if err := json.Unmarshal(payload, &stored); err != nil {
		// A corrupt session file just means logging in again
		return nil
	}
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: c.Path})
	}
	j.inner.SetCookies(j.base, cookies)
	return nil
}

func (j *sessionJar) save() {
	var stored []storedCookie
	for _, c := range j.inner.Cookies(j.base) {
		stored = append(stored, storedCookie{Name: c.Name, Value: c.Value, Path: c.Path})
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(j.path), 0o700); err != nil {
		return
	}
	tmp := j.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return
	}
	os.Rename(tmp, j.path)
}
