package supabase

import (
	"errors"
	"net/url"
	"strings"
)

var ErrInvalidConfig = errors.New("missing or invalid supabase configuration")

var placeholders = map[string]bool{
	"https://your-project-id.supabase.co": true,
	"your-anon-public-key":                true,
}

type Config struct {
	URL     string
	AnonKey string
}

// Validate rejects empty values and the placeholders from the example .env file.
func (c Config) Validate() error {
	if c.URL == "" || c.AnonKey == "" {
		return ErrInvalidConfig
	}
	if placeholders[strings.TrimRight(c.URL, "/")] || placeholders[c.AnonKey] {
		return ErrInvalidConfig
	}
	u, err := url.Parse(c.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrInvalidConfig
	}
	return nil
}
