package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func upstreamConfig() *Config {
	return &Config{
		Commerce: CommerceConfig{
			BaseURL:     "https://shop.test/admin/api/2024-01",
			AccessToken: "token",
		},
		Marketing: MarketingConfig{
			BaseURL: "https://mkt.test",
			APIKey:  "key",
			ListID:  "L1",
		},
	}
}

// TestRequireUpstream 凭据缺失时整轮快速失败
func TestRequireUpstream(t *testing.T) {
	assert.NoError(t, upstreamConfig().RequireUpstream())

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"缺commerce base_url", func(c *Config) { c.Commerce.BaseURL = "" }},
		{"缺commerce access_token", func(c *Config) { c.Commerce.AccessToken = "" }},
		{"缺marketing base_url", func(c *Config) { c.Marketing.BaseURL = "" }},
		{"缺marketing api_key", func(c *Config) { c.Marketing.APIKey = "" }},
		{"缺marketing list_id", func(c *Config) { c.Marketing.ListID = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := upstreamConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.RequireUpstream())
		})
	}
}
