package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConnectorSettingsFallsBackToDefaults(t *testing.T) {
	cfg := ConnectorConfig{Targets: map[string]ConnectorSettings{
		"shopify": {APIVersion: "2025-01", Timeout: 5 * time.Second},
	}}

	assert.Equal(t, "2025-01", cfg.Settings("Shopify ").APIVersion)
	assert.Equal(t, 20*time.Second, cfg.Settings("amazon").Timeout)
	assert.Equal(t, ConnectorSettings{}, cfg.Settings("unknown"))
}

func TestValidateConnectorConfig(t *testing.T) {
	assert.Error(t, validateConnectorConfig(ConnectorConfig{}))
	assert.Error(t, validateConnectorConfig(ConnectorConfig{Targets: map[string]ConnectorSettings{
		"shopify": {Rate: -1},
	}}))
	assert.NoError(t, validateConnectorConfig(DefaultConnectorConfig()))
}

func TestStaticHolder(t *testing.T) {
	holder := NewStaticConnectorConfigHolder(DefaultConnectorConfig())
	assert.Equal(t, "2024-10", holder.Settings("shopify").APIVersion)

	var nilHolder *ConnectorConfigHolder
	assert.Equal(t, 40, nilHolder.Settings("shopify").Burst)
}
