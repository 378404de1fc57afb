package cfg

import (
	"testing"
	"time"

	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/DRSN-tech/catalog-importer/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAllowedHosts(t *testing.T) {
	hosts, err := ParseAllowedHosts(" shopify-main = BatsonEnterprises.com, www.batsonenterprises.com ; b2b=portal.batson.test")
	require.NoError(t, err)

	assert.Equal(t, map[string][]string{
		"shopify-main": {"batsonenterprises.com", "www.batsonenterprises.com"},
		"b2b":          {"portal.batson.test"},
	}, hosts)

	empty, err := ParseAllowedHosts("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ParseAllowedHosts("no-equals-sign")
	assert.ErrorIs(t, err, e.ErrIncorrectEnvVariable)

	_, err = ParseAllowedHosts("=host.test")
	assert.ErrorIs(t, err, e.ErrIncorrectEnvVariable)
}

func TestCrawlerFetchTimeoutIsClamped(t *testing.T) {
	cases := map[string]time.Duration{
		"100ms": time.Second,
		"15s":   15 * time.Second,
		"5m":    60 * time.Second,
	}

	for raw, want := range cases {
		t.Run(raw, func(t *testing.T) {
			t.Setenv("FETCH_TIMEOUT", raw)

			c, err := loadCrawlerCfg(logger.NewNop())
			require.NoError(t, err)
			assert.Equal(t, want, c.FetchTimeout)
		})
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("FETCH_RPS", "0")
	_, err := loadCrawlerCfg(logger.NewNop())
	assert.ErrorIs(t, err, e.ErrIncorrectEnvVariable)

	t.Setenv("PUBLISH_BATCH_SIZE", "-1")
	_, err = loadPublishCfg()
	assert.ErrorIs(t, err, e.ErrIncorrectEnvVariable)
}

func TestKafkaDisabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")
	k, err := loadKafkaCfg()
	require.NoError(t, err)
	assert.False(t, k.Enabled)

	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	k, err = loadKafkaCfg()
	require.NoError(t, err)
	assert.True(t, k.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, k.Brokers)
	assert.Equal(t, "catalog-import-audit", k.Topic)
}
