package main

import (
	"context"
	"flag"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
)

func TestCommonFlags_LoadConfig(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	configURL := "mem://localhost/cli-test/batcher.yaml"
	require.NoError(t, fs.Upload(ctx, configURL, 0644, strings.NewReader("workers: 7\n")))

	testCases := []struct {
		name          string
		args          []string
		expectWorkers int
		expectMetrics bool
	}{
		{name: "command default", args: nil, expectWorkers: 32},
		{name: "config value", args: []string{"-config", configURL}, expectWorkers: 7},
		{name: "flag overrides config", args: []string{"-config", configURL, "-workers", "3"}, expectWorkers: 3},
		{name: "flag without config", args: []string{"-workers", "2"}, expectWorkers: 2},
		{name: "metrics address", args: []string{"-metrics", ":0"}, expectWorkers: 32, expectMetrics: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			flagSet := flag.NewFlagSet("scrape", flag.ContinueOnError)
			common := registerCommon(flagSet, 32)
			require.NoError(t, flagSet.Parse(tc.args))
			config, err := common.loadConfig(ctx, fs)
			require.NoError(t, err)
			assert.Equal(t, tc.expectWorkers, config.Workers)
			assert.Equal(t, tc.expectMetrics, config.Metrics.Enabled)
		})
	}
}

func TestCommonFlags_LoadConfigMissing(t *testing.T) {
	flagSet := flag.NewFlagSet("sum", flag.ContinueOnError)
	common := registerCommon(flagSet, 4)
	require.NoError(t, flagSet.Parse([]string{"-config", "mem://localhost/cli-test/missing.yaml"}))
	_, err := common.loadConfig(context.Background(), afs.New())
	assert.Error(t, err)
}
