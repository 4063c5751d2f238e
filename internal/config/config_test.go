package config

import (
	"flag"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		flags   []string
		want    Config
		wantErr bool
	}{
		{
			name: "env only",
			env: map[string]string{
				"DISCORD_TOKEN": "env-token",
				"DATABASE_URI":  "postgres://env/db",
			},
			want: Config{
				DiscordToken: "env-token",
				DatabaseURI:  "postgres://env/db",
				OpsAddress:   "localhost:9090",
			},
		},
		{
			name:  "flags only",
			flags: []string{"-t", "flag-token", "-d", "postgres://flag/db", "-a", "localhost:8081"},
			want: Config{
				DiscordToken: "flag-token",
				DatabaseURI:  "postgres://flag/db",
				OpsAddress:   "localhost:8081",
			},
		},
		{
			name: "env overrides flags",
			env: map[string]string{
				"DISCORD_TOKEN": "env-token",
				"DATABASE_URI":  "postgres://env/db",
				"OPS_ADDRESS":   "localhost:7070",
			},
			flags: []string{"-t", "flag-token", "-d", "postgres://flag/db", "-a", "localhost:8081"},
			want: Config{
				DiscordToken: "env-token",
				DatabaseURI:  "postgres://env/db",
				OpsAddress:   "localhost:7070",
			},
		},
		{
			name: "missing token",
			env: map[string]string{
				"DATABASE_URI": "postgres://env/db",
			},
			wantErr: true,
		},
		{
			name: "missing database",
			env: map[string]string{
				"DISCORD_TOKEN": "env-token",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)

			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()
			os.Args = append([]string{"test"}, tt.flags...)

			cfg, err := Parse()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, tt.want.DiscordToken, cfg.DiscordToken)
			assert.Equal(t, tt.want.DatabaseURI, cfg.DatabaseURI)
			assert.Equal(t, tt.want.OpsAddress, cfg.OpsAddress)
		})
	}
}

func TestParse_Defaults(t *testing.T) {
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DATABASE_URI", "postgres://env/db")

	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"test"}

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "waiwai", cfg.PointEmoji)
	assert.Equal(t, "candy", cfg.CandyEmoji)
	assert.Equal(t, int64(1), cfg.DrawCost)
	assert.Equal(t, int64(10000), cfg.DrawCeiling)
	assert.Equal(t, int64(100), cfg.PointJackpotThreshold)
	assert.Equal(t, int64(1000), cfg.PointHitThreshold)
	assert.Equal(t, int64(200), cfg.CandyJackpotThreshold)
	assert.Equal(t, int64(2000), cfg.CandyHitThreshold)
	assert.Equal(t, 30, cfg.GrantTTLDays)
	assert.Equal(t, 30, cfg.ItemTTLDays)
}
