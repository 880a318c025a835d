// Package config loads client configuration from a file and environment.
//
// Configuration is read with viper: an optional YAML (or TOML/JSON) file,
// overlaid by MAILSWEEP_* environment variables. Defaults target a local
// bridge (IMAP on 127.0.0.1:1143, SMTP on 127.0.0.1:1025).
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/mailsweep/mailsweep/imapmail"
	"github.com/mailsweep/mailsweep/sweep"
)

// EnvPrefix namespaces the environment variables read during Load, e.g.
// MAILSWEEP_ADDRESS and MAILSWEEP_IMAP_PORT.
const EnvPrefix = "MAILSWEEP"

// Load reads configuration from path (optional; empty means environment and
// defaults only) and returns a ready client configuration. Address and
// password must be present after all sources are merged.
func Load(path string) (sweep.Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return sweep.Config{}, fmt.Errorf("config: reading %s failed: %w", path, err)
		}
	}

	cfg := sweep.Config{
		IMAPHost:  v.GetString("imap.host"),
		IMAPPort:  v.GetInt("imap.port"),
		IMAPTLS:   v.GetBool("imap.tls"),
		SMTPHost:  v.GetString("smtp.host"),
		SMTPPort:  v.GetInt("smtp.port"),
		Address:   v.GetString("address"),
		Password:  v.GetString("password"),
		RulesPath: v.GetString("rules_path"),
		ChunkSize: v.GetInt("chunk_size"),
	}
	if cfg.Address == "" {
		return sweep.Config{}, fmt.Errorf("config: address is required (set address in the config file or %s_ADDRESS)", EnvPrefix)
	}
	if cfg.Password == "" {
		return sweep.Config{}, fmt.Errorf("config: password is required (set password in the config file or %s_PASSWORD)", EnvPrefix)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("imap.host", "127.0.0.1")
	v.SetDefault("imap.port", 1143)
	v.SetDefault("imap.tls", false)
	v.SetDefault("smtp.host", "127.0.0.1")
	v.SetDefault("smtp.port", 1025)
	v.SetDefault("rules_path", "rules.json")
	v.SetDefault("chunk_size", imapmail.DefaultChunkSize)
}
