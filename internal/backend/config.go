package backend

import (
	"strings"

	"gorm.io/gorm"

	"ltgsite/internal/config"
	"ltgsite/internal/database"
)

// NewProviderFromConfig picks the factory for cfg.Backend.Driver. The
// service role key is preferred; the anon key is used when it is unset.
func NewProviderFromConfig(cfg *config.Config) *Provider {
	key := strings.TrimSpace(cfg.Backend.ServiceRoleKey)
	if key == "" {
		key = strings.TrimSpace(cfg.Backend.AnonKey)
	}
	creds := Credentials{URL: strings.TrimSpace(cfg.Backend.URL), Key: key}

	factory := NewRESTFactory()
	if cfg.Backend.Driver == "postgres" {
		factory = NewPostgresFactory(func() (*gorm.DB, error) {
			return database.InitDatabase(cfg.Database)
		})
	}
	return NewProvider(creds, factory, cfg.Backend.RequestTimeout)
}
