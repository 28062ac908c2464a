// Package config resolves the pqdash client configuration.
//
// Values come from, in order of precedence: command-line flags bound to
// the viper instance, PQDASH_* environment variables, the YAML config file
// and the defaults below. The file lives at $XDG_CONFIG_HOME/pqdash/config.yaml
// unless --config names another one:
//
//	server: http://localhost:9182
//	refresh-interval: 5s
//	page-size: 10
//	search-debounce: 500ms
//	request-timeout: 10s
//	retries: 3
//	exclude-processed: false
//	order-by: enqueuedAt_ASC
//	theme: dark
//	log-level: info
//
// String values can reference environment variables using $VAR or ${VAR}:
//
//	server: ${PQDASH_HOST}
//
// Example usage:
//
//	manager := config.NewManager(viper.New(), path)
//	if err := manager.Load(); err != nil {
//		return err
//	}
//	manager.Watch(func(cfg *config.Config, err error) {
//		// apply the new refresh interval and theme
//	})
package config
