// Package config loads the BudgetWise configuration.
//
// Settings come from a YAML file (configs/config.yaml by default), then a
// development .env file, then BUDGETWISE_* environment variables. The token
// signing secret has no default and is expected from the environment.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	ttl := cfg.Security.TokenTTL()
package config
