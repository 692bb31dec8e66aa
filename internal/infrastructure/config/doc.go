// Package config loads the tempwatch configuration file.
//
// Values are layered: built-in defaults, then the YAML file, then a .env
// file in the working directory (if any), then TEMPWATCH_* environment
// variables. Validate collects every problem into one error so a broken
// deployment is fixed in a single pass.
//
// Keep secrets (the Postgres URL, cache and broker passwords, the InfluxDB
// token) in the environment rather than the file.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	loc := cfg.Location()
package config
