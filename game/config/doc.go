// Package config provides configuration management for the chess server.
//
// The config package handles:
//   - Loading server configuration from a YAML file
//   - Loading .env files into the process environment
//   - CHESS_* environment overrides
//   - Validation of the merged result
//
// Configuration Format:
//
//	server:
//	  host: localhost
//	  port: 8080
//	  allowed_origins: ["https://chess.example.com"]
//	log:
//	  level: info
//	  format: console
//	match:
//	  strict_self_check: true
//	  conclude_on_checkmate: true
//	  notify_rejections: true
//	  ttl: 2h
//	  cleanup_interval: 10m
//	  max_matches: 1000
//	ngrok:
//	  enabled: false
//
// Precedence is defaults, then the file, then the environment. Command line
// flags in main are applied last.
//
// Usage:
//
//	_ = config.LoadEnvFiles()
//	cfg, err := config.NewManager("chess.yaml").Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManager(cfg.SessionOptions())
package config
