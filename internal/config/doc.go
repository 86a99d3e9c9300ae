// Package config provides loading and environment overlay for lumberjack
// runtime configuration. It exposes a Default() baseline, JSON/YAML file
// loading selected by extension and a LUMBERJACK_* environment overlay.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("/etc/lumberjack.yaml"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
//	rt, _ := runtime.Open(runtime.Options{Config: cfg})
//	defer rt.Close()
package config
