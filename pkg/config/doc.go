// Package config loads typed configuration structs from environment
// variables, with optional .env file support for local development.
//
// Each struct type is parsed once per process and cached, so independent
// components loading the same config always observe the same values:
//
//	var cfg dispatch.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// Struct fields use caarlos0/env tags (`env`, `envDefault`, `required`).
// LoadEnv reads explicit .env files before parsing; variables already set
// in the environment always win.
package config
