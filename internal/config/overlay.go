package config

import (
	"strconv"
)

// ConfigValue represents a configuration value that can be set by the caller or resolved from a site file.
// This implements the config overlay pattern: caller > site file > default
//
// T is the type of the configuration value (bool, string, int, etc.)
//
// Example usage:
//
//	type MyConfig struct {
//	    Port ConfigValue[int]
//	}
//
//	// Caller explicitly sets value (overrides the site file)
//	config.Port = NewConfigValue(10001)
//
//	// Caller doesn't set value (use the site file)
//	config.Port = ConfigValue[int]{} // nil/unset
//
//	// Resolve value with overlay priority
//	port := config.Port.Resolve(site, IntProperty("hive.server2.thrift.port"), 10000)
type ConfigValue[T any] struct {
	// value is the caller-set configuration value
	// nil = not set by caller (use site file)
	// non-nil = explicitly set by caller (overrides site file)
	value *T
}

// NewConfigValue creates a ConfigValue with a caller-set value.
// The value will override any site file configuration.
func NewConfigValue[T any](value T) ConfigValue[T] {
	return ConfigValue[T]{value: &value}
}

// IsSet returns true if the caller explicitly set this configuration value.
func (cv ConfigValue[T]) IsSet() bool {
	return cv.value != nil
}

// Get returns the caller-set value and whether it was set.
// If not set, returns zero value and false.
func (cv ConfigValue[T]) Get() (T, bool) {
	if cv.value != nil {
		return *cv.value, true
	}
	var zero T
	return zero, false
}

// SiteResolver defines how to read a configuration value from a cluster site file.
type SiteResolver[T any] interface {
	// Resolve reads the value from site.
	// On error, the config overlay will fall back to the default value.
	Resolve(site *Site) (T, error)
}

// SiteResolverFunc adapts a function to the SiteResolver interface.
type SiteResolverFunc[T any] func(site *Site) (T, error)

func (f SiteResolverFunc[T]) Resolve(site *Site) (T, error) {
	return f(site)
}

// Resolve applies config overlay priority to determine the final value:
//
//	Priority 1: Caller Config - if explicitly set (overrides site file)
//	Priority 2: Site Config - read via siteResolver (when caller doesn't set and a site file is loaded)
//	Priority 3: Default Value - used when the site file is absent or lacks the value
func (cv ConfigValue[T]) Resolve(site *Site, siteResolver SiteResolver[T], defaultValue T) T {
	// Priority 1: Caller explicitly set (overrides everything)
	if cv.value != nil {
		return *cv.value
	}

	// Priority 2: Try site config (if loaded and resolver provided)
	if site != nil && siteResolver != nil {
		if siteValue, err := siteResolver.Resolve(site); err == nil {
			return siteValue
		}
	}

	// Priority 3: Fail-safe default
	return defaultValue
}

// StringProperty reads the named property from a site file.
func StringProperty(name string) SiteResolver[string] {
	return SiteResolverFunc[string](func(site *Site) (string, error) {
		v, ok := site.Get(name)
		if !ok || v == "" {
			return "", errPropertyNotFound(name)
		}
		return v, nil
	})
}

// IntProperty reads the named property from a site file as an integer.
func IntProperty(name string) SiteResolver[int] {
	return SiteResolverFunc[int](func(site *Site) (int, error) {
		v, ok := site.Get(name)
		if !ok {
			return 0, errPropertyNotFound(name)
		}
		return strconv.Atoi(v)
	})
}
