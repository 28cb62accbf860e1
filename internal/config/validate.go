package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"corpusdash/internal/domain"
)

var routeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

var reservedRoutes = map[string]bool{
	"file": true, "views": true, "health": true, "db-check": true, "routes": true, "report": true,
}

// Validate reports every problem found, not just the first.
func (c *Config) Validate() error {
	var errs []error

	switch c.App.GinMode {
	case "", "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("app.gin_mode: unsupported mode %q", c.App.GinMode))
	}

	switch c.Store.Driver {
	case "mongo", "mysql", "postgres", "sqlite", "memory":
	default:
		errs = append(errs, fmt.Errorf("store.driver: unsupported driver %q", c.Store.Driver))
	}
	if c.Store.Driver != "memory" && strings.TrimSpace(c.Store.URI) == "" {
		errs = append(errs, errors.New("store.uri: required"))
	}
	if c.Store.ConnectTimeout <= 0 {
		errs = append(errs, errors.New("store.connect_timeout: must be positive"))
	}

	switch c.Files.Backend {
	case "local":
		if strings.TrimSpace(c.Files.Root) == "" {
			errs = append(errs, errors.New("files.root: required for the local backend"))
		}
	case "minio":
		if strings.TrimSpace(c.Files.Endpoint) == "" || strings.TrimSpace(c.Files.Bucket) == "" {
			errs = append(errs, errors.New("files: endpoint and bucket are required for the minio backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("files.backend: unsupported backend %q", c.Files.Backend))
	}

	if c.Query.MaxPageSize <= 0 {
		errs = append(errs, errors.New("query.max_page_size: must be positive"))
	}

	routes := make(map[string]string, len(c.Views))
	for _, name := range c.ViewNames() {
		v := c.Views[name]
		if err := v.validate(); err != nil {
			errs = append(errs, fmt.Errorf("views.%s: %w", name, err))
		}
		if other, ok := routes[v.Route]; ok {
			errs = append(errs, fmt.Errorf("views.%s: route %q is already used by views.%s", name, v.Route, other))
			continue
		}
		routes[v.Route] = name
	}

	return errors.Join(errs...)
}

func (v ViewConfig) validate() error {
	if !routeRe.MatchString(v.Route) || reservedRoutes[v.Route] {
		return fmt.Errorf("invalid route %q", v.Route)
	}
	switch v.Kind {
	case KindStore:
		if v.Collection == "" {
			return errors.New("collection is required")
		}
	case KindDataset:
	default:
		return fmt.Errorf("unknown kind %q", v.Kind)
	}
	if !domain.ValidFieldPath(v.Sort().ID) {
		return fmt.Errorf("invalid default sort field %q", v.DefaultSort.Field)
	}
	for _, f := range v.SearchFields {
		if !domain.ValidFieldPath(f) {
			return fmt.Errorf("invalid search field %q", f)
		}
	}
	for _, f := range v.FilterFields {
		if !domain.ValidFieldPath(f) {
			return fmt.Errorf("invalid filter field %q", f)
		}
	}
	for _, col := range v.Columns {
		if !domain.ValidFieldPath(col.Field) {
			return fmt.Errorf("invalid column field %q", col.Field)
		}
		switch col.Format {
		case "", "timestamp", "percent":
		default:
			return fmt.Errorf("column %s: unknown format %q", col.Field, col.Format)
		}
	}
	return nil
}
