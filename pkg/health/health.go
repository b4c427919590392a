// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rhyolite Contributors

package health

import "time"

// Status is a point-in-time readiness snapshot of the server, safe to
// serialize to JSON.
type Status struct {
	OK             bool      `json:"ok"`
	DBSchemaReady  bool      `json:"db_schema_ready"`
	AllowedOrigins []string  `json:"allowed_origins"`
	Time           time.Time `json:"time"`
}
