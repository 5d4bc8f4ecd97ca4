// Package idgen wraps the UUID generator used for session and message
// identifiers so that tests can stub it. Identifiers are opaque strings.
package idgen
