// Package middleware provides the HTTP middleware chain shared by all
// gateway endpoints: request id assignment, access logging, panic
// recovery, and CORS.
package middleware
